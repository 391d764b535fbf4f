package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// refPattern matches ${secret:name}.
var refPattern = regexp.MustCompile(`\$\{secret:([^}]+)\}`)

// Manager resolves secrets from its providers in order. The first provider
// holding a secret wins.
type Manager struct {
	providers []Provider

	mu       sync.Mutex
	resolved map[string]string
}

// NewManager creates a manager over providers.
func NewManager(providers ...Provider) *Manager {
	return &Manager{
		providers: providers,
		resolved:  make(map[string]string),
	}
}

// GetSecret returns the named secret. A secret is fetched once; later
// lookups return the remembered value.
func (m *Manager) GetSecret(ctx context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if value, ok := m.resolved[name]; ok {
		return value, nil
	}

	for _, p := range m.providers {
		value, err := p.GetSecret(ctx, name)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("secret %q from %s: %w", name, p.Name(), err)
		}
		slog.Debug("secret resolved", "name", redactName(name), "provider", p.Name())
		m.resolved[name] = value
		return value, nil
	}
	return "", fmt.Errorf("%w: %q", ErrNotFound, name)
}

// HasReferences reports whether s contains a secret reference.
func HasReferences(s string) bool {
	return strings.Contains(s, "${secret:")
}

// ResolveReferences replaces every ${secret:name} in input. All failing
// references are reported in one error.
func (m *Manager) ResolveReferences(ctx context.Context, input string) (string, error) {
	if !HasReferences(input) {
		return input, nil
	}

	var errs []error
	output := refPattern.ReplaceAllStringFunc(input, func(match string) string {
		name := strings.TrimSpace(refPattern.FindStringSubmatch(match)[1])
		value, err := m.GetSecret(ctx, name)
		if err != nil {
			errs = append(errs, err)
			return match
		}
		return value
	})
	return output, errors.Join(errs...)
}

// ResolveValue resolves the references in every string of a JSON-like
// document, keys included, and returns the resolved copy.
func (m *Manager) ResolveValue(ctx context.Context, v any) (any, error) {
	switch val := v.(type) {
	case string:
		return m.ResolveReferences(ctx, val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			key, err := m.ResolveReferences(ctx, k)
			if err != nil {
				return nil, err
			}
			if out[key], err = m.ResolveValue(ctx, item); err != nil {
				return nil, err
			}
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			var err error
			if out[i], err = m.ResolveValue(ctx, item); err != nil {
				return nil, err
			}
		}
		return out, nil
	}
	return v, nil
}

// Values returns every secret value resolved so far, longest first so a
// value containing another is replaced whole.
func (m *Manager) Values() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	values := make([]string, 0, len(m.resolved))
	for _, v := range m.resolved {
		if v != "" {
			values = append(values, v)
		}
	}
	sort.Slice(values, func(i, j int) bool { return len(values[i]) > len(values[j]) })
	return values
}

// redactName shortens a secret name for logs.
func redactName(name string) string {
	if len(name) <= 4 {
		return "***"
	}
	return name[:2] + "..." + name[len(name)-2:]
}
