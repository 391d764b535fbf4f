package config

import (
	"context"
	"fmt"
	"regexp"

	"mercator-hq/restconnector/pkg/security/secrets"
	"mercator-hq/restconnector/pkg/template"
)

// SecretManager creates the secret manager of cfg: the secrets directory,
// when set, then the environment.
func (c *Config) SecretManager() (*secrets.Manager, error) {
	var providers []secrets.Provider
	if c.Secrets.Dir != "" {
		fp, err := secrets.NewFileProvider(c.ResolvePath(c.Secrets.Dir))
		if err != nil {
			return nil, err
		}
		providers = append(providers, fp)
	}
	providers = append(providers, secrets.NewEnvProvider(c.Secrets.EnvPrefix))
	return secrets.NewManager(providers...), nil
}

// ResolveSecrets replaces the ${secret:name} references of the connector
// base URL and headers and of inline operation templates. Templates read
// from files are resolved by LoadTemplate.
func (c *Config) ResolveSecrets(ctx context.Context, m *secrets.Manager) error {
	var err error
	if c.Connector.BaseURL, err = m.ResolveReferences(ctx, c.Connector.BaseURL); err != nil {
		return fmt.Errorf("connector.base_url: %w", err)
	}
	for key, value := range c.Connector.Headers {
		if c.Connector.Headers[key], err = m.ResolveReferences(ctx, value); err != nil {
			return fmt.Errorf("connector.headers.%s: %w", key, err)
		}
	}
	for i := range c.Operations {
		op := &c.Operations[i]
		if op.Template == nil {
			continue
		}
		resolved, err := m.ResolveValue(ctx, op.Template)
		if err != nil {
			return fmt.Errorf("operation %q: %w", op.Label(), err)
		}
		op.Template = resolved.(map[string]any)
	}
	c.resolver = m
	return nil
}

// resolveTemplate resolves the references of a template read from a file.
func (c *Config) resolveTemplate(tmpl *template.Template) (*template.Template, error) {
	if c.resolver == nil {
		return tmpl, nil
	}
	doc, err := c.resolver.ResolveValue(context.Background(), tmpl.Document())
	if err != nil {
		return nil, err
	}
	return template.New(doc)
}

// SecretPatterns returns a redaction pattern for every resolved secret
// value, so loggers and error messages never show them.
func (c *Config) SecretPatterns() []RedactPattern {
	if c.resolver == nil {
		return nil
	}
	values := c.resolver.Values()
	patterns := make([]RedactPattern, 0, len(values))
	for _, v := range values {
		patterns = append(patterns, RedactPattern{
			Name:        "secret",
			Pattern:     regexp.QuoteMeta(v),
			Replacement: "[REDACTED]",
		})
	}
	return patterns
}
