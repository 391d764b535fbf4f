package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// DefaultEnvPrefix prefixes the environment variables read by EnvProvider.
const DefaultEnvPrefix = "RESTCONNECTOR_SECRET_"

// EnvProvider loads secrets from environment variables.
type EnvProvider struct {
	Prefix string
}

// NewEnvProvider creates an environment provider. An empty prefix reads
// variables named after the secret alone.
func NewEnvProvider(prefix string) *EnvProvider {
	return &EnvProvider{Prefix: prefix}
}

// GetSecret reads the variable of name. An empty variable counts as unset.
func (p *EnvProvider) GetSecret(_ context.Context, name string) (string, error) {
	envVar := p.EnvVar(name)
	value := os.Getenv(envVar)
	if value == "" {
		return "", fmt.Errorf("%w: %s is not set", ErrNotFound, envVar)
	}
	return value, nil
}

// Name returns "env".
func (p *EnvProvider) Name() string {
	return "env"
}

// EnvVar returns the variable holding name: "maps-api-key" with the
// default prefix becomes "RESTCONNECTOR_SECRET_MAPS_API_KEY".
func (p *EnvProvider) EnvVar(name string) string {
	r := strings.NewReplacer("-", "_", ".", "_")
	return p.Prefix + strings.ToUpper(r.Replace(name))
}
