package secrets

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no provider holds a secret.
var ErrNotFound = errors.New("secret not found")

// Provider retrieves secrets from one backend.
type Provider interface {
	// GetSecret returns the named secret, or an error wrapping ErrNotFound
	// when the backend does not hold it.
	GetSecret(ctx context.Context, name string) (string, error)

	// Name returns the provider name used in logs and errors.
	Name() string
}
