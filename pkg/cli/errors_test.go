package cli

import (
	"errors"
	"fmt"
	"testing"
)

func TestConfigError(t *testing.T) {
	underlying := errors.New("missing base_url")
	err := NewConfigError("connector.yaml", underlying)

	expected := "config connector.yaml: missing base_url"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
	if !errors.Is(err, underlying) {
		t.Error("errors.Is() should work with ConfigError.Unwrap()")
	}
}

func TestCommandError(t *testing.T) {
	underlying := errors.New("underlying error")
	err := NewCommandError("call", underlying)

	expected := "command call failed: underlying error"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
	if err.Unwrap() != underlying {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), underlying)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"command error", NewCommandError("lint", errors.New("invalid")), ExitFailure},
		{"plain error", errors.New("boom"), ExitFailure},
		{"config error", NewConfigError("c.yaml", errors.New("bad")), ExitUsage},
		{"wrapped config error", fmt.Errorf("serve: %w", NewConfigError("c.yaml", errors.New("bad"))), ExitUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
