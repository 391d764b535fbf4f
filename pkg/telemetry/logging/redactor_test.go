package logging

import (
	"errors"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mercator-hq/restconnector/pkg/config"
)

func TestNewRedactor(t *testing.T) {
	tests := []struct {
		name           string
		customPatterns []config.RedactPattern
		wantPatterns   int
	}{
		{
			name:         "default patterns only",
			wantPatterns: 6,
		},
		{
			name: "with custom patterns",
			customPatterns: []config.RedactPattern{
				{Name: "internal_id", Pattern: `emp-[0-9]{6}`, Replacement: "emp-***"},
			},
			wantPatterns: 7,
		},
		{
			name: "invalid custom pattern is skipped",
			customPatterns: []config.RedactPattern{
				{Name: "invalid", Pattern: "[unclosed", Replacement: "***"},
			},
			wantPatterns: 6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRedactor(tt.customPatterns)
			if got := len(r.Patterns()); got != tt.wantPatterns {
				t.Errorf("expected %d patterns, got %d", tt.wantPatterns, got)
			}
		})
	}
}

func TestRedactor_RedactString(t *testing.T) {
	r := NewRedactor([]config.RedactPattern{
		{Name: "internal_id", Pattern: `emp-[0-9]{6}`, Replacement: "emp-***"},
	})

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bearer token", "Authorization: Bearer abc.def-123", "Authorization: Bearer ***"},
		{"basic auth", "Authorization: Basic dXNlcjpwYXNz", "Authorization: Basic ***"},
		{"url user info", "GET https://user:pw@api.example.com/x", "GET https://***@api.example.com/x"},
		{"query secret", "GET http://h/users?token=abc&limit=1", "GET http://h/users?token=***&limit=1"},
		{"api key", "using sk-abcdefgh1234", "using api_key=***"},
		{"password", "password=hunter2 next", "password=*** next"},
		{"custom pattern", "owner emp-123456", "owner emp-***"},
		{"no credentials", "GET http://h/users?limit=1", "GET http://h/users?limit=1"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.RedactString(tt.input); got != tt.want {
				t.Errorf("RedactString(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRedactor_Redact(t *testing.T) {
	r := NewRedactor(nil)

	tests := []struct {
		name  string
		key   string
		value any
		want  any
	}{
		{"sensitive key", "Authorization", "Bearer x", "***"},
		{"sensitive key nil", "password", nil, nil},
		{"sensitive key empty", "password", "", ""},
		{"sensitive key non-string", "secret", 42, "***"},
		{"plain value", "status", 200, 200},
		{
			name:  "nested map",
			key:   "headers",
			value: map[string]any{"Cookie": "a=b", "Accept": "application/json"},
			want:  map[string]any{"Cookie": "***", "Accept": "application/json"},
		},
		{
			name:  "string map",
			key:   "headers",
			value: map[string]string{"X-Api-Key": "k", "Accept": "*/*"},
			want:  map[string]string{"X-Api-Key": "***", "Accept": "*/*"},
		},
		{
			name:  "http header",
			key:   "headers",
			value: http.Header{"Authorization": {"Bearer t"}, "Accept": {"text/html"}},
			want:  http.Header{"Authorization": {"***"}, "Accept": {"text/html"}},
		},
		{
			name:  "slice",
			key:   "urls",
			value: []any{"http://h/?token=abc", 1},
			want:  []any{"http://h/?token=***", 1},
		},
		{
			name:  "error",
			key:   "error",
			value: errors.New("GET http://h/?secret=abc failed"),
			want:  "GET http://h/?secret=*** failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Redact(tt.key, tt.value)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Redact() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRedactor_RedactArgs(t *testing.T) {
	r := NewRedactor(nil)

	args := []any{"token", "abc", "url", "http://h/?api_key=xyz", "count", 3}
	got := r.RedactArgs(args...)
	want := []any{"token", "***", "url", "http://h/?api_key=***", "count", 3}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("RedactArgs() mismatch (-want +got):\n%s", diff)
	}
	if args[1] != "abc" {
		t.Error("RedactArgs modified its input")
	}
}

func TestRedactor_Nil(t *testing.T) {
	var r *Redactor
	if got := r.RedactString("Bearer abc"); got != "Bearer abc" {
		t.Errorf("nil redactor changed value: %q", got)
	}
	if got := r.Redact("password", "x"); got != "x" {
		t.Errorf("nil redactor changed value: %v", got)
	}
}
