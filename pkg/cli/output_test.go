package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"gopkg.in/yaml.v3"
)

type named string

func (n named) String() string { return "name=" + string(n) }

func TestTextFormatter(t *testing.T) {
	tests := []struct {
		name string
		data any
		want string
	}{
		{"string", "test message", "test message\n"},
		{"stringer", named("ray"), "name=ray\n"},
		{"map", map[string]any{"b": 2, "a": "x", "c": []any{true}}, "a: x\nb: 2\nc: [true]\n"},
		{"slice", []string{"a", "b"}, "[\"a\",\"b\"]\n"},
		{"nil", nil, "null\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatter := &TextFormatter{}
			output, err := formatter.Format(tt.data)
			if err != nil {
				t.Fatalf("Format() error = %v", err)
			}
			if string(output) != tt.want {
				t.Errorf("Format() = %q, want %q", string(output), tt.want)
			}
		})
	}
}

func TestJSONFormatterWriter(t *testing.T) {
	formatter := &JSONFormatter{Indent: true}
	data := map[string]string{"test": "value"}
	buf := &bytes.Buffer{}

	if err := formatter.FormatTo(buf, data); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	var result map[string]string
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Errorf("FormatTo() produced invalid JSON: %v", err)
	}
	if result["test"] != "value" {
		t.Errorf("FormatTo() = %v, want %v", result, data)
	}
}

func TestYAMLFormatterWriter(t *testing.T) {
	formatter := &YAMLFormatter{}
	buf := &bytes.Buffer{}

	data := map[string]any{"id": map[string]any{"type": "number", "required": true}}
	if err := formatter.FormatTo(buf, data); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	var result map[string]map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("FormatTo() produced invalid YAML: %v", err)
	}
	if result["id"]["type"] != "number" || result["id"]["required"] != true {
		t.Errorf("FormatTo() = %v", result)
	}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		format  OutputFormat
		want    string
		wantErr bool
	}{
		{format: FormatText, want: "*cli.TextFormatter"},
		{format: "", want: "*cli.TextFormatter"},
		{format: FormatJSON, want: "*cli.JSONFormatter"},
		{format: "YAML", want: "*cli.YAMLFormatter"},
		{format: "yml", want: "*cli.YAMLFormatter"},
		{format: "csv", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			formatter, err := NewFormatter(tt.format)
			if tt.wantErr {
				if err == nil {
					t.Errorf("NewFormatter(%q) expected error", tt.format)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewFormatter(%q) error = %v", tt.format, err)
			}
			if got := fmt.Sprintf("%T", formatter); got != tt.want {
				t.Errorf("NewFormatter(%q) type = %v, want %v", tt.format, got, tt.want)
			}
		})
	}
}
