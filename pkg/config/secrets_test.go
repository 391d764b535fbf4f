package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfig_Secrets(t *testing.T) {
	t.Setenv("RESTCONNECTOR_SECRET_MAPS_KEY", "env-maps-key")

	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "secrets"), 0o700); err != nil {
		t.Fatal(err)
	}
	tokenPath := writeFile(t, filepath.Join(dir, "secrets"), "api-token", "file-token\n")
	if err := os.Chmod(tokenPath, 0o600); err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir, "orders.json", `{"url": "http://shop.example.com/orders?token=${secret:api-token}"}`)

	path := writeFile(t, dir, "c.yaml", `
connector:
  headers:
    Authorization: "Bearer ${secret:api-token}"
secrets:
  dir: secrets
operations:
  - name: geo
    template:
      url: "http://maps.example.com/geocode/{!region}"
      query:
        key: "${secret:maps-key}"
    functions:
      geocode: [region]
  - name: orders
    template_file: orders.json
    functions:
      orders: []
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if got := cfg.Connector.Headers["Authorization"]; got != "Bearer file-token" {
		t.Errorf("Authorization = %q", got)
	}

	tmpl, err := cfg.LoadTemplate(cfg.Operations[0])
	if err != nil {
		t.Fatal(err)
	}
	out, err := tmpl.BuildObject(map[string]any{"region": "eu"})
	if err != nil {
		t.Fatal(err)
	}
	if key := out["query"].(map[string]any)["key"]; key != "env-maps-key" {
		t.Errorf("query key = %v", key)
	}

	tmpl, err = cfg.LoadTemplate(cfg.Operations[1])
	if err != nil {
		t.Fatal(err)
	}
	out, err = tmpl.BuildObject(nil)
	if err != nil {
		t.Fatal(err)
	}
	if out["url"] != "http://shop.example.com/orders?token=file-token" {
		t.Errorf("url = %v", out["url"])
	}

	patterns := cfg.SecretPatterns()
	if len(patterns) != 2 {
		t.Fatalf("got %d secret patterns, want 2", len(patterns))
	}
	if patterns[0].Pattern != "env-maps-key" || patterns[0].Replacement != "[REDACTED]" {
		t.Errorf("unexpected first pattern %+v", patterns[0])
	}
}

func TestLoadConfig_MissingSecret(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "c.yaml", `
connector:
  headers:
    X-Api-Key: "${secret:never-set}"
`)

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected error for a missing secret")
	}
	if !strings.Contains(err.Error(), "never-set") {
		t.Errorf("error does not name the secret: %v", err)
	}
}

func TestLoadConfig_MissingSecretsDir(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "c.yaml", `
secrets:
  dir: nowhere
`)

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for a missing secrets directory")
	}
}

func TestParse_KeepsReferences(t *testing.T) {
	cfg, err := Parse([]byte(`
connector:
  headers:
    X-Api-Key: "${secret:key}"
`), "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Connector.Headers["X-Api-Key"] != "${secret:key}" {
		t.Errorf("Parse resolved a reference: %q", cfg.Connector.Headers["X-Api-Key"])
	}
	if cfg.SecretPatterns() != nil {
		t.Error("unresolved config has secret patterns")
	}
	if cfg.Secrets.EnvPrefix != "RESTCONNECTOR_SECRET_" {
		t.Errorf("EnvPrefix = %q", cfg.Secrets.EnvPrefix)
	}
}
