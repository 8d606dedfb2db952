package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

const minimalConfig = `
identity:
  issuer: https://id.example.com
  audience: anmeldesystem
  jwks_url: https://id.example.com/.well-known/jwks.json
store:
  driver: memory
`

func TestLoadMinimalConfig(t *testing.T) {
	t.Setenv("ANMELDE_TOKEN_SALT", "s3cr3t")

	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Identity.Issuer != "https://id.example.com" {
		t.Errorf("issuer = %q", cfg.Identity.Issuer)
	}
	if cfg.Identity.JWKSCacheTTL != time.Hour {
		t.Errorf("jwks cache ttl = %v, want 1h", cfg.Identity.JWKSCacheTTL)
	}
	if cfg.Security.TokenSalt() != "s3cr3t" {
		t.Errorf("token salt = %q, want s3cr3t", cfg.Security.TokenSalt())
	}
	if cfg.Store.Driver != "memory" {
		t.Errorf("store driver = %q, want memory", cfg.Store.Driver)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("ANMELDE_TOKEN_SALT", "s3cr3t")
	t.Setenv("ANMELDE_SERVER_PORT", "9090")
	t.Setenv("ANMELDE_IDENTITY_ISSUER", "https://other.example.com")

	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want env override 9090", cfg.Server.Port)
	}
	if cfg.Identity.Issuer != "https://other.example.com" {
		t.Errorf("issuer = %q, want env override", cfg.Identity.Issuer)
	}
}

func TestValidateRejectsMissingFields(t *testing.T) {
	t.Setenv("ANMELDE_TOKEN_SALT", "s3cr3t")

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"missing issuer", func(c *Config) { c.Identity.Issuer = "" }, "identity.issuer"},
		{"missing jwks url", func(c *Config) { c.Identity.JWKSURL = "" }, "identity.jwks_url"},
		{"missing audience", func(c *Config) { c.Identity.Audience = "" }, "identity.audience"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"bad driver", func(c *Config) { c.Store.Driver = "sqlite" }, "store.driver"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Identity.Issuer = "https://id.example.com"
			cfg.Identity.Audience = "anmeldesystem"
			cfg.Identity.JWKSURL = "https://id.example.com/jwks"
			cfg.Store.Driver = "memory"
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate returned nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestValidateRequiresSaltEnv(t *testing.T) {
	t.Setenv("ANMELDE_TOKEN_SALT", "")

	cfg := Defaults()
	cfg.Identity.Issuer = "https://id.example.com"
	cfg.Identity.Audience = "anmeldesystem"
	cfg.Identity.JWKSURL = "https://id.example.com/jwks"
	cfg.Store.Driver = "memory"

	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate returned nil with empty salt env, want error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load of missing file returned nil error")
	}
}
