package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sample = `
server:
  address: ":8080"
database:
  driver: pgx
  url: postgres://finder@localhost/finder
matching:
  threshold: 60
  search_radius_km: 10
exchange:
  timeout_seconds: 120
auth:
  jwt_secret: file-secret
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFileWithDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":8080" || cfg.Database.Driver != "pgx" || cfg.Matching.Threshold != 60 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.ExchangeTimeout() != 2*time.Minute {
		t.Fatalf("unexpected exchange timeout %s", cfg.ExchangeTimeout())
	}
	if cfg.SemanticTimeout() != 10*time.Second || cfg.Matching.MaxSemanticDeviation != 40 || cfg.SweepInterval() != 15*time.Second {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("EXCHANGE_TIMEOUT_SECONDS", "300")
	t.Setenv("SHOW_GLOBAL", "true")
	t.Setenv("PORT", "9000")

	cfg, err := Load(writeConfig(t, sample))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Auth.JWTSecret != "env-secret" || cfg.Exchange.TimeoutSecs != 300 || !cfg.Matching.ShowGlobal {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.Server.Address != ":9000" {
		t.Fatalf("unexpected address %q", cfg.Server.Address)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "user:pass@tcp(localhost:3306)/finder?parseTime=true")
	t.Setenv("JWT_SECRET", "s")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.Driver != "mysql" || cfg.Server.Address != ":4001" || cfg.ExchangeTimeout() != 300*time.Second {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("EXCHANGE_TIMEOUT_SECONDS", "abc")
	if _, err := Load(writeConfig(t, sample)); err == nil || !strings.Contains(err.Error(), "EXCHANGE_TIMEOUT_SECONDS") {
		t.Fatalf("expected parse error, got %v", err)
	}

	t.Setenv("EXCHANGE_TIMEOUT_SECONDS", "")
	bad := strings.Replace(sample, "search_radius_km: 10", "search_radius_km: 50", 1)
	bad = strings.Replace(bad, "driver: pgx", "driver: sqlite", 1)
	_, err := Load(writeConfig(t, bad))
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"sqlite", "search radius"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %q", err, want)
		}
	}
}
