package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadFromDefaultsOnly(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("missing yaml file must not fail: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("port = %q, want default 8080", cfg.Server.Port)
	}
	if cfg.Deliberation.PanelMaxParallel != 5 {
		t.Errorf("panel_max_parallel = %d, want 5", cfg.Deliberation.PanelMaxParallel)
	}
	if cfg.Deliberation.CallTimeout != 90*time.Second {
		t.Errorf("call_timeout = %v, want 90s", cfg.Deliberation.CallTimeout)
	}
	if cfg.Telemetry.Enabled {
		t.Error("telemetry should default to disabled")
	}
}

func TestLoadFromYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boardroom.yaml")
	yaml := `
server:
  port: "9090"
deliberation:
  max_rounds: 2
  review_model: openai/gpt-4o
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("port = %q, want 9090", cfg.Server.Port)
	}
	if cfg.Deliberation.MaxRounds != 2 {
		t.Errorf("max_rounds = %d, want 2", cfg.Deliberation.MaxRounds)
	}
	if cfg.Deliberation.ReviewModel != "openai/gpt-4o" {
		t.Errorf("review_model = %q", cfg.Deliberation.ReviewModel)
	}
	// Untouched keys keep their defaults.
	if cfg.NATS.URL != "nats://localhost:4222" {
		t.Errorf("nats url = %q", cfg.NATS.URL)
	}
}

func TestLoadFromEnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boardroom.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: \"9090\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("BOARDROOM_PORT", "7070")
	t.Setenv("BOARDROOM_PANEL_MAX_PARALLEL", "3")
	t.Setenv("BOARDROOM_CALL_TIMEOUT", "45s")
	t.Setenv("BOARDROOM_TELEMETRY_ENABLED", "true")
	t.Setenv("DATABASE_URL", "postgres://env:env@db:5432/boardroom")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("port = %q, env must beat yaml", cfg.Server.Port)
	}
	if cfg.Deliberation.PanelMaxParallel != 3 {
		t.Errorf("panel_max_parallel = %d, want 3", cfg.Deliberation.PanelMaxParallel)
	}
	if cfg.Deliberation.CallTimeout != 45*time.Second {
		t.Errorf("call_timeout = %v, want 45s", cfg.Deliberation.CallTimeout)
	}
	if !cfg.Telemetry.Enabled {
		t.Error("telemetry env override ignored")
	}
	if cfg.Postgres.DSN != "postgres://env:env@db:5432/boardroom" {
		t.Errorf("dsn = %q", cfg.Postgres.DSN)
	}
}

func TestLoadFromRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boardroom.yaml")
	if err := os.WriteFile(path, []byte("deliberation:\n  panel_max_parallel: 0\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFrom(path); err == nil {
		t.Fatal("zero panel_max_parallel must fail validation")
	}
}

func TestLoadFromRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boardroom.yaml")
	if err := os.WriteFile(path, []byte(":\n\t- bad"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFrom(path); err == nil {
		t.Fatal("malformed yaml must fail")
	}
}

func TestEnvIgnoresUnparsableValues(t *testing.T) {
	t.Setenv("BOARDROOM_MAX_ROUNDS", "not-a-number")
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Deliberation.MaxRounds != 5 {
		t.Errorf("max_rounds = %d, unparsable env should keep default", cfg.Deliberation.MaxRounds)
	}
}

func TestValidateRequiredFields(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.DSN = ""
	if err := validate(&cfg); err == nil || !strings.Contains(err.Error(), "postgres.dsn") {
		t.Errorf("err = %v, want postgres.dsn failure", err)
	}

	cfg = Defaults()
	cfg.Deliberation.PhaseTimeout = 0
	if err := validate(&cfg); err == nil {
		t.Error("zero phase_timeout must fail")
	}
}
