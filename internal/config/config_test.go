package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/habitual/internal/constants"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	home, _ := os.UserHomeDir()
	if !strings.HasPrefix(cfg.Database, home) || !strings.HasSuffix(cfg.Database, "habitual.db") {
		t.Errorf("expected expanded default database path, got %s", cfg.Database)
	}
	if cfg.Timezone != constants.DefaultTimezone {
		t.Errorf("expected default timezone, got %s", cfg.Timezone)
	}
	if cfg.Notify.GracePeriodMin != 10 || cfg.Notify.MaxRetries != 3 || cfg.Notify.RetryDelayMs != 100 {
		t.Errorf("unexpected notify defaults %+v", cfg.Notify)
	}
	if cfg.Server.Addr != constants.DefaultServerAddr {
		t.Errorf("unexpected server addr %s", cfg.Server.Addr)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `database: /tmp/habits.db
timezone: Europe/Paris
debug: true
notify:
  grace_period_min: 5
server:
  addr: 127.0.0.1:9000
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database != "/tmp/habits.db" || cfg.Timezone != "Europe/Paris" || !cfg.Debug {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.GracePeriod() != 5*time.Minute {
		t.Errorf("expected 5m grace period, got %s", cfg.GracePeriod())
	}
	if cfg.Notify.MaxRetries != 3 {
		t.Errorf("unset keys should keep defaults, got %d", cfg.Notify.MaxRetries)
	}
	if cfg.CallbackURL() != "http://127.0.0.1:9000/actions" {
		t.Errorf("unexpected callback url %s", cfg.CallbackURL())
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HABITUAL_DATABASE", "postgres://habits@localhost/habitual")
	t.Setenv("HABITUAL_NOTIFY_MAX_RETRIES", "5")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database != "postgres://habits@localhost/habitual" {
		t.Errorf("expected env database, got %s", cfg.Database)
	}
	if cfg.RetryPolicy().Attempts != 5 {
		t.Errorf("expected 5 attempts, got %d", cfg.RetryPolicy().Attempts)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad timezone", "timezone: Mars/Olympus\n"},
		{"zero grace", "notify:\n  grace_period_min: 0\n"},
		{"zero retries", "notify:\n  max_retries: 0\n"},
		{"malformed yaml", "database: [unterminated\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Database = "/tmp/other.db"
	cfg.Timezone = "UTC"
	cfg.Server.Secret = "s3cret"

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Database != cfg.Database || loaded.Timezone != "UTC" || loaded.Server.Secret != "s3cret" {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := LoadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("missing .env should be ignored, got %v", err)
	}

	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("HABITUAL_TEST_DOTENV=loaded\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("HABITUAL_TEST_DOTENV") })
	if err := LoadDotEnv(path); err != nil {
		t.Fatal(err)
	}
	if os.Getenv("HABITUAL_TEST_DOTENV") != "loaded" {
		t.Error("expected .env value in environment")
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := ExpandHome("~/x.db"); got != filepath.Join(home, "x.db") {
		t.Errorf("unexpected expansion %s", got)
	}
	if got := ExpandHome("/abs/x.db"); got != "/abs/x.db" {
		t.Errorf("absolute paths should be untouched, got %s", got)
	}
}
