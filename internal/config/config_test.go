package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	var cfg Config
	applyDefaults(&cfg)
	return cfg
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("app:\n  debug: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.Port != 38490 {
		t.Errorf("port = %d, want default 38490", cfg.App.Port)
	}
	if cfg.Sweep.Cron != "0 8 * * *" {
		t.Errorf("cron = %q, want default daily 08:00", cfg.Sweep.Cron)
	}
	if cfg.Quota.Backend != "memory" {
		t.Errorf("quota backend = %q, want memory", cfg.Quota.Backend)
	}
	if !cfg.App.Debug {
		t.Error("debug flag from file was lost")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults ok", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.App.Port = 70000 }, "app.port"},
		{"empty cron", func(c *Config) { c.Sweep.Cron = " " }, "sweep.cron"},
		{"unknown backend", func(c *Config) { c.Quota.Backend = "etcd" }, "quota.backend"},
		{"redis without url", func(c *Config) { c.Quota.Backend = "redis" }, "quota.redis_url"},
		{"email without host", func(c *Config) { c.Email.Enabled = true }, "email.smtp_host"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := Validate(cfg)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error = %v, want mention of %s", err, tc.wantErr)
			}
		})
	}
}

func TestSaveAtomicRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")

	cfg := validConfig()
	cfg.App.Port = 40000
	if err := SaveAtomic(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Second save must keep a .bak of the previous file.
	cfg.App.Port = 40001
	if err := SaveAtomic(path, cfg); err != nil {
		t.Fatalf("second save: %v", err)
	}
	if _, err := os.Stat(path + ".bak"); err != nil {
		t.Errorf("backup missing: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.App.Port != 40001 {
		t.Errorf("reloaded port = %d, want 40001", loaded.App.Port)
	}
}

func TestSaveAtomicRejectsInvalid(t *testing.T) {
	cfg := validConfig()
	cfg.Quota.Backend = "etcd"
	if err := SaveAtomic(filepath.Join(t.TempDir(), "config.yml"), cfg); err == nil {
		t.Fatal("invalid config was persisted")
	}
}

func TestEnsureUserConfig(t *testing.T) {
	dir := t.TempDir()
	defaultPath := filepath.Join(dir, "default.yml")
	if err := os.WriteFile(defaultPath, []byte("app:\n  port: 12345\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	dataDir := filepath.Join(dir, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatal(err)
	}

	userPath, err := EnsureUserConfig(dataDir, defaultPath)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	// An existing user config must survive a second bootstrap.
	if err := os.WriteFile(userPath, []byte("app:\n  port: 54321\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	again, err := EnsureUserConfig(dataDir, defaultPath)
	if err != nil {
		t.Fatalf("rebootstrap: %v", err)
	}
	cfg, err := Load(again)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.App.Port != 54321 {
		t.Errorf("user edits were overwritten, port = %d", cfg.App.Port)
	}
}
