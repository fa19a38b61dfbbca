package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

func Validate(cfg Config) error {
	var errs []string

	if cfg.App.Port <= 0 || cfg.App.Port > 65535 {
		errs = append(errs, "app.port must be 1..65535")
	}
	if strings.TrimSpace(cfg.Sweep.Cron) == "" {
		errs = append(errs, "sweep.cron is required")
	}
	if cfg.Sweep.TimeoutMinutes <= 0 {
		errs = append(errs, "sweep.timeout_minutes must be > 0")
	}
	if cfg.Sweep.MaxParallelAlerts <= 0 {
		errs = append(errs, "sweep.max_parallel_alerts must be > 0")
	}

	switch cfg.Quota.Backend {
	case "memory":
	case "redis":
		if strings.TrimSpace(cfg.Quota.RedisURL) == "" {
			errs = append(errs, "quota.redis_url is required when quota.backend=redis")
		}
	default:
		errs = append(errs, fmt.Sprintf("quota.backend must be memory or redis, got %q", cfg.Quota.Backend))
	}

	if cfg.Email.Enabled {
		if strings.TrimSpace(cfg.Email.SMTPHost) == "" {
			errs = append(errs, "email.smtp_host is required when email.enabled=true")
		}
		if cfg.Email.SMTPPort == 0 {
			errs = append(errs, "email.smtp_port is required when email.enabled=true")
		}
		if strings.TrimSpace(cfg.Email.Username) == "" {
			errs = append(errs, "email.username is required when email.enabled=true")
		}
		if strings.TrimSpace(cfg.Email.From) == "" {
			errs = append(errs, "email.from is required when email.enabled=true")
		}
		if cfg.Email.RatePerMinute < 0 {
			errs = append(errs, "email.rate_per_minute must be >= 0")
		}
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n- " + strings.Join(errs, "\n- "))
	}
	return nil
}

func SaveAtomic(path string, cfg Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}

	b, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	bak := path + ".bak"

	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}

	_ = os.Remove(bak)
	_ = os.Rename(path, bak)

	return os.Rename(tmp, path)
}
