package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Port    int    `yaml:"port" json:"port"`
		DataDir string `yaml:"data_dir" json:"data_dir"`
		Debug   bool   `yaml:"debug" json:"debug"`
		LogJSON bool   `yaml:"log_json" json:"log_json"`
	} `yaml:"app" json:"app"`

	Sweep struct {
		// Cron is a 5-field spec in the configured timezone, default 08:00.
		Cron              string `yaml:"cron" json:"cron"`
		Timezone          string `yaml:"timezone" json:"timezone"`
		TimeoutMinutes    int    `yaml:"timeout_minutes" json:"timeout_minutes"`
		MaxParallelAlerts int    `yaml:"max_parallel_alerts" json:"max_parallel_alerts"`
	} `yaml:"sweep" json:"sweep"`

	Quota struct {
		Backend  string `yaml:"backend" json:"backend"` // memory | redis
		RedisURL string `yaml:"redis_url" json:"redis_url"`
	} `yaml:"quota" json:"quota"`

	Email struct {
		Enabled       bool   `yaml:"enabled" json:"enabled"`
		SMTPHost      string `yaml:"smtp_host" json:"smtp_host"`
		SMTPPort      int    `yaml:"smtp_port" json:"smtp_port"`
		Username      string `yaml:"username" json:"username"`
		From          string `yaml:"from" json:"from"`
		RatePerMinute int    `yaml:"rate_per_minute" json:"rate_per_minute"`
	} `yaml:"email" json:"email"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.Port == 0 {
		cfg.App.Port = 38490
	}
	if cfg.Sweep.Cron == "" {
		cfg.Sweep.Cron = "0 8 * * *"
	}
	if cfg.Sweep.TimeoutMinutes == 0 {
		cfg.Sweep.TimeoutMinutes = 10
	}
	if cfg.Sweep.MaxParallelAlerts == 0 {
		cfg.Sweep.MaxParallelAlerts = 8
	}
	if cfg.Quota.Backend == "" {
		cfg.Quota.Backend = "memory"
	}
	if cfg.Email.RatePerMinute == 0 {
		cfg.Email.RatePerMinute = 30
	}
}
