package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"jobalert-engine/internal/clock"
	"jobalert-engine/internal/config"
	"jobalert-engine/internal/engine"
	"jobalert-engine/internal/events"
	"jobalert-engine/internal/httpapi"
	"jobalert-engine/internal/logger"
	"jobalert-engine/internal/notify"
	"jobalert-engine/internal/quota"
	"jobalert-engine/internal/scheduler"
	"jobalert-engine/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	// Engine data dir: use env if provided, else local folder.
	dataDir := os.Getenv("JOBALERT_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	// One engine per data dir. A second instance would race the sqlite file
	// and double-send every digest.
	lock := flock.New(filepath.Join(dataDir, "engine.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire data dir lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another engine instance is already running in %s", dataDir)
	}
	defer lock.Unlock()

	defaultCfgPath := filepath.Join("config", "config.yml")
	userCfgPath, err := config.EnsureUserConfig(dataDir, defaultCfgPath)
	if err != nil {
		return fmt.Errorf("config bootstrap failed: %w", err)
	}

	// Load config and keep it reloadable
	var cfgVal atomic.Value // stores config.Config
	loadCfg := func() (config.Config, error) {
		return config.Load(userCfgPath)
	}
	cfg, err := loadCfg()
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", userCfgPath, err)
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	cfgVal.Store(cfg)

	log, err := logger.New(cfg.App.LogJSON, cfg.App.Debug)
	if err != nil {
		return err
	}
	defer log.Sync()

	loc := time.Local
	if cfg.Sweep.Timezone != "" {
		if parsed, err := time.LoadLocation(cfg.Sweep.Timezone); err == nil {
			loc = parsed
		} else {
			log.Warn("unknown timezone, using local", zap.String("timezone", cfg.Sweep.Timezone))
		}
	}
	clk := clock.System(loc)

	dbPath := filepath.Join(dataDir, "jobalert.db")
	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open db %s: %w", dbPath, err)
	}
	defer db.Close()
	if err := store.Migrate(db.Pool); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	jobs := &store.JobStore{DB: db.Pool, Clock: clk}
	alerts := &store.AlertStore{DB: db.Pool, Clock: clk}

	tracker, closeTracker, err := buildTracker(cfg, clk, log)
	if err != nil {
		return err
	}
	defer closeTracker()

	var notifier notify.Notifier
	if cfg.Email.Enabled {
		notifier = notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:          cfg.Email.SMTPHost,
			Port:          cfg.Email.SMTPPort,
			Username:      cfg.Email.Username,
			From:          cfg.Email.From,
			RatePerMinute: cfg.Email.RatePerMinute,
		}, log)
	} else {
		log.Warn("email disabled, digests will only be logged")
		notifier = notify.LogNotifier{Log: log}
	}

	hub := events.NewHub()

	orch := &engine.Orchestrator{
		Jobs:              jobs,
		Alerts:            alerts,
		Notifier:          notifier,
		Quota:             tracker,
		Clock:             clk,
		Hub:               hub,
		Log:               log,
		MaxParallelAlerts: cfg.Sweep.MaxParallelAlerts,
		SweepTimeout:      time.Duration(cfg.Sweep.TimeoutMinutes) * time.Minute,
	}

	sched, err := scheduler.New(orch, cfg.Sweep.Cron, cfg.Sweep.Timezone, log)
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	var sweepStatus atomic.Value
	sweepStatus.Store(httpapi.SweepStatus{})

	mux := httpapi.NewMux(httpapi.Deps{
		Jobs:        jobs,
		Alerts:      alerts,
		Engine:      orch,
		Quota:       tracker,
		Hub:         hub,
		CfgVal:      &cfgVal,
		SweepStatus: &sweepStatus,
		UserCfgPath: userCfgPath,
		LoadCfg:     loadCfg,
	})

	// Shutdown endpoint needs srv, so it is attached here rather than in NewMux.
	token, err := randomToken(16)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.App.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler: httpapi.Chain(mux,
			httpapi.Cors,
			httpapi.RequestID,
			httpapi.Recover(log),
			httpapi.AccessLog(log),
		),
		ReadHeaderTimeout: 5 * time.Second,
	}
	mux.HandleFunc("/shutdown", shutdownHandler(&token, srv))

	log.Info("engine listening",
		zap.String("addr", "http://"+addr),
		zap.String("db", dbPath),
		zap.String("config", userCfgPath),
	)
	if err := writeRuntimeInfo(dataDir, addr, token); err != nil {
		log.Warn("write runtime info failed", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case s := <-sig:
		log.Info("shutting down", zap.String("signal", s.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	return nil
}

func buildTracker(cfg config.Config, clk clock.Clock, log *zap.Logger) (quota.Tracker, func(), error) {
	switch cfg.Quota.Backend {
	case "redis":
		t, err := quota.NewRedisTracker(context.Background(), cfg.Quota.RedisURL, clk, log)
		if err != nil {
			return nil, nil, err
		}
		log.Info("quota ledger in redis")
		return t, func() { _ = t.Close() }, nil
	default:
		log.Info("quota ledger in memory")
		return quota.NewMemoryTracker(clk), func() {}, nil
	}
}
