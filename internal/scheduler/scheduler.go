// Package scheduler wires up the cron job that fires the daily alert sweep.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper is the part of the engine the scheduler drives.
type Sweeper interface {
	RunDailySweep(ctx context.Context) error
}

// Scheduler wraps robfig/cron and owns the sweep cadence.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	log     *zap.Logger
	spec    string
}

// New builds a scheduler firing on the given cron spec (e.g. "0 8 * * *") in
// the named timezone. An empty or invalid timezone falls back to local time.
func New(sweeper Sweeper, spec, timezone string, log *zap.Logger) (*Scheduler, error) {
	loc := time.Local
	if timezone != "" {
		parsed, err := time.LoadLocation(timezone)
		if err != nil {
			log.Warn("unknown timezone, using local", zap.String("timezone", timezone), zap.Error(err))
		} else {
			loc = parsed
		}
	}
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		sweeper: sweeper,
		log:     log,
		spec:    spec,
	}
	if _, err := s.cron.AddFunc(spec, s.runSweep); err != nil {
		return nil, fmt.Errorf("cron spec %q: %w", spec, err)
	}
	return s, nil
}

// Start begins firing on schedule. It does not run a sweep immediately; the
// day's digests should go out at the configured hour, not at process start.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("sweep scheduled", zap.String("spec", s.spec))
}

// Stop halts the cron loop and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) runSweep() {
	if err := s.sweeper.RunDailySweep(context.Background()); err != nil {
		s.log.Error("daily sweep failed", zap.Error(err))
	}
}
