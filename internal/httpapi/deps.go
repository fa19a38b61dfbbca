package httpapi

import (
	"context"
	"sync/atomic"

	"jobalert-engine/internal/config"
	"jobalert-engine/internal/domain"
	"jobalert-engine/internal/events"
	"jobalert-engine/internal/quota"
	"jobalert-engine/internal/store"
)

// Engine is the slice of the orchestrator the handlers drive.
type Engine interface {
	RunDailySweep(ctx context.Context) error
	OnJobCreated(job *domain.JobPosting)
	OnAlertActivated(alert *domain.AlertSubscription)
}

type Deps struct {
	Jobs   *store.JobStore
	Alerts *store.AlertStore
	Engine Engine
	Quota  quota.Tracker

	Hub *events.Hub

	// Atomic stores
	CfgVal      *atomic.Value // stores config.Config
	SweepStatus *atomic.Value // stores httpapi.SweepStatus

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)
}
