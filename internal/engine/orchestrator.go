// Package engine coordinates alert matching, ranking and notification. It is
// driven three ways: the daily sweep, the new-job fast path and alert
// activation. All three share the quota ledger and the notifier.
package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"jobalert-engine/internal/clock"
	"jobalert-engine/internal/domain"
	"jobalert-engine/internal/events"
	"jobalert-engine/internal/location"
	"jobalert-engine/internal/match"
	"jobalert-engine/internal/notify"
	"jobalert-engine/internal/quota"
)

// JobStore is the read side of the posting data the engine needs.
type JobStore interface {
	FindActiveJobs(ctx context.Context) ([]*domain.JobPosting, error)
	FindJobWithSkills(ctx context.Context, id int64) (*domain.JobPosting, error)
	FindJobsByIDs(ctx context.Context, ids []int64) ([]*domain.JobPosting, error)
}

// AlertStore is the read side of the alert data the engine needs.
type AlertStore interface {
	FindActiveAlertsWithCriteria(ctx context.Context) ([]*domain.AlertSubscription, error)
	FindAlertWithCriteria(ctx context.Context, id int64) (*domain.AlertSubscription, error)
}

type Orchestrator struct {
	Jobs     JobStore
	Alerts   AlertStore
	Notifier notify.Notifier
	Quota    quota.Tracker
	Clock    clock.Clock
	Hub      *events.Hub
	Log      *zap.Logger

	// MaxParallelAlerts bounds concurrent per-alert processing in a sweep.
	MaxParallelAlerts int
	// SweepTimeout is the soft deadline: alerts not reached by then wait for
	// the next sweep.
	SweepTimeout time.Duration
}

// RunDailySweep resets the day's ledger and evaluates every active alert
// against the active job set. One alert failing never aborts the others.
func (o *Orchestrator) RunDailySweep(ctx context.Context) error {
	start := o.Clock.Now()
	if o.SweepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.SweepTimeout)
		defer cancel()
	}

	o.Quota.ClearAll()

	jobs, err := o.Jobs.FindActiveJobs(ctx)
	if err != nil {
		return fmt.Errorf("fetch active jobs: %w", err)
	}
	if len(jobs) == 0 {
		o.Log.Info("sweep: no active jobs")
		return nil
	}

	alerts, err := o.Alerts.FindActiveAlertsWithCriteria(ctx)
	if err != nil {
		return fmt.Errorf("fetch active alerts: %w", err)
	}
	if len(alerts) == 0 {
		o.Log.Info("sweep: no active alerts")
		return nil
	}

	var g errgroup.Group
	limit := o.MaxParallelAlerts
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	digests := make(chan struct{}, len(alerts))
	scheduled := 0
	for _, alert := range alerts {
		// Soft deadline: stop scheduling, let the next sweep pick them up.
		if ctx.Err() != nil {
			break
		}
		scheduled++
		alert := alert
		g.Go(func() error {
			defer o.recoverAlert(alert.ID)
			if o.processAlert(ctx, alert, jobs) {
				digests <- struct{}{}
			}
			return nil
		})
	}
	_ = g.Wait()
	close(digests)

	sent := len(digests)
	deferred := len(alerts) - scheduled
	took := o.Clock.Now().Sub(start)
	o.publish(events.SweepFinished(len(alerts), sent, took))
	o.Log.Info("sweep finished",
		zap.Int("alerts", len(alerts)),
		zap.Int("digests", sent),
		zap.Int("deferred", deferred),
		zap.Duration("took", took),
	)
	return nil
}

// OnJobCreated triggers the fast path off the caller's request path. It never
// blocks and never reports an error back: a notification problem must not
// fail job creation.
func (o *Orchestrator) OnJobCreated(job *domain.JobPosting) {
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				o.Log.Error("fast path panicked", zap.Any("panic", rec))
			}
		}()
		o.notifyNewJob(context.Background(), job)
	}()
}

// OnAlertActivated runs the sweep logic for one alert, immediately, against
// the full active job set. Fired on create, edit and inactive->active toggle.
func (o *Orchestrator) OnAlertActivated(alert *domain.AlertSubscription) {
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				o.Log.Error("activation path panicked", zap.Any("panic", rec))
			}
		}()
		o.notifyActivatedAlert(context.Background(), alert)
	}()
}

func (o *Orchestrator) notifyNewJob(ctx context.Context, job *domain.JobPosting) {
	if job == nil || !job.Active {
		return
	}

	// Reload with the skill set resolved; a partially loaded job would make
	// every skill criterion silently fail.
	loaded, err := o.Jobs.FindJobWithSkills(ctx, job.ID)
	if err != nil {
		o.Log.Warn("fast path: reload job failed", zap.Int64("job_id", job.ID), zap.Error(err))
		return
	}
	if loaded == nil || !loaded.Active || len(loaded.Skills) == 0 {
		return
	}

	alerts, err := o.Alerts.FindActiveAlertsWithCriteria(ctx)
	if err != nil {
		o.Log.Warn("fast path: fetch alerts failed", zap.Error(err))
		return
	}

	for _, alert := range alerts {
		if !match.IsMatch(loaded, alert) {
			continue
		}
		o.notifyAlertAboutJob(ctx, alert, loaded)
	}
}

// notifyAlertAboutJob delivers a single-job notification, respecting the cap.
// Below cap: reserve a slot, send, release on failure. At cap: supersede the
// weakest sent job when the new one scores strictly higher. The superseded
// job's earlier email is not retracted; only the ledger changes.
func (o *Orchestrator) notifyAlertAboutJob(ctx context.Context, alert *domain.AlertSubscription, job *domain.JobPosting) {
	if o.Quota.TryReserve(alert, job.ID) {
		if err := o.dispatch(ctx, alert, []*domain.JobPosting{job}); err != nil {
			o.Quota.Release(alert, job.ID)
			o.Log.Warn("fast path: dispatch failed",
				zap.Int64("alert_id", alert.ID), zap.Int64("job_id", job.ID), zap.Error(err))
		}
		return
	}

	newScore := match.Score(job, alert, o.Clock.Now())
	sentScores := o.scoreSentJobs(ctx, alert)
	if sentScores == nil {
		return
	}
	removed, ok := o.Quota.TrySupersede(alert, job.ID, newScore, sentScores)
	if !ok {
		return
	}
	if err := o.dispatch(ctx, alert, []*domain.JobPosting{job}); err != nil {
		// Undo the swap: the new job was never emailed, the evicted one was.
		// Leaving the ledger mutated would block the slot for the whole day.
		o.Quota.Release(alert, job.ID)
		o.Quota.MarkSent(alert, []int64{removed})
		o.Log.Warn("fast path: dispatch after supersede failed",
			zap.Int64("alert_id", alert.ID), zap.Int64("job_id", job.ID), zap.Error(err))
		return
	}
	o.Log.Debug("fast path: superseded",
		zap.Int64("alert_id", alert.ID),
		zap.Int64("new_job", job.ID),
		zap.Int64("removed_job", removed),
		zap.Float64("score", newScore),
	)
}

// scoreSentJobs reloads today's sent jobs and scores them for the alert.
// Jobs that no longer load keep a zero score so they are superseded first.
func (o *Orchestrator) scoreSentJobs(ctx context.Context, alert *domain.AlertSubscription) map[int64]float64 {
	sent := o.Quota.SentToday(alert)
	ids := make([]int64, 0, len(sent))
	for id := range sent {
		ids = append(ids, id)
	}
	jobs, err := o.Jobs.FindJobsByIDs(ctx, ids)
	if err != nil {
		o.Log.Warn("fast path: reload sent jobs failed", zap.Int64("alert_id", alert.ID), zap.Error(err))
		return nil
	}
	now := o.Clock.Now()
	scores := make(map[int64]float64, len(sent))
	for id := range sent {
		scores[id] = 0
	}
	for _, j := range jobs {
		scores[j.ID] = match.Score(j, alert, now)
	}
	return scores
}

func (o *Orchestrator) notifyActivatedAlert(ctx context.Context, alert *domain.AlertSubscription) {
	if alert == nil || !alert.Active {
		return
	}

	// Reload when the skill filter may be missing; the management layer often
	// hands over a bare row.
	if len(alert.Skills) == 0 && o.Alerts != nil {
		loaded, err := o.Alerts.FindAlertWithCriteria(ctx, alert.ID)
		if err != nil {
			o.Log.Warn("activation: reload alert failed", zap.Int64("alert_id", alert.ID), zap.Error(err))
			return
		}
		if loaded == nil || !loaded.Active {
			return
		}
		alert = loaded
	}

	jobs, err := o.Jobs.FindActiveJobs(ctx)
	if err != nil {
		o.Log.Warn("activation: fetch jobs failed", zap.Int64("alert_id", alert.ID), zap.Error(err))
		return
	}
	if len(jobs) == 0 {
		return
	}

	o.publish(events.AlertActivated(alert.ID))
	o.processAlert(ctx, alert, jobs)
}

// processAlert selects the alert's top candidates and dispatches one digest.
// Reports whether a digest went out.
func (o *Orchestrator) processAlert(ctx context.Context, alert *domain.AlertSubscription, jobs []*domain.JobPosting) bool {
	candidates := o.selectCandidates(alert, jobs)
	if len(candidates) == 0 {
		return false
	}

	if err := o.dispatch(ctx, alert, candidates); err != nil {
		o.Log.Warn("dispatch failed", zap.Int64("alert_id", alert.ID), zap.Error(err))
		return false
	}

	ids := make([]int64, 0, len(candidates))
	for _, j := range candidates {
		ids = append(ids, j.ID)
	}
	o.Quota.MarkSent(alert, ids)
	return true
}

// selectCandidates applies the predicate, excludes already-sent jobs, ranks
// by score and takes the top DailyCap. An unconstrained alert skips scoring:
// every active job is equally matched, ordered freshest first.
func (o *Orchestrator) selectCandidates(alert *domain.AlertSubscription, jobs []*domain.JobPosting) []*domain.JobPosting {
	sent := o.Quota.SentToday(alert)
	initial := len(jobs)

	var picked []*domain.JobPosting
	if !alert.HasCriteria() {
		picked = make([]*domain.JobPosting, 0, initial)
		for _, j := range jobs {
			if j.Active && !sent[j.ID] {
				picked = append(picked, j)
			}
		}
		sort.Slice(picked, func(a, b int) bool {
			if !picked[a].CreatedAt.Equal(picked[b].CreatedAt) {
				return picked[a].CreatedAt.After(picked[b].CreatedAt)
			}
			return picked[a].ID < picked[b].ID
		})
	} else {
		now := o.Clock.Now()
		type scored struct {
			job   *domain.JobPosting
			score float64
		}
		var ranked []scored
		for _, j := range jobs {
			if sent[j.ID] || !match.IsMatch(j, alert) {
				continue
			}
			ranked = append(ranked, scored{job: j, score: match.Score(j, alert, now)})
		}
		sort.Slice(ranked, func(a, b int) bool {
			if ranked[a].score != ranked[b].score {
				return ranked[a].score > ranked[b].score
			}
			return ranked[a].job.ID < ranked[b].job.ID
		})
		picked = make([]*domain.JobPosting, 0, len(ranked))
		for _, r := range ranked {
			picked = append(picked, r.job)
		}
	}

	if len(picked) > quota.DailyCap {
		picked = picked[:quota.DailyCap]
	}
	o.Log.Debug("alert evaluated",
		zap.Int64("alert_id", alert.ID),
		zap.Int("initial", initial),
		zap.Int("selected", len(picked)),
	)
	return picked
}

func (o *Orchestrator) dispatch(ctx context.Context, alert *domain.AlertSubscription, jobs []*domain.JobPosting) error {
	email, name := resolveRecipient(alert)
	if email == "" {
		return fmt.Errorf("alert %d has no recipient email", alert.ID)
	}

	summaries := make([]domain.JobSummary, 0, len(jobs))
	ids := make([]int64, 0, len(jobs))
	for _, j := range jobs {
		summaries = append(summaries, domain.JobSummary{
			Name:        j.Name,
			CompanyName: j.CompanyName,
			Location:    location.Canonicalize(j.Location),
			Salary:      j.Salary,
			SkillNames:  j.SkillNames(),
		})
		ids = append(ids, j.ID)
	}

	if err := o.Notifier.SendJobDigest(ctx, email, name, summaries); err != nil {
		return err
	}
	o.publish(events.DigestSent(alert.ID, ids, email))
	return nil
}

func resolveRecipient(alert *domain.AlertSubscription) (email, name string) {
	email = strings.TrimSpace(alert.Subscriber.Email)
	if email == "" {
		email = strings.TrimSpace(alert.Email)
	}
	name = strings.TrimSpace(alert.Subscriber.Name)
	if name == "" {
		name = "there"
	}
	return email, name
}

func (o *Orchestrator) recoverAlert(alertID int64) {
	if rec := recover(); rec != nil {
		o.Log.Error("alert processing panicked", zap.Int64("alert_id", alertID), zap.Any("panic", rec))
	}
}

func (o *Orchestrator) publish(evt string) {
	if o.Hub != nil {
		o.Hub.Publish(evt)
	}
}
