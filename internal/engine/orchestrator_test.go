package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"jobalert-engine/internal/clock"
	"jobalert-engine/internal/domain"
	"jobalert-engine/internal/quota"
)

type fakeJobStore struct {
	jobs []*domain.JobPosting
}

func (f *fakeJobStore) FindActiveJobs(context.Context) ([]*domain.JobPosting, error) {
	var out []*domain.JobPosting
	for _, j := range f.jobs {
		if j.Active {
			out = append(out, j)
		}
	}
	return out, nil
}

func (f *fakeJobStore) FindJobWithSkills(_ context.Context, id int64) (*domain.JobPosting, error) {
	for _, j := range f.jobs {
		if j.ID == id {
			return j, nil
		}
	}
	return nil, nil
}

func (f *fakeJobStore) FindJobsByIDs(_ context.Context, ids []int64) ([]*domain.JobPosting, error) {
	var out []*domain.JobPosting
	for _, id := range ids {
		for _, j := range f.jobs {
			if j.ID == id {
				out = append(out, j)
			}
		}
	}
	return out, nil
}

type fakeAlertStore struct {
	alerts []*domain.AlertSubscription
}

func (f *fakeAlertStore) FindActiveAlertsWithCriteria(context.Context) ([]*domain.AlertSubscription, error) {
	var out []*domain.AlertSubscription
	for _, a := range f.alerts {
		if a.Active {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAlertStore) FindAlertWithCriteria(_ context.Context, id int64) (*domain.AlertSubscription, error) {
	for _, a := range f.alerts {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, nil
}

type sentDigest struct {
	recipient string
	jobNames  []string
}

type fakeNotifier struct {
	mu        sync.Mutex
	sent      []sentDigest
	failFor   map[string]bool // recipient -> always fail
	failAfter int             // >0: fail every send once this many succeeded
}

func (f *fakeNotifier) SendJobDigest(_ context.Context, recipientEmail, _ string, jobs []domain.JobSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[recipientEmail] {
		return errors.New("relay refused")
	}
	if f.failAfter > 0 && len(f.sent) >= f.failAfter {
		return errors.New("relay refused")
	}
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.Name)
	}
	f.sent = append(f.sent, sentDigest{recipient: recipientEmail, jobNames: names})
	return nil
}

func (f *fakeNotifier) digests() []sentDigest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentDigest(nil), f.sent...)
}

func testClock() *clock.Fixed {
	return &clock.Fixed{T: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)}
}

func newOrchestrator(js *fakeJobStore, as *fakeAlertStore, n *fakeNotifier, clk clock.Clock) *Orchestrator {
	return &Orchestrator{
		Jobs:              js,
		Alerts:            as,
		Notifier:          n,
		Quota:             quota.NewMemoryTracker(clk),
		Clock:             clk,
		Log:               zap.NewNop(),
		MaxParallelAlerts: 4,
		SweepTimeout:      time.Minute,
	}
}

func jobNamed(id int64, createdAgo time.Duration, clk clock.Clock, skills ...domain.Skill) *domain.JobPosting {
	return &domain.JobPosting{
		ID:        id,
		Name:      fmt.Sprintf("job-%d", id),
		Active:    true,
		Skills:    skills,
		CreatedAt: clk.Now().Add(-createdAgo),
	}
}

func subscriber(id int64) domain.Subscriber {
	return domain.Subscriber{ID: id, Email: fmt.Sprintf("sub%d@example.com", id), Name: "Sub"}
}

func TestDailySweep_UnconstrainedAlertGetsTopThreeFreshest(t *testing.T) {
	clk := testClock()
	js := &fakeJobStore{jobs: []*domain.JobPosting{
		jobNamed(1, 50*time.Hour, clk),
		jobNamed(2, 40*time.Hour, clk),
		jobNamed(3, 30*time.Hour, clk),
		jobNamed(4, 20*time.Hour, clk),
		jobNamed(5, 10*time.Hour, clk),
	}}
	alert := &domain.AlertSubscription{ID: 1, Subscriber: subscriber(1), Active: true}
	as := &fakeAlertStore{alerts: []*domain.AlertSubscription{alert}}
	n := &fakeNotifier{}
	o := newOrchestrator(js, as, n, clk)

	if err := o.RunDailySweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	digests := n.digests()
	if len(digests) != 1 {
		t.Fatalf("sent %d digests, want 1", len(digests))
	}
	want := []string{"job-5", "job-4", "job-3"}
	got := digests[0].jobNames
	if len(got) != 3 {
		t.Fatalf("digest has %d jobs, want 3: %v", len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("digest[%d] = %s, want %s (freshest first)", i, got[i], want[i])
		}
	}

	sent := o.Quota.SentToday(alert)
	if len(sent) != 3 || !sent[3] || !sent[4] || !sent[5] {
		t.Errorf("quota set = %v, want {3,4,5}", sent)
	}
}

func TestDailySweep_RanksByScore(t *testing.T) {
	clk := testClock()
	s1, s2, s3 := domain.Skill{ID: 1, Name: "Go"}, domain.Skill{ID: 2, Name: "SQL"}, domain.Skill{ID: 3, Name: "K8s"}
	// All stale so freshness cannot mask the skill fraction.
	js := &fakeJobStore{jobs: []*domain.JobPosting{
		jobNamed(1, 48*time.Hour, clk, s1),         // 40 * 1/3
		jobNamed(2, 48*time.Hour, clk, s1, s2),     // 40 * 2/3
		jobNamed(3, 48*time.Hour, clk, s1, s2, s3), // 40
		jobNamed(4, 48*time.Hour, clk, s2),         // 40 * 1/3, loses tie to job 1 by id
	}}
	alert := &domain.AlertSubscription{
		ID: 1, Subscriber: subscriber(1), Active: true,
		Skills: []domain.Skill{s1, s2, s3},
	}
	as := &fakeAlertStore{alerts: []*domain.AlertSubscription{alert}}
	n := &fakeNotifier{}
	o := newOrchestrator(js, as, n, clk)

	if err := o.RunDailySweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	digests := n.digests()
	if len(digests) != 1 {
		t.Fatalf("sent %d digests, want 1", len(digests))
	}
	want := []string{"job-3", "job-2", "job-1"}
	for i := range want {
		if digests[0].jobNames[i] != want[i] {
			t.Errorf("rank[%d] = %s, want %s", i, digests[0].jobNames[i], want[i])
		}
	}
}

func TestDailySweep_DispatchFailureIsIsolatedAndUnrecorded(t *testing.T) {
	clk := testClock()
	js := &fakeJobStore{jobs: []*domain.JobPosting{jobNamed(1, time.Hour, clk)}}
	bad := &domain.AlertSubscription{ID: 1, Subscriber: subscriber(1), Active: true}
	good := &domain.AlertSubscription{ID: 2, Subscriber: subscriber(2), Active: true}
	as := &fakeAlertStore{alerts: []*domain.AlertSubscription{bad, good}}
	n := &fakeNotifier{failFor: map[string]bool{"sub1@example.com": true}}
	o := newOrchestrator(js, as, n, clk)

	if err := o.RunDailySweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	digests := n.digests()
	if len(digests) != 1 || digests[0].recipient != "sub2@example.com" {
		t.Fatalf("digests = %+v, want exactly one to sub2", digests)
	}
	// Never recorded as sent, so the pairing can retry naturally later.
	if got := o.Quota.SentToday(bad); len(got) != 0 {
		t.Errorf("failed alert has quota entries %v, want none", got)
	}
	if got := o.Quota.SentToday(good); len(got) != 1 {
		t.Errorf("good alert quota = %v, want one entry", got)
	}
}

func TestFastPath_SendsUntilCapThenSupersedes(t *testing.T) {
	clk := testClock()
	s1, s2, s3, s4 := domain.Skill{ID: 1}, domain.Skill{ID: 2}, domain.Skill{ID: 3}, domain.Skill{ID: 4}
	alert := &domain.AlertSubscription{
		ID: 1, Subscriber: subscriber(1), Active: true,
		Skills: []domain.Skill{s1, s2, s3, s4},
	}
	as := &fakeAlertStore{alerts: []*domain.AlertSubscription{alert}}
	js := &fakeJobStore{}
	n := &fakeNotifier{}
	o := newOrchestrator(js, as, n, clk)

	// Strictly increasing scores: 10, 20, 30, 40 skill points.
	arrivals := []*domain.JobPosting{
		jobNamed(1, time.Hour, clk, s1),
		jobNamed(2, time.Hour, clk, s1, s2),
		jobNamed(3, time.Hour, clk, s1, s2, s3),
		jobNamed(4, time.Hour, clk, s1, s2, s3, s4),
	}
	for _, job := range arrivals {
		js.jobs = append(js.jobs, job)
		o.notifyNewJob(context.Background(), job)
	}

	digests := n.digests()
	if len(digests) != 4 {
		t.Fatalf("sent %d notifications, want 4", len(digests))
	}
	for i, d := range digests {
		if len(d.jobNames) != 1 || d.jobNames[0] != fmt.Sprintf("job-%d", i+1) {
			t.Errorf("notification %d = %v, want single job-%d", i, d.jobNames, i+1)
		}
	}

	// Job 4 superseded job 1 (the day's weakest); 2 and 3 remain.
	sent := o.Quota.SentToday(alert)
	if len(sent) != quota.DailyCap {
		t.Fatalf("quota size %d, want %d", len(sent), quota.DailyCap)
	}
	if sent[1] || !sent[2] || !sent[3] || !sent[4] {
		t.Errorf("quota set = %v, want {2,3,4}", sent)
	}
}

func TestFastPath_FailedSupersedeDispatchRestoresLedger(t *testing.T) {
	clk := testClock()
	s1, s2, s3, s4 := domain.Skill{ID: 1}, domain.Skill{ID: 2}, domain.Skill{ID: 3}, domain.Skill{ID: 4}
	alert := &domain.AlertSubscription{
		ID: 1, Subscriber: subscriber(1), Active: true,
		Skills: []domain.Skill{s1, s2, s3, s4},
	}
	as := &fakeAlertStore{alerts: []*domain.AlertSubscription{alert}}
	js := &fakeJobStore{}
	n := &fakeNotifier{failAfter: 3}
	o := newOrchestrator(js, as, n, clk)

	arrivals := []*domain.JobPosting{
		jobNamed(1, time.Hour, clk, s1),
		jobNamed(2, time.Hour, clk, s1, s2),
		jobNamed(3, time.Hour, clk, s1, s2, s3),
		jobNamed(4, time.Hour, clk, s1, s2, s3, s4),
	}
	for _, job := range arrivals {
		js.jobs = append(js.jobs, job)
		o.notifyNewJob(context.Background(), job)
	}

	// The fourth job out-scores the ledger minimum but its dispatch failed, so
	// the swap must be undone: it holds no slot and the emailed job 1 stays.
	if got := len(n.digests()); got != 3 {
		t.Fatalf("sent %d notifications, want 3", got)
	}
	sent := o.Quota.SentToday(alert)
	if len(sent) != quota.DailyCap {
		t.Fatalf("quota size %d, want %d", len(sent), quota.DailyCap)
	}
	if sent[4] || !sent[1] || !sent[2] || !sent[3] {
		t.Errorf("quota set = %v, want {1,2,3}", sent)
	}
}

func TestFastPath_LowScoreAtCapIsDropped(t *testing.T) {
	clk := testClock()
	s1, s2 := domain.Skill{ID: 1}, domain.Skill{ID: 2}
	alert := &domain.AlertSubscription{
		ID: 1, Subscriber: subscriber(1), Active: true,
		Skills: []domain.Skill{s1, s2},
	}
	as := &fakeAlertStore{alerts: []*domain.AlertSubscription{alert}}
	strong := []*domain.JobPosting{
		jobNamed(1, time.Hour, clk, s1, s2),
		jobNamed(2, time.Hour, clk, s1, s2),
		jobNamed(3, time.Hour, clk, s1, s2),
	}
	js := &fakeJobStore{jobs: strong}
	n := &fakeNotifier{}
	o := newOrchestrator(js, as, n, clk)

	for _, job := range strong {
		o.notifyNewJob(context.Background(), job)
	}

	weak := jobNamed(4, time.Hour, clk, s1)
	js.jobs = append(js.jobs, weak)
	o.notifyNewJob(context.Background(), weak)

	if got := len(n.digests()); got != 3 {
		t.Errorf("sent %d notifications, want 3 (weak job must not supersede)", got)
	}
	sent := o.Quota.SentToday(alert)
	if sent[4] {
		t.Errorf("quota set %v should not contain the weak job", sent)
	}
}

func TestFastPath_IgnoresJobsWithoutSkills(t *testing.T) {
	clk := testClock()
	alert := &domain.AlertSubscription{ID: 1, Subscriber: subscriber(1), Active: true}
	as := &fakeAlertStore{alerts: []*domain.AlertSubscription{alert}}
	bare := jobNamed(1, time.Hour, clk) // no skills resolved
	js := &fakeJobStore{jobs: []*domain.JobPosting{bare}}
	n := &fakeNotifier{}
	o := newOrchestrator(js, as, n, clk)

	o.notifyNewJob(context.Background(), bare)

	if got := len(n.digests()); got != 0 {
		t.Errorf("sent %d notifications for a skill-less job, want 0", got)
	}
}

func TestFastPath_InactiveJobIsIgnored(t *testing.T) {
	clk := testClock()
	alert := &domain.AlertSubscription{ID: 1, Subscriber: subscriber(1), Active: true}
	as := &fakeAlertStore{alerts: []*domain.AlertSubscription{alert}}
	job := jobNamed(1, time.Hour, clk, domain.Skill{ID: 1})
	job.Active = false
	js := &fakeJobStore{jobs: []*domain.JobPosting{job}}
	n := &fakeNotifier{}
	o := newOrchestrator(js, as, n, clk)

	o.notifyNewJob(context.Background(), job)

	if got := len(n.digests()); got != 0 {
		t.Errorf("sent %d notifications for an inactive job, want 0", got)
	}
}

func TestActivationPath_RunsSingleAlertAgainstActiveJobs(t *testing.T) {
	clk := testClock()
	s1 := domain.Skill{ID: 1, Name: "Go"}
	js := &fakeJobStore{jobs: []*domain.JobPosting{
		jobNamed(1, time.Hour, clk, s1),
		jobNamed(2, time.Hour, clk, domain.Skill{ID: 9, Name: "Cobol"}),
	}}
	// Store row carries the skill filter; the passed-in alert does not.
	full := &domain.AlertSubscription{
		ID: 1, Subscriber: subscriber(1), Active: true,
		Skills: []domain.Skill{s1},
	}
	as := &fakeAlertStore{alerts: []*domain.AlertSubscription{full}}
	n := &fakeNotifier{}
	o := newOrchestrator(js, as, n, clk)

	bare := &domain.AlertSubscription{ID: 1, Subscriber: subscriber(1), Active: true}
	o.notifyActivatedAlert(context.Background(), bare)

	digests := n.digests()
	if len(digests) != 1 {
		t.Fatalf("sent %d digests, want 1", len(digests))
	}
	if len(digests[0].jobNames) != 1 || digests[0].jobNames[0] != "job-1" {
		t.Errorf("digest = %v, want only the matching job-1", digests[0].jobNames)
	}
	if sent := o.Quota.SentToday(full); !sent[1] || len(sent) != 1 {
		t.Errorf("quota set = %v, want {1}", sent)
	}
}

func TestDailySweep_ClearsPreviousLedger(t *testing.T) {
	clk := testClock()
	js := &fakeJobStore{jobs: []*domain.JobPosting{jobNamed(1, time.Hour, clk)}}
	alert := &domain.AlertSubscription{ID: 1, Subscriber: subscriber(1), Active: true}
	as := &fakeAlertStore{alerts: []*domain.AlertSubscription{alert}}
	n := &fakeNotifier{}
	o := newOrchestrator(js, as, n, clk)

	// Pretend yesterday's process already notified job 1.
	o.Quota.MarkSent(alert, []int64{1})

	if err := o.RunDailySweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	// ClearAll ran first, so job 1 is eligible again and gets re-sent.
	if got := len(n.digests()); got != 1 {
		t.Errorf("sent %d digests, want 1 after ledger reset", got)
	}
}
