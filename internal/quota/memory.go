package quota

import (
	"sync"

	"jobalert-engine/internal/clock"
	"jobalert-engine/internal/domain"
)

// MemoryTracker keeps the ledger in process memory. A restart re-opens the
// day's quota for every subscriber; that limitation is accepted. Use
// RedisTracker when the ledger has to survive restarts.
type MemoryTracker struct {
	clock clock.Clock

	mu   sync.Mutex
	sent map[string]map[int64]bool
}

func NewMemoryTracker(c clock.Clock) *MemoryTracker {
	return &MemoryTracker{
		clock: c,
		sent:  make(map[string]map[int64]bool),
	}
}

func (t *MemoryTracker) SentToday(alert *domain.AlertSubscription) map[int64]bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[int64]bool)
	for id := range t.sent[dayKey(alert, t.clock.Today())] {
		out[id] = true
	}
	return out
}

func (t *MemoryTracker) MarkSent(alert *domain.AlertSubscription, jobIDs []int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	set := t.entry(alert)
	for _, id := range jobIDs {
		set[id] = true
	}
}

func (t *MemoryTracker) TryReserve(alert *domain.AlertSubscription, jobID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	set := t.entry(alert)
	if len(set) >= DailyCap || set[jobID] {
		return false
	}
	set[jobID] = true
	return true
}

func (t *MemoryTracker) Release(alert *domain.AlertSubscription, jobID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.sent[dayKey(alert, t.clock.Today())], jobID)
}

func (t *MemoryTracker) TrySupersede(alert *domain.AlertSubscription, newJobID int64, newScore float64, sentScores map[int64]float64) (int64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	set := t.entry(alert)
	if len(set) < DailyCap || set[newJobID] {
		return 0, false
	}
	victim, min, found := lowestScored(set, sentScores)
	if !found || newScore <= min {
		return 0, false
	}
	delete(set, victim)
	set[newJobID] = true
	return victim, true
}

func (t *MemoryTracker) ClearAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sent = make(map[string]map[int64]bool)
}

// entry returns the live set for the alert's subscriber/day. Callers must
// hold t.mu.
func (t *MemoryTracker) entry(alert *domain.AlertSubscription) map[int64]bool {
	key := dayKey(alert, t.clock.Today())
	set, ok := t.sent[key]
	if !ok {
		set = make(map[int64]bool)
		t.sent[key] = set
	}
	return set
}
