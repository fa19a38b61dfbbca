// Package quota tracks which jobs each subscriber has already been notified
// about today and enforces the per-day cap.
package quota

import (
	"fmt"

	"jobalert-engine/internal/domain"
)

// DailyCap is the most distinct jobs one alert may be notified about within a
// calendar day. Fixed policy, not a tunable.
const DailyCap = 3

// Tracker is the day's notification ledger, keyed (subscriber, date).
//
// TryReserve and Release exist so the fast path's check-cap-then-add is one
// guarded mutation: reserve before dispatching, release if the dispatch fails.
type Tracker interface {
	// SentToday returns a copy of the set of job ids already notified for the
	// alert's subscriber today. Empty map when nothing was sent.
	SentToday(alert *domain.AlertSubscription) map[int64]bool

	// MarkSent records the given jobs as notified, creating the entry lazily.
	MarkSent(alert *domain.AlertSubscription, jobIDs []int64)

	// TryReserve atomically adds jobID when the entry is below DailyCap and
	// does not already contain it. Reports whether the slot was taken.
	TryReserve(alert *domain.AlertSubscription, jobID int64) bool

	// Release undoes a reservation after a failed dispatch.
	Release(alert *domain.AlertSubscription, jobID int64)

	// TrySupersede replaces the lowest-scoring sent job with newJobID when the
	// entry is at DailyCap and newScore strictly beats that minimum.
	// sentScores maps each currently-sent job id to its score for this alert;
	// ids missing from it count as zero. Returns the removed id on success.
	TrySupersede(alert *domain.AlertSubscription, newJobID int64, newScore float64, sentScores map[int64]float64) (removed int64, ok bool)

	// ClearAll wipes every entry. Called once at the start of the daily sweep.
	ClearAll()
}

func dayKey(alert *domain.AlertSubscription, date string) string {
	var subscriberID int64
	if alert != nil {
		subscriberID = alert.Subscriber.ID
	}
	return fmt.Sprintf("%d_%s", subscriberID, date)
}

// lowestScored picks the sent job with the minimum score, breaking ties by
// the smaller id so concurrent evaluations agree on the victim.
func lowestScored(sent map[int64]bool, scores map[int64]float64) (id int64, min float64, found bool) {
	for jobID := range sent {
		s := scores[jobID]
		if !found || s < min || (s == min && jobID < id) {
			id, min, found = jobID, s, true
		}
	}
	return id, min, found
}
