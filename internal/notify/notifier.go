// Package notify delivers job digests to subscribers. The engine only knows
// the Notifier interface; delivery mechanics live behind it.
package notify

import (
	"context"

	"go.uber.org/zap"

	"jobalert-engine/internal/domain"
)

// Notifier sends one digest email. A nil error means the message was handed
// to the relay; only then may the quota ledger record the jobs as sent.
type Notifier interface {
	SendJobDigest(ctx context.Context, recipientEmail, recipientName string, jobs []domain.JobSummary) error
}

// LogNotifier stands in when email is disabled: it logs what would have been
// sent and reports success, so the rest of the engine behaves normally.
type LogNotifier struct {
	Log *zap.Logger
}

func (n LogNotifier) SendJobDigest(_ context.Context, recipientEmail, recipientName string, jobs []domain.JobSummary) error {
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.Name)
	}
	n.Log.Info("email disabled, digest not sent",
		zap.String("recipient", recipientEmail),
		zap.String("name", recipientName),
		zap.Strings("jobs", names),
	)
	return nil
}
