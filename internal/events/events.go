// Package events fans engine activity out to SSE subscribers.
package events

import (
	"encoding/json"
	"time"
)

const (
	TypeJobCreated     = "job_created"
	TypeAlertActivated = "alert_activated"
	TypeDigestSent     = "digest_sent"
	TypeSweepFinished  = "sweep_finished"
)

type Event struct {
	Type      string          `json:"type"`
	Version   int             `json:"v"`
	At        time.Time       `json:"at"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func MakeEvent(reqID, typ string, v int, data any) string {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	e := Event{
		Type:      typ,
		Version:   v,
		At:        time.Now().UTC(),
		RequestID: reqID,
		Data:      raw,
	}
	b, _ := json.Marshal(e)
	return string(b)
}

func JobCreated(jobID int64) string {
	return MakeEvent("", TypeJobCreated, 1, map[string]any{"id": jobID})
}

func AlertActivated(alertID int64) string {
	return MakeEvent("", TypeAlertActivated, 1, map[string]any{"id": alertID})
}

func DigestSent(alertID int64, jobIDs []int64, recipient string) string {
	return MakeEvent("", TypeDigestSent, 1, map[string]any{
		"alert_id":  alertID,
		"job_ids":   jobIDs,
		"recipient": recipient,
	})
}

func SweepFinished(alerts, digests int, took time.Duration) string {
	return MakeEvent("", TypeSweepFinished, 1, map[string]any{
		"alerts":  alerts,
		"digests": digests,
		"took_ms": took.Milliseconds(),
	})
}
