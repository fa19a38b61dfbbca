package httpapi

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"jobalert-engine/internal/domain"
	"jobalert-engine/internal/quota"
	"jobalert-engine/internal/store"
)

type QuotaHandler struct {
	Quota  quota.Tracker
	Alerts *store.AlertStore
}

// GetByPath handles GET /quota/{subscriberID} and reports today's ledger for
// that subscriber.
func (h QuotaHandler) GetByPath(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/quota/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		WriteError(w, r, http.StatusBadRequest, "invalid_id", "invalid subscriber id")
		return
	}

	// The ledger is keyed by subscriber, so a probe alert is enough.
	probe := &domain.AlertSubscription{Subscriber: domain.Subscriber{ID: id}}
	sent := h.Quota.SentToday(probe)

	ids := make([]int64, 0, len(sent))
	for jobID := range sent {
		ids = append(ids, jobID)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })

	resp := map[string]any{
		"subscriber_id": id,
		"sent_today":    ids,
		"cap":           quota.DailyCap,
		"remaining":     max(0, quota.DailyCap-len(ids)),
	}
	if alert, err := h.Alerts.FindActiveAlertBySubscriber(r.Context(), id); err == nil && alert != nil {
		resp["alert_id"] = alert.ID
	}
	writeJSON(w, resp)
}
