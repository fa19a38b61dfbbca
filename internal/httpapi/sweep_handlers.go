package httpapi

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"
)

type SweepHandler struct {
	Engine      Engine
	SweepStatus *atomic.Value // httpapi.SweepStatus
}

func (h SweepHandler) Status(w http.ResponseWriter, r *http.Request) {
	st := h.SweepStatus.Load().(SweepStatus)
	writeJSON(w, st)
}

// Run triggers a full sweep off-request. A sweep already in flight is not
// stacked; the caller gets told to wait. The CompareAndSwap makes the
// running-check and the claim one step, so concurrent POSTs cannot both win.
func (h SweepHandler) Run(w http.ResponseWriter, r *http.Request) {
	st := h.SweepStatus.Load().(SweepStatus)
	claimed := SweepStatus{
		LastRunAt: time.Now().Format(time.RFC3339),
		Running:   true,
		LastError: "",
		LastOkAt:  st.LastOkAt,
	}
	if st.Running || !h.SweepStatus.CompareAndSwap(st, claimed) {
		writeJSON(w, map[string]any{"ok": false, "msg": "already running"})
		return
	}

	go func() {
		err := h.Engine.RunDailySweep(context.Background())

		now := time.Now().Format(time.RFC3339)
		next := h.SweepStatus.Load().(SweepStatus)
		next.Running = false
		next.LastRunAt = now
		if err != nil {
			next.LastError = err.Error()
		} else {
			next.LastError = ""
			next.LastOkAt = now
		}
		h.SweepStatus.Store(next)
	}()

	writeJSON(w, map[string]any{"ok": true})
}
