package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"jobalert-engine/internal/store"
)

type AlertsHandler struct {
	Alerts *store.AlertStore
	Jobs   *store.JobStore
	Engine Engine
}

func (h AlertsHandler) List(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.Alerts.FindActiveAlertsWithCriteria(r.Context())
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	writeJSON(w, alerts)
}

type createAlertReq struct {
	Email         string   `json:"email"`
	Name          string   `json:"name"`
	Location      string   `json:"location"`
	Experience    string   `json:"experience"`
	Category      string   `json:"category"`
	DesiredSalary *float64 `json:"desired_salary"`
	MinSalary     *float64 `json:"min_salary"`
	MaxSalary     *float64 `json:"max_salary"`
	Skills        []string `json:"skills"`
	Active        *bool    `json:"active"`
}

// Create registers a subscription. An active alert is immediately evaluated
// against the current job set, same as an inactive->active toggle.
func (h AlertsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAlertReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		WriteError(w, r, http.StatusBadRequest, "invalid_alert", "email is required")
		return
	}

	subID, err := h.Alerts.UpsertSubscriber(r.Context(), req.Email, strings.TrimSpace(req.Name))
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}

	ins := store.AlertInsert{
		SubscriberID:  subID,
		Email:         strings.TrimSpace(req.Email),
		Location:      strings.TrimSpace(req.Location),
		Experience:    strings.ToUpper(strings.TrimSpace(req.Experience)),
		DesiredSalary: req.DesiredSalary,
		MinSalary:     req.MinSalary,
		MaxSalary:     req.MaxSalary,
		Active:        true,
	}
	if req.Active != nil {
		ins.Active = *req.Active
	}
	if c := strings.TrimSpace(req.Category); c != "" {
		id, err := h.Jobs.UpsertCategory(r.Context(), c)
		if err != nil {
			WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
			return
		}
		ins.CategoryID = &id
	}
	for _, name := range req.Skills {
		id, err := h.Jobs.UpsertSkill(r.Context(), name)
		if err != nil {
			WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
			return
		}
		ins.SkillIDs = append(ins.SkillIDs, id)
	}

	id, err := h.Alerts.InsertAlert(r.Context(), ins)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}

	alert, err := h.Alerts.FindAlertWithCriteria(r.Context(), id)
	if err != nil || alert == nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", "reload inserted alert failed")
		return
	}

	if alert.Active {
		h.Engine.OnAlertActivated(alert)
	}
	WriteJSON(w, http.StatusCreated, alert)
}

type toggleAlertReq struct {
	Active bool `json:"active"`
}

// ToggleByPath handles POST /alerts/{id}/toggle. Only an actual
// inactive->active transition fires the activation path; re-activating an
// already active alert is a no-op.
func (h AlertsHandler) ToggleByPath(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/alerts/")
	idStr, action, ok := strings.Cut(rest, "/")
	if !ok || action != "toggle" {
		WriteError(w, r, http.StatusNotFound, "not_found", "unknown alert action")
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		WriteError(w, r, http.StatusBadRequest, "invalid_id", "invalid alert id")
		return
	}

	var req toggleAlertReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	changed, err := h.Alerts.SetActive(r.Context(), id, req.Active)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}

	if changed && req.Active {
		alert, err := h.Alerts.FindAlertWithCriteria(r.Context(), id)
		if err == nil && alert != nil {
			h.Engine.OnAlertActivated(alert)
		}
	}
	writeJSON(w, map[string]any{"ok": true, "id": id, "active": req.Active, "changed": changed})
}
