package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"jobalert-engine/internal/events"
	"jobalert-engine/internal/store"
)

type JobsHandler struct {
	Jobs   *store.JobStore
	Hub    *events.Hub
	Engine Engine
}

func (h JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.Jobs.FindActiveJobs(r.Context())
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	writeJSON(w, jobs)
}

type createJobReq struct {
	Name        string   `json:"name"`
	CompanyName string   `json:"company_name"`
	Location    string   `json:"location"`
	Salary      float64  `json:"salary"`
	Level       string   `json:"level"`
	Category    string   `json:"category"`
	Skills      []string `json:"skills"`
	Active      *bool    `json:"active"`
	ExpiresAt   string   `json:"expires_at"` // RFC3339, optional
}

// Create stores a posting and hands it to the fast path. The response does not
// wait for notifications; a delivery problem must not fail the insert.
func (h JobsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createJobReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		WriteError(w, r, http.StatusBadRequest, "invalid_job", "name is required")
		return
	}

	ins := store.JobInsert{
		Name:        strings.TrimSpace(req.Name),
		CompanyName: strings.TrimSpace(req.CompanyName),
		Location:    strings.TrimSpace(req.Location),
		Salary:      req.Salary,
		Level:       strings.ToUpper(strings.TrimSpace(req.Level)),
		Active:      true,
	}
	if req.Active != nil {
		ins.Active = *req.Active
	}
	if req.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			WriteError(w, r, http.StatusBadRequest, "invalid_job", "expires_at must be RFC3339")
			return
		}
		ins.ExpiresAt = &t
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

	id, err := h.Jobs.InsertJob(r.Context(), ins)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}

	job, err := h.Jobs.FindJobWithSkills(r.Context(), id)
	if err != nil || job == nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", "reload inserted job failed")
		return
	}

	h.Hub.Publish(events.JobCreated(job.ID))
	if job.Active {
		h.Engine.OnJobCreated(job)
	}
	WriteJSON(w, http.StatusCreated, job)
}
