package httpapi

import "net/http"

// NewMux returns the raw mux so main() can still attach /shutdown (needs srv+token).
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	// Jobs
	jh := JobsHandler{Jobs: d.Jobs, Hub: d.Hub, Engine: d.Engine}
	mux.HandleFunc("/jobs", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:  jh.List,
		http.MethodPost: jh.Create,
	}))

	// Alerts
	ah := AlertsHandler{Alerts: d.Alerts, Jobs: d.Jobs, Engine: d.Engine}
	mux.HandleFunc("/alerts", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:  ah.List,
		http.MethodPost: ah.Create,
	}))
	mux.HandleFunc("/alerts/", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: ah.ToggleByPath, // expects /alerts/{id}/toggle
	}))

	// Sweep
	sw := SweepHandler{Engine: d.Engine, SweepStatus: d.SweepStatus}
	mux.HandleFunc("/sweep/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: sw.Status,
	}))
	mux.HandleFunc("/sweep/run", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: sw.Run,
	}))

	// Quota ledger
	qh := QuotaHandler{Quota: d.Quota, Alerts: d.Alerts}
	mux.HandleFunc("/quota/", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: qh.GetByPath, // expects /quota/{subscriberID}
	}))

	// Config
	ch := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
	}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Get,
		http.MethodPut: ch.Put,
	}))
	mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Path,
	}))

	// Secrets (use cfgVal, NOT a snapshot cfg)
	sh := SecretsHandler{CfgVal: d.CfgVal}
	mux.HandleFunc("/api/secrets/smtp", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: sh.SetSMTPPassword,
	}))

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	// DB maintenance
	dh := DBHandler{DB: d.Jobs.DB}
	mux.HandleFunc("/db/checkpoint", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: dh.Checkpoint,
	}))

	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: HealthHandler{}.Health,
	}))

	return mux
}
