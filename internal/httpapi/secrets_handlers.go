package httpapi

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"jobalert-engine/internal/config"
	"jobalert-engine/internal/secrets"
)

type SecretsHandler struct {
	CfgVal *atomic.Value // stores config.Config
}

type setSMTPPasswordReq struct {
	Password string `json:"password"`
}

func (h SecretsHandler) SetSMTPPassword(w http.ResponseWriter, r *http.Request) {
	var req setSMTPPasswordReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	cfg := h.CfgVal.Load().(config.Config)
	account := secrets.SMTPKeyringAccount(cfg.Email.Username, cfg.Email.SMTPHost)
	if err := secrets.SetSMTPPassword(account, req.Password); err != nil {
		http.Error(w, "failed to store password: "+err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
