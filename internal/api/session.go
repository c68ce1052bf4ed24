package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/tasktide/desk/internal/domain"
)

// GetReady reports whether the host bridge is callable.
func (h *Handler) GetReady(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{"ready": h.client.Ready()})
}

// Login authenticates against the host.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	body, ok := readJSONBody(w, r)
	if !ok {
		return
	}
	var creds domain.Credentials
	if err := json.Unmarshal(body, &creds); err != nil || creds.Username == "" {
		Error(w, http.StatusBadRequest, "username and password are required")
		return
	}

	result, err := h.client.Login(r.Context(), creds.Username, creds.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	JSON(w, http.StatusOK, result)
}

// Logout clears the session.
func (h *Handler) Logout(w http.ResponseWriter, _ *http.Request) {
	h.client.Logout()
	w.WriteHeader(http.StatusNoContent)
}

// GetSession describes the current session.
func (h *Handler) GetSession(w http.ResponseWriter, _ *http.Request) {
	username, ok := h.client.Username()
	resp := map[string]interface{}{
		"authenticated": ok,
		"username":      nil,
	}
	if ok {
		resp["username"] = username
	}
	if exp, ok := h.client.Session().ExpiresAt(); ok {
		resp["expires_at"] = exp.UTC().Format(time.RFC3339)
	}
	JSON(w, http.StatusOK, resp)
}
