package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
)

type lookupFunc func(ctx context.Context, onlyActive bool) (json.RawMessage, error)

func (h *Handler) serveLookup(w http.ResponseWriter, r *http.Request, fn lookupFunc) {
	onlyActive := false
	if v := r.URL.Query().Get("active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			Error(w, http.StatusBadRequest, "active must be a boolean")
			return
		}
		onlyActive = b
	}

	raw, err := fn(r.Context(), onlyActive)
	if err != nil {
		writeError(w, err)
		return
	}
	Raw(w, http.StatusOK, raw)
}

// ListStatuses returns distinct status values.
func (h *Handler) ListStatuses(w http.ResponseWriter, r *http.Request) {
	h.serveLookup(w, r, h.client.Statuses)
}

// ListOrigins returns distinct origin values.
func (h *Handler) ListOrigins(w http.ResponseWriter, r *http.Request) {
	h.serveLookup(w, r, h.client.FromValues)
}

// ListCategories returns distinct categories.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	h.serveLookup(w, r, h.client.Categories)
}

// DeleteStatus removes a status value.
func (h *Handler) DeleteStatus(w http.ResponseWriter, r *http.Request) {
	raw, err := h.client.DeleteStatus(r.Context(), pathParam(r, "description"))
	if err != nil {
		writeError(w, err)
		return
	}
	Raw(w, http.StatusOK, raw)
}

// DeleteOrigin removes an origin value.
func (h *Handler) DeleteOrigin(w http.ResponseWriter, r *http.Request) {
	raw, err := h.client.DeleteFromValue(r.Context(), pathParam(r, "description"))
	if err != nil {
		writeError(w, err)
		return
	}
	Raw(w, http.StatusOK, raw)
}
