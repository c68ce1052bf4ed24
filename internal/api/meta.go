package api

import (
	"net/http"
)

// GetMeta returns a cached UI metadata value.
func (h *Handler) GetMeta(w http.ResponseWriter, r *http.Request) {
	key := pathParam(r, "key")
	raw, ok, err := h.cache.GetMeta(r.Context(), key)
	if err != nil {
		h.logger.Error("Failed to read meta", "key", key, "error", err)
		writeError(w, err)
		return
	}
	if !ok {
		Error(w, http.StatusNotFound, "no value for key")
		return
	}
	Raw(w, http.StatusOK, raw)
}

// PutMeta stores the JSON body under key.
func (h *Handler) PutMeta(w http.ResponseWriter, r *http.Request) {
	body, ok := readJSONBody(w, r)
	if !ok {
		return
	}
	key := pathParam(r, "key")
	if err := h.cache.PutMeta(r.Context(), key, body); err != nil {
		h.logger.Error("Failed to write meta", "key", key, "error", err)
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteMeta removes key.
func (h *Handler) DeleteMeta(w http.ResponseWriter, r *http.Request) {
	key := pathParam(r, "key")
	if err := h.cache.DeleteMeta(r.Context(), key); err != nil {
		h.logger.Error("Failed to delete meta", "key", key, "error", err)
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
