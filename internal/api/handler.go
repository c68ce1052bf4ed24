// Package api provides the local HTTP API the desk's browser UI calls.
package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/tasktide/desk/internal/client"
	"github.com/tasktide/desk/internal/metacache"
)

const maxBodyBytes = 1 << 20

// Handler serves the local API on top of the host adapter and the metadata
// cache.
type Handler struct {
	client *client.Client
	cache  *metacache.Cache
	logger *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(c *client.Client, cache *metacache.Cache, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{client: c, cache: cache, logger: logger}
}

// RegisterRoutes registers all /api routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/ready", h.GetReady)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Get("/session", h.GetSession)

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", h.ListTasks)
			r.Put("/", h.SaveTask)
			r.Get("/{taskID}", h.GetTask)
			r.Delete("/{taskID}", h.DeleteTask)
			r.Get("/{taskID}/milestones", h.ListMilestones)
			r.Put("/{taskID}/milestones", h.SaveMilestone)
			r.Get("/{taskID}/milestones/{milestoneID}", h.GetMilestone)
			r.Delete("/{taskID}/milestones/{milestoneID}", h.DeleteMilestone)
		})

		r.Get("/statuses", h.ListStatuses)
		r.Delete("/statuses/{description}", h.DeleteStatus)
		r.Get("/origins", h.ListOrigins)
		r.Delete("/origins/{description}", h.DeleteOrigin)
		r.Get("/categories", h.ListCategories)
		r.Get("/counts", h.GetCounts)

		r.Get("/meta/{key}", h.GetMeta)
		r.Put("/meta/{key}", h.PutMeta)
		r.Delete("/meta/{key}", h.DeleteMeta)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Raw writes an already-encoded JSON body.
func Raw(w http.ResponseWriter, status int, body json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// readJSONBody returns the request body if it is a single valid JSON value.
func readJSONBody(w http.ResponseWriter, r *http.Request) (json.RawMessage, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		Error(w, http.StatusRequestEntityTooLarge, "request body too large")
		return nil, false
	}
	if !json.Valid(body) {
		Error(w, http.StatusBadRequest, "request body must be JSON")
		return nil, false
	}
	return json.RawMessage(body), true
}

// pathParam returns a URL parameter as a plain string. chi matches on the
// escaped path when the request carries one, so only then is the value
// unescaped here.
func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v
	}
	if decoded, err := url.PathUnescape(v); err == nil {
		return decoded
	}
	return v
}
