package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/tasktide/desk/internal/client"
	"github.com/tasktide/desk/internal/metacache"
	"github.com/tasktide/desk/internal/shared"
)

// writeError maps adapter and cache failures to HTTP responses.
func writeError(w http.ResponseWriter, err error) {
	var storeErr *metacache.StoreError

	switch {
	case errors.Is(err, client.ErrAuthRequired):
		JSON(w, http.StatusUnauthorized, map[string]interface{}{"error": err.Error(), "reauth": true})
	case errors.Is(err, client.ErrAuthentication):
		Error(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, client.ErrRemote):
		Error(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		Error(w, http.StatusGatewayTimeout, "host did not answer in time")
	case errors.Is(err, context.Canceled):
		Error(w, http.StatusServiceUnavailable, "request canceled")
	case shared.IsSQLiteConflictError(err):
		Error(w, http.StatusServiceUnavailable, "local cache busy")
	case errors.As(err, &storeErr):
		Error(w, http.StatusInternalServerError, "local cache unavailable")
	default:
		Error(w, http.StatusBadGateway, "host bridge failure")
	}
}
