// Package httpapi exposes the storefront's JSON API.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fairyhunter13/sneaker-drop-storefront/internal/backend"
	"github.com/fairyhunter13/sneaker-drop-storefront/internal/catalog"
	"github.com/fairyhunter13/sneaker-drop-storefront/internal/storefront"
	"github.com/fairyhunter13/sneaker-drop-storefront/internal/waitlist"
)

// jsonError represents a JSON error payload.
type jsonError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// WriteJSONError writes a JSON error payload with the given status code.
func WriteJSONError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(jsonError{Error: message, Details: details})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDomainError maps storefront errors onto status codes and error codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storefront.ErrSizeRequired):
		WriteJSONError(w, http.StatusBadRequest, "size_required", err.Error())
	case errors.Is(err, storefront.ErrSizeNotOffered):
		WriteJSONError(w, http.StatusBadRequest, "size_not_offered", err.Error())
	case errors.Is(err, storefront.ErrProductNotFound):
		WriteJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, storefront.ErrNoWaitlist):
		WriteJSONError(w, http.StatusNotFound, "no_waitlist", err.Error())
	case errors.Is(err, waitlist.ErrEmailRequired), errors.Is(err, waitlist.ErrInvalidEmail):
		WriteJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, waitlist.ErrBusy):
		WriteJSONError(w, http.StatusConflict, "busy", err.Error())
	case errors.Is(err, waitlist.ErrClosed):
		WriteJSONError(w, http.StatusConflict, "waitlist_closed", err.Error())
	case errors.Is(err, waitlist.ErrSubmitFailed):
		WriteJSONError(w, http.StatusBadGateway, "waitlist_submit_failed", waitlist.ErrSubmitFailed.Error())
	case errors.Is(err, catalog.ErrClosed), errors.Is(err, storefront.ErrSessionClosed):
		WriteJSONError(w, http.StatusServiceUnavailable, "shutting_down", "")
	case errors.Is(err, backend.ErrUnavailable):
		WriteJSONError(w, http.StatusServiceUnavailable, "backend_unavailable", "")
	default:
		WriteJSONError(w, http.StatusInternalServerError, "internal_error", "")
	}
}
