package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/joestump/joe-gate/internal/store"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeError writes a JSON error response with the given HTTP status code.
func writeError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{Error: message, Code: code})
}

// writeStoreError maps a link store error onto the error taxonomy.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *store.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusUnprocessableEntity, verr.Error(), "VALIDATION_ERROR")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "link not found", "NOT_FOUND")
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("link store")
		writeError(w, http.StatusInternalServerError, "internal error", "INTERNAL_ERROR")
	}
}

// writeJSON writes a JSON response with the given HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
