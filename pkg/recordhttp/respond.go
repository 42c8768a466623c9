// Package recordhttp provides small HTTP helpers around the record package:
// JSON rendering, record-error-to-status mapping and pagination parsing.
package recordhttp

import (
	"errors"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/recordkit/pkg/record"
)

// WriteJSON writes a JSON response with proper error handling.
func WriteJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// WriteStatusJSON writes a JSON response with an explicit status code.
func WriteStatusJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// errorBody is the JSON shape of error responses.
type errorBody struct {
	Error string `json:"error"`
}

// RenderError maps a record error to an HTTP response: not found becomes 404,
// authorization failures 403, duplicate keys 409, everything else 500. The
// 500 path logs the cause and hides it from the client.
func RenderError(w http.ResponseWriter, err error) {
	switch {
	case record.IsNotFound(err):
		WriteStatusJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	case errors.Is(err, record.ErrNotAuthorized):
		WriteStatusJSON(w, http.StatusForbidden, errorBody{Error: "not authorized"})
	case record.IsDuplicate(err):
		WriteStatusJSON(w, http.StatusConflict, errorBody{Error: "duplicate"})
	default:
		log.Error().Err(err).Msg("Request failed")
		WriteStatusJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

// BadRequest writes a 400 with the given message.
func BadRequest(w http.ResponseWriter, msg string) {
	WriteStatusJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}
