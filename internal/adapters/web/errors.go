package web

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"livestock-purchasing/internal/backend"
	"livestock-purchasing/internal/core"
)

// envelope is the success shape every endpoint answers with.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type errorResponse struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message"`
	Code      string            `json:"code"`
	Errors    map[string]string `json:"errors,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	writeJSON(w, status, errorResponse{
		Message:   message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	})
}

// writeServiceError maps a backend failure to an HTTP status. Unexpected
// errors are logged and hidden from the caller.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Message:   ve.Error(),
			Code:      "VALIDATION_FAILED",
			Errors:    ve.Fields,
			RequestID: requestIDFromContext(r.Context()),
		})
	case errors.Is(err, backend.ErrNotFound):
		writeError(w, r, err.Error(), "NOT_FOUND", http.StatusNotFound)
	default:
		log.Printf("%s: %v (request %s)", op, err, requestIDFromContext(r.Context()))
		writeError(w, r, "failed to "+op, "INTERNAL_ERROR", http.StatusInternalServerError)
	}
}

// writeOK wraps data in a success envelope.
func writeOK(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
