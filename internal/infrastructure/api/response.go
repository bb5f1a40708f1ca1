package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"shopify-reorder/internal/domain"

	"github.com/rs/zerolog/hlog"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Details   string `json:"details,omitempty"`
	Timestamp string `json:"timestamp"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err onto the error envelope. Only upstream failures expose
// details; internal causes stay in the log.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := ErrorResponse{
		Error:     "Internal server error",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	kind := domain.KindInternal

	var derr *domain.Error
	if errors.As(err, &derr) {
		kind = derr.Kind
		resp.Error = derr.Message
		if kind == domain.KindUpstream {
			resp.Details = derr.Details
		}
	}
	status := statusFor(kind)

	event := hlog.FromRequest(r).Warn()
	if status >= http.StatusInternalServerError {
		event = hlog.FromRequest(r).Error()
	}
	event.Err(err).Str("kind", kind.String()).Int("status", status).Msg("Request failed")

	writeJSON(w, status, resp)
}
