package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"example.com/booking/internal/domain"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// errorMappings is checked in order with errors.Is.
var errorMappings = []errorMapping{
	{domain.ErrInvalidConsumer, http.StatusBadRequest, "invalid_consumer"},
	{domain.ErrInvalidProvider, http.StatusBadRequest, "invalid_provider"},
	{domain.ErrInvalidSchedule, http.StatusBadRequest, "validation_failed"},
	{domain.ErrInvalidInput, http.StatusBadRequest, "validation_failed"},
	{domain.ErrActivityNotFound, http.StatusNotFound, "activity_not_found"},
	{domain.ErrEnrollmentNotFound, http.StatusNotFound, "enrollment_not_found"},
	{domain.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
	{domain.ErrActivityClosed, http.StatusConflict, "activity_closed"},
	{domain.ErrDuplicateEnrollment, http.StatusConflict, "duplicate_enrollment"},
	{domain.ErrCapacityExceeded, http.StatusConflict, "capacity_exceeded"},
	{domain.ErrDuplicateTitle, http.StatusConflict, "duplicate_title"},
	{domain.ErrEmailTaken, http.StatusConflict, "email_taken"},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
}

// writeDomainError renders err with the status its kind maps to. Anything
// unrecognised is logged and reported as a generic server error.
func writeDomainError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	var verr *validationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"type":       "validation_failed",
			"detail":     "request validation failed",
			"violations": verr.violations,
		})
		return
	}
	if errors.Is(err, errMalformedBody) {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			writeError(w, m.status, m.code, err.Error())
			return
		}
	}

	logger.Error().Err(err).Msg("request failed")
	writeError(w, http.StatusInternalServerError, "server_error", "internal error, please retry")
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
