// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/boardpulse/internal/apperr"
	"github.com/tomtom215/boardpulse/internal/logging"
	"github.com/tomtom215/boardpulse/internal/models"
)

// sanitizeLogValue removes control characters from strings before they reach
// the log stream, so request-supplied values cannot forge log entries.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// respondJSON sends a JSON response with proper headers
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondSuccess wraps data in the standard success envelope.
func respondSuccess(w http.ResponseWriter, status int, data interface{}) {
	respondJSON(w, status, &models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		logging.Error().Str("code", sanitizeLogValue(code)).Str("error", sanitizeLogValue(err.Error())).Msg("API Error")
	}

	respondJSON(w, status, &models.APIResponse{
		Status: "error",
		Data:   nil,
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
		Error: &models.APIError{
			Code:    code,
			Message: message,
		},
	})
}

// respondAppError maps domain errors to HTTP status codes. Anything that is
// not a known apperr type is treated as an internal error and logged with
// its cause; the cause is never echoed to the client.
func respondAppError(w http.ResponseWriter, err error) {
	var (
		notFound    *apperr.NotFoundError
		invalid     *apperr.ValidationError
		conflict    *apperr.ConflictError
		forbidden   *apperr.AuthorizationError
		unavailable *apperr.ServiceUnavailableError
	)

	switch {
	case errors.As(err, &notFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", notFound.Error(), nil)
	case errors.As(err, &invalid):
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", invalid.Error(), nil)
	case errors.As(err, &conflict):
		respondError(w, http.StatusConflict, "CONFLICT", conflict.Error(), nil)
	case errors.As(err, &forbidden):
		respondError(w, http.StatusForbidden, "AUTHORIZATION_ERROR", forbidden.Error(), nil)
	case errors.As(err, &unavailable):
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", unavailable.Error(), err)
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error", err)
	}
}
