// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/boardpulse/internal/models"
	"github.com/tomtom215/boardpulse/internal/validation"
)

// CreateSprintRequest is the body for POST /api/v1/sprints.
// EndDate may be omitted for an open-ended planned sprint; such a sprint
// cannot be started until an end date is set.
type CreateSprintRequest struct {
	ProjectID string     `json:"project_id" validate:"required,min=1,max=255"`
	Name      string     `json:"name" validate:"required,min=1,max=255"`
	Goal      string     `json:"goal" validate:"omitempty,max=2000"`
	StartDate time.Time  `json:"start_date" validate:"required"`
	EndDate   *time.Time `json:"end_date"`
}

// UpdateSprintRequest is the body for PUT /api/v1/sprints/{sprintID}.
// Nil fields are left unchanged.
type UpdateSprintRequest struct {
	Name      *string    `json:"name" validate:"omitempty,min=1,max=255"`
	Goal      *string    `json:"goal" validate:"omitempty,max=2000"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
}

// SprintIssuesRequest is the body for POST /api/v1/sprints/{sprintID}/issues.
type SprintIssuesRequest struct {
	IssueIDs []string `json:"issue_ids" validate:"required,min=1,max=500,dive,required"`
}

// AppendActivityRequest is the body for POST /api/v1/projects/{projectID}/activity.
// OccurredAt defaults to the server clock when omitted.
type AppendActivityRequest struct {
	ActionType string     `json:"action_type" validate:"required,min=1,max=100"`
	EntityType string     `json:"entity_type" validate:"required,min=1,max=100"`
	EntityID   string     `json:"entity_id" validate:"required,min=1,max=255"`
	OccurredAt *time.Time `json:"occurred_at"`
}

// TrendRequest holds the validated query parameters for the /trends endpoint.
type TrendRequest struct {
	Metric string `validate:"required,min=1,max=255"`
	From   string `validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	To     string `validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// ActivityQueryRequest holds the validated query parameters for listing activity.
type ActivityQueryRequest struct {
	Limit  int `validate:"min=1,max=1000"`
	Offset int `validate:"min=0,max=1000000"`
}

// validateRequest runs struct validation and converts failures to the API
// error format.
func validateRequest(v interface{}) *models.APIError {
	validationErr := validation.ValidateStruct(v)
	if validationErr == nil {
		return nil
	}

	apiErr := validationErr.ToAPIError()
	return &models.APIError{
		Code:    apiErr.Code,
		Message: apiErr.Message,
		Details: apiErr.Details,
	}
}

// getIntParam extracts an integer query parameter with a default value
func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// parseCommaSeparated parses a comma-separated string into a slice
func parseCommaSeparated(value string) []string {
	if value == "" {
		return nil
	}

	var result []string
	for _, part := range strings.Split(value, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
