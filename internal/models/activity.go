// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

/*
activity.go - Activity Log Models

The activity log is the append-only source of truth for "what happened when".
Entries are never mutated or deleted; every analytics projection is derived
from them.

Action-type strings double as lifecycle events ("Created", "Deleted") and
board-column names ("IN_PROGRESS", "DONE"). The analytics engine treats the
chronologically latest status-like entry per issue as that issue's current
status.
*/

package models

import (
	"time"

	"github.com/google/uuid"
)

// Lifecycle action types.
const (
	ActivityCreated = "Created"
	ActivityDeleted = "Deleted"
	ActivityUpdated = "Updated"
)

// Board-column action types. An entry with one of these action types records
// the issue moving into that column.
const (
	StatusSelectedForDevelopment = "SELECTED_FOR_DEVELOPMENT"
	StatusInProgress             = "IN_PROGRESS"
	StatusCodeReview             = "CODE_REVIEW"
	StatusQA                     = "QA"
	StatusStaging                = "STAGING"
	StatusDone                   = "DONE"
)

// StatusActionTypes is the fixed whitelist of action types that count as a
// status for the current-status projection. ActivityCreated is included so an
// issue that never transitioned reads as "still in todo".
var StatusActionTypes = []string{
	StatusSelectedForDevelopment,
	StatusInProgress,
	StatusCodeReview,
	StatusQA,
	StatusStaging,
	StatusDone,
	ActivityCreated,
}

// Entity types recorded in the log.
const (
	EntityTypeIssue   = "Issue"
	EntityTypeSprint  = "Sprint"
	EntityTypeProject = "Project"
	EntityTypeComment = "Comment"
)

// ActivityLogEntry is a single immutable fact in the activity log.
type ActivityLogEntry struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"project_id"`
	UserID     string    `json:"user_id"`
	ActionType string    `json:"action_type"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewActivityLogEntry creates an entry with a generated ID and the current
// UTC timestamp.
func NewActivityLogEntry(projectID, userID, actionType, entityType, entityID string) *ActivityLogEntry {
	return &ActivityLogEntry{
		ID:         uuid.New().String(),
		ProjectID:  projectID,
		UserID:     userID,
		ActionType: actionType,
		EntityType: entityType,
		EntityID:   entityID,
		CreatedAt:  time.Now().UTC(),
	}
}

// ActivityFilter narrows activity log queries. Zero values mean "no filter".
type ActivityFilter struct {
	ProjectID  string
	UserID     string
	EntityType string
	EntityID   string
	ActionType string
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}
