// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

/*
sprint.go - Sprint Lifecycle Models

Key Structures:
  - Sprint: a time-boxed container of issues with a three-state lifecycle
  - SprintIssue: the sprint<->issue membership edge
  - SprintStatus: Planned -> Active -> Completed (terminal, no skips, no backward moves)

Invariants (enforced by internal/sprints.Manager, not by these types):
  - No two sprints in a project may have overlapping [StartDate, EndDate] intervals
  - An issue belongs to at most one sprint at any time
*/

package models

import (
	"time"

	"github.com/google/uuid"
)

// SprintStatus is the lifecycle state of a sprint.
type SprintStatus string

const (
	// SprintPlanned is the initial state. Dates and goal may still be edited.
	SprintPlanned SprintStatus = "Planned"

	// SprintActive means the sprint has started. StartDate holds the actual
	// transition instant, not the originally planned date.
	SprintActive SprintStatus = "Active"

	// SprintCompleted is terminal.
	SprintCompleted SprintStatus = "Completed"
)

// ValidSprintStatuses contains all valid sprint statuses for validation.
var ValidSprintStatuses = []SprintStatus{SprintPlanned, SprintActive, SprintCompleted}

// IsValidSprintStatus checks if a status value is valid.
func IsValidSprintStatus(s SprintStatus) bool {
	for _, v := range ValidSprintStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the status may move to next. Transitions
// never skip a state and never move backward.
func (s SprintStatus) CanTransitionTo(next SprintStatus) bool {
	switch s {
	case SprintPlanned:
		return next == SprintActive
	case SprintActive:
		return next == SprintCompleted
	default:
		return false
	}
}

// Sprint is a time-boxed container of issues.
type Sprint struct {
	ID        string       `json:"id"`
	ProjectID string       `json:"project_id"`
	Name      string       `json:"name"`
	Goal      string       `json:"goal,omitempty"`
	StartDate time.Time    `json:"start_date"`
	EndDate   *time.Time   `json:"end_date,omitempty"`
	Status    SprintStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// NewSprint creates a Planned sprint with a generated ID.
func NewSprint(projectID, name, goal string, startDate time.Time, endDate *time.Time) *Sprint {
	now := time.Now().UTC()
	return &Sprint{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Name:      name,
		Goal:      goal,
		StartDate: startDate,
		EndDate:   endDate,
		Status:    SprintPlanned,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Overlaps reports whether the sprint's [StartDate, EndDate] interval
// intersects the given interval. Bounds are inclusive on both ends.
// A sprint without an end date never participates in overlap checks.
func (s *Sprint) Overlaps(start time.Time, end time.Time) bool {
	if s.EndDate == nil {
		return false
	}
	return !s.StartDate.After(end) && !start.After(*s.EndDate)
}

// SprintIssue is the membership edge between an issue and a sprint.
// Primary key is (IssueID, SprintID); the single-membership invariant means
// at most one edge per issue exists at any time.
type SprintIssue struct {
	IssueID  string    `json:"issue_id"`
	SprintID string    `json:"sprint_id"`
	AddedAt  time.Time `json:"added_at"`
	AddedBy  string    `json:"added_by,omitempty"`
}

// IssueSummary is the projection of an issue returned by the external Issue
// service. BoardPulse never stores issues; it only validates their existence
// and forwards their IDs.
type IssueSummary struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Title     string `json:"title"`
	Status    string `json:"status,omitempty"`
}
