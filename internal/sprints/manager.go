// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

/*
manager.go - Sprint Lifecycle Manager

Sprint state moves Planned -> Active -> Completed, never backward and never
skipping a state. Sprints in one project may not overlap in time; bounds are
inclusive, so sharing a boundary day is a conflict.

An issue belongs to at most one sprint. "Adding" issues to a sprint is
therefore a move: every listed issue is first removed from whichever sprint
currently holds it, then inserted into the target. Concurrent moves of the
same issue are last-writer-wins.

Starting a sprint notifies the external issue service synchronously; if that
notification fails, the sprint stays Planned. No partial Active state is
persisted.
*/

package sprints

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/boardpulse/internal/apperr"
	"github.com/tomtom215/boardpulse/internal/database"
	"github.com/tomtom215/boardpulse/internal/logging"
	"github.com/tomtom215/boardpulse/internal/models"
)

// SprintStore is the persistence surface the manager drives.
type SprintStore interface {
	InsertSprint(ctx context.Context, s *models.Sprint) error
	GetSprint(ctx context.Context, sprintID string) (*models.Sprint, error)
	UpdateSprint(ctx context.Context, s *models.Sprint) error
	TransitionSprintStatus(ctx context.Context, sprintID string, from, to models.SprintStatus, newStart *time.Time) (bool, error)
	DeleteSprint(ctx context.Context, sprintID string) error
	ListSprintsByProject(ctx context.Context, projectID string) ([]*models.Sprint, error)
	OverlappingSprints(ctx context.Context, projectID string, intervalStart, intervalEnd time.Time, excludeID string) ([]*models.Sprint, error)
	PlannedSprintsDueBy(ctx context.Context, now time.Time) ([]*models.Sprint, error)
	ActiveSprintsExpiredBy(ctx context.Context, now time.Time) ([]*models.Sprint, error)
	MoveIssuesToSprint(ctx context.Context, sprintID, addedBy string, issueIDs []string) error
	RemoveIssueFromSprint(ctx context.Context, sprintID, issueID string) error
	IssueIDsBySprint(ctx context.Context, sprintID string) ([]string, error)
	SprintIDByIssue(ctx context.Context, issueID string) (string, error)
}

// Authorizer gates user-facing membership operations.
type Authorizer interface {
	HasPermission(ctx context.Context, userID, projectID string, perm models.Permission) error
}

var sprintManage = models.Permission{Entity: models.EntitySprint, Action: models.ActionManage}

// Manager implements the sprint lifecycle.
type Manager struct {
	store  SprintStore
	issues IssueProvider
	authz  Authorizer

	// now is replaceable in tests.
	now func() time.Time
}

// NewManager builds a Manager.
func NewManager(store SprintStore, issues IssueProvider, authz Authorizer) *Manager {
	return &Manager{
		store:  store,
		issues: issues,
		authz:  authz,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateSprint creates a Planned sprint after validating date ordering and
// project-wide non-overlap.
func (m *Manager) CreateSprint(ctx context.Context, projectID, name, goal string, startDate time.Time, endDate *time.Time) (*models.Sprint, error) {
	if err := m.validateDates(ctx, projectID, startDate, endDate, ""); err != nil {
		return nil, err
	}

	sprint := models.NewSprint(projectID, name, goal, startDate, endDate)
	if err := m.store.InsertSprint(ctx, sprint); err != nil {
		return nil, fmt.Errorf("create sprint: %w", err)
	}

	logging.Info().
		Str("sprint_id", sprint.ID).
		Str("project_id", projectID).
		Str("name", name).
		Msg("Sprint created")
	return sprint, nil
}

// SprintUpdate carries the mutable fields of UpdateSprint. Nil pointers leave
// the current value in place.
type SprintUpdate struct {
	Name      *string
	Goal      *string
	StartDate *time.Time
	EndDate   *time.Time
}

// UpdateSprint applies the update and re-validates dates whenever either
// bound changes, excluding the sprint itself from the overlap check.
func (m *Manager) UpdateSprint(ctx context.Context, sprintID string, update SprintUpdate) (*models.Sprint, error) {
	sprint, err := m.getSprint(ctx, sprintID)
	if err != nil {
		return nil, err
	}

	datesChanged := false
	if update.Name != nil {
		sprint.Name = *update.Name
	}
	if update.Goal != nil {
		sprint.Goal = *update.Goal
	}
	if update.StartDate != nil {
		sprint.StartDate = *update.StartDate
		datesChanged = true
	}
	if update.EndDate != nil {
		sprint.EndDate = update.EndDate
		datesChanged = true
	}

	if datesChanged {
		if err := m.validateDates(ctx, sprint.ProjectID, sprint.StartDate, sprint.EndDate, sprint.ID); err != nil {
			return nil, err
		}
	}

	sprint.UpdatedAt = m.now()
	if err := m.store.UpdateSprint(ctx, sprint); err != nil {
		if errors.Is(err, database.ErrSprintNotFound) {
			return nil, apperr.NotFound("sprint", sprintID)
		}
		return nil, fmt.Errorf("update sprint %s: %w", sprintID, err)
	}
	return sprint, nil
}

// DeleteSprint removes the sprint and all of its issue memberships. The
// member issues return to the backlog implicitly.
func (m *Manager) DeleteSprint(ctx context.Context, sprintID string) error {
	if err := m.store.DeleteSprint(ctx, sprintID); err != nil {
		if errors.Is(err, database.ErrSprintNotFound) {
			return apperr.NotFound("sprint", sprintID)
		}
		return fmt.Errorf("delete sprint %s: %w", sprintID, err)
	}
	logging.Info().Str("sprint_id", sprintID).Msg("Sprint deleted")
	return nil
}

// GetSprint returns one sprint.
func (m *Manager) GetSprint(ctx context.Context, sprintID string) (*models.Sprint, error) {
	return m.getSprint(ctx, sprintID)
}

// ListSprints returns all sprints in a project ordered by start date.
func (m *Manager) ListSprints(ctx context.Context, projectID string) ([]*models.Sprint, error) {
	sprints, err := m.store.ListSprintsByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list sprints for project %s: %w", projectID, err)
	}
	return sprints, nil
}

// StartSprint activates a Planned sprint. The planned start date is
// discarded: the stored start becomes the actual transition instant. When
// the sprint has members, the issue service is notified first and its
// failure aborts the transition.
func (m *Manager) StartSprint(ctx context.Context, sprintID string) (*models.Sprint, error) {
	return m.startSprintAt(ctx, sprintID, m.now())
}

// startSprintAt is StartSprint with an explicit transition instant, so the
// scheduler can stamp its tick time.
func (m *Manager) startSprintAt(ctx context.Context, sprintID string, at time.Time) (*models.Sprint, error) {
	sprint, err := m.getSprint(ctx, sprintID)
	if err != nil {
		return nil, err
	}

	if !sprint.Status.CanTransitionTo(models.SprintActive) {
		return nil, apperr.Validation("status",
			fmt.Sprintf("cannot start sprint in status %s", sprint.Status))
	}
	if sprint.EndDate == nil {
		return nil, apperr.Validation("end_date", "sprint cannot start without an end date")
	}

	issueIDs, err := m.store.IssueIDsBySprint(ctx, sprintID)
	if err != nil {
		return nil, fmt.Errorf("load sprint membership: %w", err)
	}

	if len(issueIDs) > 0 {
		if _, err := m.issues.StartSprint(ctx, sprint.ProjectID, issueIDs); err != nil {
			return nil, apperr.ServiceUnavailable("issue-service",
				fmt.Errorf("sprint start notification: %w", err))
		}
	}

	actualStart := at
	ok, err := m.store.TransitionSprintStatus(ctx, sprintID, models.SprintPlanned, models.SprintActive, &actualStart)
	if err != nil {
		return nil, fmt.Errorf("activate sprint %s: %w", sprintID, err)
	}
	if !ok {
		// Another instance won the race; whatever state it left is the truth.
		return nil, apperr.Conflict("sprint %s was concurrently transitioned", sprintID)
	}

	sprint.Status = models.SprintActive
	sprint.StartDate = actualStart
	logging.Info().
		Str("sprint_id", sprintID).
		Str("project_id", sprint.ProjectID).
		Int("issues", len(issueIDs)).
		Time("started_at", actualStart).
		Msg("Sprint started")
	return sprint, nil
}

// CompleteSprint flips an Active sprint to Completed. Completion has no
// downstream coupling, asymmetric with start.
func (m *Manager) CompleteSprint(ctx context.Context, sprintID string) (*models.Sprint, error) {
	sprint, err := m.getSprint(ctx, sprintID)
	if err != nil {
		return nil, err
	}

	if !sprint.Status.CanTransitionTo(models.SprintCompleted) {
		return nil, apperr.Validation("status",
			fmt.Sprintf("cannot complete sprint in status %s", sprint.Status))
	}

	ok, err := m.store.TransitionSprintStatus(ctx, sprintID, models.SprintActive, models.SprintCompleted, nil)
	if err != nil {
		return nil, fmt.Errorf("complete sprint %s: %w", sprintID, err)
	}
	if !ok {
		return nil, apperr.Conflict("sprint %s was concurrently transitioned", sprintID)
	}

	sprint.Status = models.SprintCompleted
	logging.Info().Str("sprint_id", sprintID).Msg("Sprint completed")
	return sprint, nil
}

// AddIssuesToSprint moves the listed issues into the sprint. Requires
// SPRINT:MANAGE. Validation is all-or-nothing: any ID unknown to the issue
// service aborts the whole batch with a NotFoundError listing every missing
// ID.
func (m *Manager) AddIssuesToSprint(ctx context.Context, userID, sprintID string, issueIDs []string) error {
	sprint, err := m.getSprint(ctx, sprintID)
	if err != nil {
		return err
	}
	if err := m.authz.HasPermission(ctx, userID, sprint.ProjectID, sprintManage); err != nil {
		return err
	}
	if len(issueIDs) == 0 {
		return nil
	}

	missing, err := m.missingIssueIDs(ctx, issueIDs)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return apperr.NotFoundBatch("issue", missing)
	}

	if err := m.store.MoveIssuesToSprint(ctx, sprintID, userID, issueIDs); err != nil {
		return fmt.Errorf("move issues to sprint %s: %w", sprintID, err)
	}

	logging.Info().
		Str("sprint_id", sprintID).
		Str("user_id", userID).
		Int("issues", len(issueIDs)).
		Msg("Issues moved to sprint")
	return nil
}

// missingIssueIDs batch-validates issue existence against the issue service.
func (m *Manager) missingIssueIDs(ctx context.Context, issueIDs []string) ([]string, error) {
	summaries, err := m.issues.GetIssuesByIDs(ctx, issueIDs)
	if err != nil {
		return nil, apperr.ServiceUnavailable("issue-service",
			fmt.Errorf("issue batch validation: %w", err))
	}

	found := make(map[string]bool, len(summaries))
	for _, s := range summaries {
		found[s.ID] = true
	}

	var missing []string
	for _, id := range issueIDs {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// RemoveIssueFromSprint removes one membership edge. Requires SPRINT:MANAGE.
func (m *Manager) RemoveIssueFromSprint(ctx context.Context, userID, sprintID, issueID string) error {
	sprint, err := m.getSprint(ctx, sprintID)
	if err != nil {
		return err
	}
	if err := m.authz.HasPermission(ctx, userID, sprint.ProjectID, sprintManage); err != nil {
		return err
	}

	if err := m.store.RemoveIssueFromSprint(ctx, sprintID, issueID); err != nil {
		if errors.Is(err, database.ErrMembershipNotFound) {
			return apperr.NotFound("sprint issue", issueID)
		}
		return fmt.Errorf("remove issue %s from sprint %s: %w", issueID, sprintID, err)
	}
	return nil
}

// IssueIDsBySprint returns the IDs of issues currently in a sprint.
func (m *Manager) IssueIDsBySprint(ctx context.Context, sprintID string) ([]string, error) {
	ids, err := m.store.IssueIDsBySprint(ctx, sprintID)
	if err != nil {
		return nil, fmt.Errorf("list sprint issues: %w", err)
	}
	return ids, nil
}

func (m *Manager) getSprint(ctx context.Context, sprintID string) (*models.Sprint, error) {
	sprint, err := m.store.GetSprint(ctx, sprintID)
	if err != nil {
		if errors.Is(err, database.ErrSprintNotFound) {
			return nil, apperr.NotFound("sprint", sprintID)
		}
		return nil, fmt.Errorf("get sprint %s: %w", sprintID, err)
	}
	return sprint, nil
}

// validateDates enforces start-before-end ordering and inclusive-bounds
// non-overlap within the project.
func (m *Manager) validateDates(ctx context.Context, projectID string, startDate time.Time, endDate *time.Time, excludeID string) error {
	if endDate == nil {
		return nil
	}
	if !startDate.Before(*endDate) {
		return apperr.Validation("start_date", "start date must be before end date")
	}

	overlapping, err := m.store.OverlappingSprints(ctx, projectID, startDate, *endDate, excludeID)
	if err != nil {
		return fmt.Errorf("overlap check for project %s: %w", projectID, err)
	}
	if len(overlapping) > 0 {
		return apperr.Conflict("dates overlap with existing sprint in project %s", projectID)
	}
	return nil
}
