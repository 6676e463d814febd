// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

/*
sprints.go - Sprint and Membership Store Operations

Key Operations:
  - InsertSprint / GetSprint / UpdateSprint / DeleteSprint (cascades memberships)
  - OverlappingSprints: the inclusive-bounds date-range query behind the
    no-overlap invariant
  - PlannedSprintsDueBy / ActiveSprintsExpiredBy: the scheduler's passed-date
    queries
  - TransitionSprintStatus: guarded single-row status flip; the WHERE clause
    on the current status makes concurrent sweeps from multiple instances
    converge instead of double-applying a transition
  - MoveIssuesToSprint: remove-then-insert membership replacement in one
    transaction, enforcing the single-membership invariant
*/

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/boardpulse/internal/metrics"
	"github.com/tomtom215/boardpulse/internal/models"
)

const sprintColumns = `id, project_id, name, goal, start_date, end_date, status, created_at, updated_at`

// scanSprintRow scans a row into a Sprint, handling nullable fields.
func scanSprintRow(scanner interface{ Scan(dest ...interface{}) error }) (*models.Sprint, error) {
	s := &models.Sprint{}
	var goal sql.NullString
	var endDate sql.NullTime

	err := scanner.Scan(&s.ID, &s.ProjectID, &s.Name, &goal, &s.StartDate, &endDate,
		&s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if goal.Valid {
		s.Goal = goal.String
	}
	if endDate.Valid {
		t := endDate.Time
		s.EndDate = &t
	}
	return s, nil
}

// InsertSprint persists a new sprint.
func (db *DB) InsertSprint(ctx context.Context, s *models.Sprint) error {
	start := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO sprints (id, project_id, name, goal, start_date, end_date, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.ProjectID, s.Name, s.Goal, s.StartDate, nullableTime(s.EndDate),
		string(s.Status), s.CreatedAt, s.UpdatedAt)
	metrics.ObserveDBQuery("insert", "sprints", start, err)
	if err != nil {
		return fmt.Errorf("insert sprint: %w", err)
	}
	return nil
}

// GetSprint fetches a sprint by ID. Returns ErrSprintNotFound if absent.
func (db *DB) GetSprint(ctx context.Context, sprintID string) (*models.Sprint, error) {
	start := time.Now()
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+sprintColumns+` FROM sprints WHERE id = ?`, sprintID)

	s, err := scanSprintRow(row)
	metrics.ObserveDBQuery("select", "sprints", start, err)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSprintNotFound
		}
		return nil, fmt.Errorf("get sprint %s: %w", sprintID, err)
	}
	return s, nil
}

// UpdateSprint persists name, goal, dates, status, and updated_at for an
// existing sprint. Returns ErrSprintNotFound if no row matched.
func (db *DB) UpdateSprint(ctx context.Context, s *models.Sprint) error {
	start := time.Now()
	res, err := db.conn.ExecContext(ctx,
		`UPDATE sprints SET name = ?, goal = ?, start_date = ?, end_date = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		s.Name, s.Goal, s.StartDate, nullableTime(s.EndDate), string(s.Status), s.UpdatedAt, s.ID)
	metrics.ObserveDBQuery("update", "sprints", start, err)
	if err != nil {
		return fmt.Errorf("update sprint %s: %w", s.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update sprint %s: rows affected: %w", s.ID, err)
	}
	if affected == 0 {
		return ErrSprintNotFound
	}
	return nil
}

// TransitionSprintStatus flips a sprint from one status to another, updating
// start_date when newStart is non-nil (StartSprint overwrites the planned
// start with the actual transition instant).
//
// The WHERE clause guards on the current status: if another instance already
// applied the transition, zero rows match and ok=false is returned without an
// error. Sweeps treat that as "already done".
func (db *DB) TransitionSprintStatus(ctx context.Context, sprintID string, from, to models.SprintStatus, newStart *time.Time) (bool, error) {
	start := time.Now()
	now := time.Now().UTC()

	var res sql.Result
	var err error
	if newStart != nil {
		res, err = db.conn.ExecContext(ctx,
			`UPDATE sprints SET status = ?, start_date = ?, updated_at = ? WHERE id = ? AND status = ?`,
			string(to), *newStart, now, sprintID, string(from))
	} else {
		res, err = db.conn.ExecContext(ctx,
			`UPDATE sprints SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
			string(to), now, sprintID, string(from))
	}
	metrics.ObserveDBQuery("transition", "sprints", start, err)
	if err != nil {
		return false, fmt.Errorf("transition sprint %s %s->%s: %w", sprintID, from, to, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition sprint %s: rows affected: %w", sprintID, err)
	}
	return affected > 0, nil
}

// DeleteSprint removes a sprint and cascades removal of its memberships.
// Member issues implicitly return to the backlog. Returns ErrSprintNotFound
// if the sprint does not exist.
func (db *DB) DeleteSprint(ctx context.Context, sprintID string) error {
	start := time.Now()
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM sprints WHERE id = ?`, sprintID)
		if err != nil {
			return fmt.Errorf("delete sprint %s: %w", sprintID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete sprint %s: rows affected: %w", sprintID, err)
		}
		if affected == 0 {
			return ErrSprintNotFound
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM sprint_issues WHERE sprint_id = ?`, sprintID); err != nil {
			return fmt.Errorf("delete sprint %s memberships: %w", sprintID, err)
		}
		return nil
	})
	metrics.ObserveDBQuery("delete", "sprints", start, err)
	return err
}

// ListSprintsByProject returns all sprints in a project ordered by start date.
func (db *DB) ListSprintsByProject(ctx context.Context, projectID string) ([]*models.Sprint, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+sprintColumns+` FROM sprints WHERE project_id = ? ORDER BY start_date`, projectID)
	metrics.ObserveDBQuery("select", "sprints", start, err)
	if err != nil {
		return nil, fmt.Errorf("list sprints for project %s: %w", projectID, err)
	}
	defer func() { _ = rows.Close() }()

	return collectSprints(rows)
}

// OverlappingSprints returns sprints in the project whose [start_date,
// end_date] interval intersects the given interval, inclusive on both
// bounds. excludeID removes the sprint being updated from consideration;
// pass "" for creation checks. Sprints without an end date never overlap.
func (db *DB) OverlappingSprints(ctx context.Context, projectID string, intervalStart, intervalEnd time.Time, excludeID string) ([]*models.Sprint, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+sprintColumns+` FROM sprints
		 WHERE project_id = ?
		   AND id <> ?
		   AND end_date IS NOT NULL
		   AND start_date <= ?
		   AND end_date >= ?
		 ORDER BY start_date`,
		projectID, excludeID, intervalEnd, intervalStart)
	metrics.ObserveDBQuery("overlap", "sprints", start, err)
	if err != nil {
		return nil, fmt.Errorf("overlap query for project %s: %w", projectID, err)
	}
	defer func() { _ = rows.Close() }()

	return collectSprints(rows)
}

// PlannedSprintsDueBy returns Planned sprints whose start date has passed.
func (db *DB) PlannedSprintsDueBy(ctx context.Context, now time.Time) ([]*models.Sprint, error) {
	return db.sprintsByStatusAndDeadline(ctx, models.SprintPlanned, "start_date", now)
}

// ActiveSprintsExpiredBy returns Active sprints whose end date has passed.
func (db *DB) ActiveSprintsExpiredBy(ctx context.Context, now time.Time) ([]*models.Sprint, error) {
	return db.sprintsByStatusAndDeadline(ctx, models.SprintActive, "end_date", now)
}

func (db *DB) sprintsByStatusAndDeadline(ctx context.Context, status models.SprintStatus, dateColumn string, now time.Time) ([]*models.Sprint, error) {
	start := time.Now()
	// dateColumn is a fixed identifier chosen by the two callers above, never
	// user input.
	query := fmt.Sprintf(`SELECT %s FROM sprints WHERE status = ? AND %s IS NOT NULL AND %s <= ? ORDER BY %s`,
		sprintColumns, dateColumn, dateColumn, dateColumn)

	rows, err := db.conn.QueryContext(ctx, query, string(status), now)
	metrics.ObserveDBQuery("deadline", "sprints", start, err)
	if err != nil {
		return nil, fmt.Errorf("deadline query (%s, %s): %w", status, dateColumn, err)
	}
	defer func() { _ = rows.Close() }()

	return collectSprints(rows)
}

func collectSprints(rows *sql.Rows) ([]*models.Sprint, error) {
	var sprints []*models.Sprint
	for rows.Next() {
		s, err := scanSprintRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sprint row: %w", err)
		}
		sprints = append(sprints, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sprint rows: %w", err)
	}
	return sprints, nil
}

// MoveIssuesToSprint moves every listed issue into the target sprint,
// removing each from whatever sprint it currently belongs to first. The
// remove-then-insert sequence runs in a single transaction so one call is
// atomic; across concurrent calls the last writer wins.
func (db *DB) MoveIssuesToSprint(ctx context.Context, sprintID, addedBy string, issueIDs []string) error {
	if len(issueIDs) == 0 {
		return nil
	}

	start := time.Now()
	now := time.Now().UTC()
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		for _, issueID := range issueIDs {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM sprint_issues WHERE issue_id = ?`, issueID); err != nil {
				return fmt.Errorf("clear membership for issue %s: %w", issueID, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO sprint_issues (issue_id, sprint_id, added_at, added_by) VALUES (?, ?, ?, ?)`,
				issueID, sprintID, now, addedBy); err != nil {
				return fmt.Errorf("insert membership for issue %s: %w", issueID, err)
			}
		}
		return nil
	})
	metrics.ObserveDBQuery("move", "sprint_issues", start, err)
	return err
}

// RemoveIssueFromSprint removes one membership edge. Returns
// ErrMembershipNotFound if the edge does not exist.
func (db *DB) RemoveIssueFromSprint(ctx context.Context, sprintID, issueID string) error {
	start := time.Now()
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM sprint_issues WHERE sprint_id = ? AND issue_id = ?`, sprintID, issueID)
	metrics.ObserveDBQuery("delete", "sprint_issues", start, err)
	if err != nil {
		return fmt.Errorf("remove issue %s from sprint %s: %w", issueID, sprintID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove issue %s: rows affected: %w", issueID, err)
	}
	if affected == 0 {
		return ErrMembershipNotFound
	}
	return nil
}

// IssueIDsBySprint returns the IDs of issues currently in the sprint.
func (db *DB) IssueIDsBySprint(ctx context.Context, sprintID string) ([]string, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT issue_id FROM sprint_issues WHERE sprint_id = ? ORDER BY added_at`, sprintID)
	metrics.ObserveDBQuery("select", "sprint_issues", start, err)
	if err != nil {
		return nil, fmt.Errorf("issues for sprint %s: %w", sprintID, err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan membership row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate membership rows: %w", err)
	}
	return ids, nil
}

// SprintIDByIssue returns the sprint an issue currently belongs to, or ""
// if the issue is in the backlog.
func (db *DB) SprintIDByIssue(ctx context.Context, issueID string) (string, error) {
	start := time.Now()
	var sprintID string
	err := db.conn.QueryRowContext(ctx,
		`SELECT sprint_id FROM sprint_issues WHERE issue_id = ?`, issueID).Scan(&sprintID)
	metrics.ObserveDBQuery("select", "sprint_issues", start, err)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("sprint for issue %s: %w", issueID, err)
	}
	return sprintID, nil
}
