// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

/*
activity.go - Activity Log Store Operations

The activity log is append-only. AppendActivity uses ON CONFLICT DO NOTHING
on the entry ID so replayed events from the bus are idempotent. Nothing in
this file updates or deletes log rows.

Projection queries:
  - ActiveIssueIDs: Created minus Deleted set difference, computed in SQL
  - LatestIssueStatuses: latest status-like entry per issue ("last write
    wins"); ties on created_at break by seq, the insertion order, per the
    append-only sequence column
  - IssueCreators / IssueActionTimestamps: creator and boundary timestamps
    for efficiency and cycle-time projections
*/

package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/boardpulse/internal/metrics"
	"github.com/tomtom215/boardpulse/internal/models"
)

// AppendActivity inserts one entry. Duplicate IDs are silently ignored so
// at-least-once delivery from the event bus stays idempotent.
func (db *DB) AppendActivity(ctx context.Context, e *models.ActivityLogEntry) error {
	start := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO activity_log (id, project_id, user_id, action_type, entity_type, entity_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT DO NOTHING`,
		e.ID, e.ProjectID, e.UserID, e.ActionType, e.EntityType, e.EntityID, e.CreatedAt)
	metrics.ObserveDBQuery("insert", "activity_log", start, err)
	if err != nil {
		return fmt.Errorf("append activity entry %s: %w", e.ID, err)
	}
	return nil
}

// QueryActivity returns entries matching the filter, newest first.
func (db *DB) QueryActivity(ctx context.Context, filter models.ActivityFilter) ([]*models.ActivityLogEntry, error) {
	start := time.Now()

	where := []string{"1=1"}
	args := []interface{}{}

	if filter.ProjectID != "" {
		where = append(where, "project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.EntityType != "" {
		where = append(where, "entity_type = ?")
		args = append(args, filter.EntityType)
	}
	if filter.EntityID != "" {
		where = append(where, "entity_id = ?")
		args = append(args, filter.EntityID)
	}
	if filter.ActionType != "" {
		where = append(where, "action_type = ?")
		args = append(args, filter.ActionType)
	}
	if filter.From != nil {
		where = append(where, "created_at >= ?")
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		where = append(where, "created_at <= ?")
		args = append(args, *filter.To)
	}

	query := fmt.Sprintf(
		`SELECT id, project_id, user_id, action_type, entity_type, entity_id, created_at
		 FROM activity_log WHERE %s ORDER BY created_at DESC, seq DESC`,
		strings.Join(where, " AND "))

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	metrics.ObserveDBQuery("select", "activity_log", start, err)
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*models.ActivityLogEntry
	for rows.Next() {
		e := &models.ActivityLogEntry{}
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.UserID, &e.ActionType,
			&e.EntityType, &e.EntityID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity rows: %w", err)
	}
	return entries, nil
}

// ActiveIssueIDs returns the set of issue IDs with a Created entry and no
// Deleted entry, derived purely from the log. The issue's own mutable record
// is never consulted.
func (db *DB) ActiveIssueIDs(ctx context.Context, projectID string) ([]string, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT DISTINCT entity_id FROM activity_log
		 WHERE project_id = ? AND entity_type = ? AND action_type = ?
		 AND entity_id NOT IN (
			SELECT DISTINCT entity_id FROM activity_log
			WHERE project_id = ? AND entity_type = ? AND action_type = ?
		 )
		 ORDER BY entity_id`,
		projectID, models.EntityTypeIssue, models.ActivityCreated,
		projectID, models.EntityTypeIssue, models.ActivityDeleted)
	metrics.ObserveDBQuery("active_set", "activity_log", start, err)
	if err != nil {
		return nil, fmt.Errorf("active issue set for project %s: %w", projectID, err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan active issue id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate active issue ids: %w", err)
	}
	return ids, nil
}

// LatestIssueStatuses returns, per issue, the action type of the
// chronologically latest entry among the status whitelist. Equal timestamps
// break by seq (insertion order). Issues with no status-like entry at all are
// absent from the map.
func (db *DB) LatestIssueStatuses(ctx context.Context, projectID string, issueIDs []string) (map[string]string, error) {
	if len(issueIDs) == 0 {
		return map[string]string{}, nil
	}

	start := time.Now()

	statusPlaceholders := placeholders(len(models.StatusActionTypes))
	issuePlaceholders := placeholders(len(issueIDs))

	args := make([]interface{}, 0, 2+len(models.StatusActionTypes)+len(issueIDs))
	args = append(args, projectID, models.EntityTypeIssue)
	for _, a := range models.StatusActionTypes {
		args = append(args, a)
	}
	for _, id := range issueIDs {
		args = append(args, id)
	}

	query := fmt.Sprintf(
		`SELECT entity_id, action_type FROM (
			SELECT entity_id, action_type,
			       ROW_NUMBER() OVER (PARTITION BY entity_id ORDER BY created_at DESC, seq DESC) AS rn
			FROM activity_log
			WHERE project_id = ? AND entity_type = ?
			  AND action_type IN (%s)
			  AND entity_id IN (%s)
		) WHERE rn = 1`,
		statusPlaceholders, issuePlaceholders)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	metrics.ObserveDBQuery("latest_status", "activity_log", start, err)
	if err != nil {
		return nil, fmt.Errorf("latest statuses for project %s: %w", projectID, err)
	}
	defer func() { _ = rows.Close() }()

	statuses := make(map[string]string, len(issueIDs))
	for rows.Next() {
		var issueID, action string
		if err := rows.Scan(&issueID, &action); err != nil {
			return nil, fmt.Errorf("scan status row: %w", err)
		}
		statuses[issueID] = action
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status rows: %w", err)
	}
	return statuses, nil
}

// IssueCreators returns entity_id -> user_id of the Created entry for each
// listed issue.
func (db *DB) IssueCreators(ctx context.Context, projectID string, issueIDs []string) (map[string]string, error) {
	if len(issueIDs) == 0 {
		return map[string]string{}, nil
	}

	start := time.Now()
	args := make([]interface{}, 0, 3+len(issueIDs))
	args = append(args, projectID, models.EntityTypeIssue, models.ActivityCreated)
	for _, id := range issueIDs {
		args = append(args, id)
	}

	query := fmt.Sprintf(
		`SELECT entity_id, user_id FROM (
			SELECT entity_id, user_id,
			       ROW_NUMBER() OVER (PARTITION BY entity_id ORDER BY created_at, seq) AS rn
			FROM activity_log
			WHERE project_id = ? AND entity_type = ? AND action_type = ?
			  AND entity_id IN (%s)
		) WHERE rn = 1`,
		placeholders(len(issueIDs)))

	rows, err := db.conn.QueryContext(ctx, query, args...)
	metrics.ObserveDBQuery("creators", "activity_log", start, err)
	if err != nil {
		return nil, fmt.Errorf("issue creators for project %s: %w", projectID, err)
	}
	defer func() { _ = rows.Close() }()

	creators := make(map[string]string, len(issueIDs))
	for rows.Next() {
		var issueID, userID string
		if err := rows.Scan(&issueID, &userID); err != nil {
			return nil, fmt.Errorf("scan creator row: %w", err)
		}
		creators[issueID] = userID
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate creator rows: %w", err)
	}
	return creators, nil
}

// IssueActionTimestamps returns, per issue, the timestamp of its entry with
// the given action type. When duplicates exist the latest stored value wins,
// mirroring dictionary-construction semantics in the read model.
func (db *DB) IssueActionTimestamps(ctx context.Context, projectID, actionType string, issueIDs []string) (map[string]time.Time, error) {
	if len(issueIDs) == 0 {
		return map[string]time.Time{}, nil
	}

	start := time.Now()
	args := make([]interface{}, 0, 3+len(issueIDs))
	args = append(args, projectID, models.EntityTypeIssue, actionType)
	for _, id := range issueIDs {
		args = append(args, id)
	}

	query := fmt.Sprintf(
		`SELECT entity_id, created_at FROM activity_log
		 WHERE project_id = ? AND entity_type = ? AND action_type = ?
		   AND entity_id IN (%s)
		 ORDER BY created_at, seq`,
		placeholders(len(issueIDs)))

	rows, err := db.conn.QueryContext(ctx, query, args...)
	metrics.ObserveDBQuery("timestamps", "activity_log", start, err)
	if err != nil {
		return nil, fmt.Errorf("action timestamps for project %s: %w", projectID, err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]time.Time, len(issueIDs))
	for rows.Next() {
		var issueID string
		var at time.Time
		if err := rows.Scan(&issueID, &at); err != nil {
			return nil, fmt.Errorf("scan timestamp row: %w", err)
		}
		out[issueID] = at
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timestamp rows: %w", err)
	}
	return out, nil
}

// placeholders returns n comma-separated "?" markers.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
