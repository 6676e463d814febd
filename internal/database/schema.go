// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

/*
schema.go - Database Schema Management

Tables:
  - sprints: sprint lifecycle rows (Planned/Active/Completed)
  - sprint_issues: sprint<->issue membership edges, at most one per issue
  - activity_log: append-only event log, the source of truth for analytics;
    the seq column (sequence-assigned) preserves insertion order for
    deterministic tie-breaks between entries with identical timestamps
  - dashboard_snapshots: write-once metric facts forming per-metric time series

Schema Strategy:
All columns are defined in the initial CREATE TABLE statements - a single
source of truth, no migration framework. Columns added after release go
through versioned ALTERs appended to this file.
*/

package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createSchema creates tables, sequences, and indexes.
func (db *DB) createSchema() error {
	ctx, cancel := schemaContext()
	defer cancel()

	queries := []string{
		`CREATE SEQUENCE IF NOT EXISTS activity_log_seq`,

		`CREATE TABLE IF NOT EXISTS sprints (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			name TEXT NOT NULL,
			goal TEXT,
			start_date TIMESTAMP NOT NULL,
			end_date TIMESTAMP,
			status TEXT NOT NULL DEFAULT 'Planned',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS sprint_issues (
			issue_id TEXT NOT NULL,
			sprint_id TEXT NOT NULL,
			added_at TIMESTAMP NOT NULL,
			added_by TEXT,
			PRIMARY KEY (issue_id, sprint_id)
		)`,

		`CREATE TABLE IF NOT EXISTS activity_log (
			id TEXT PRIMARY KEY,
			seq BIGINT DEFAULT nextval('activity_log_seq'),
			project_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			action_type TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS dashboard_snapshots (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			metric_name TEXT NOT NULL,
			metric_value DOUBLE NOT NULL,
			snapshot_date TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,

		// Sprint queries filter by project and by lifecycle deadlines.
		`CREATE INDEX IF NOT EXISTS idx_sprints_project ON sprints(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sprints_status_start ON sprints(status, start_date)`,
		`CREATE INDEX IF NOT EXISTS idx_sprints_status_end ON sprints(status, end_date)`,

		// Membership lookups go both directions.
		`CREATE INDEX IF NOT EXISTS idx_sprint_issues_sprint ON sprint_issues(sprint_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sprint_issues_issue ON sprint_issues(issue_id)`,

		// The analytics engine scans per project, grouped by entity.
		`CREATE INDEX IF NOT EXISTS idx_activity_project_entity ON activity_log(project_id, entity_type, entity_id)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_project_action ON activity_log(project_id, action_type)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_created ON activity_log(created_at)`,

		// Trend queries scan (project, metric) ranges ordered by snapshot date.
		`CREATE INDEX IF NOT EXISTS idx_snapshots_series ON dashboard_snapshots(project_id, metric_name, snapshot_date)`,
	}

	for _, query := range queries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute schema statement: %s: %w", query, err)
		}
	}

	return nil
}
