// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

/*
snapshots.go - Dashboard Snapshot Store Operations

Snapshots are write-once rows. Each dashboard recompute persists one row per
metric; historical rows are never updated, which is what makes trend series
meaningful over time.
*/

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/boardpulse/internal/metrics"
	"github.com/tomtom215/boardpulse/internal/models"
)

// InsertSnapshots persists a batch of snapshot rows in a single transaction.
// All rows land or none do.
func (db *DB) InsertSnapshots(ctx context.Context, snapshots []*models.DashboardSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	start := time.Now()
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO dashboard_snapshots (id, project_id, metric_name, metric_value, snapshot_date, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare snapshot insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, s := range snapshots {
			if _, err := stmt.ExecContext(ctx,
				s.ID, s.ProjectID, s.MetricName, s.MetricValue, s.SnapshotDate, s.CreatedAt); err != nil {
				return fmt.Errorf("insert snapshot %s/%s: %w", s.ProjectID, s.MetricName, err)
			}
		}
		return nil
	})
	metrics.ObserveDBQuery("insert_batch", "dashboard_snapshots", start, err)
	return err
}

// TrendSeries returns the chronological series of values for one metric in
// one project, bounded by the inclusive date range.
func (db *DB) TrendSeries(ctx context.Context, projectID, metricName string, from, to time.Time) ([]models.TrendPoint, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT snapshot_date, metric_value FROM dashboard_snapshots
		 WHERE project_id = ? AND metric_name = ?
		   AND snapshot_date >= ? AND snapshot_date <= ?
		 ORDER BY snapshot_date`,
		projectID, metricName, from, to)
	metrics.ObserveDBQuery("trend", "dashboard_snapshots", start, err)
	if err != nil {
		return nil, fmt.Errorf("trend series %s/%s: %w", projectID, metricName, err)
	}
	defer func() { _ = rows.Close() }()

	var points []models.TrendPoint
	for rows.Next() {
		var p models.TrendPoint
		if err := rows.Scan(&p.Date, &p.Value); err != nil {
			return nil, fmt.Errorf("scan trend point: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trend points: %w", err)
	}
	return points, nil
}

// LatestSnapshots returns the most recent snapshot row per metric name for a
// project.
func (db *DB) LatestSnapshots(ctx context.Context, projectID string) (map[string]*models.DashboardSnapshot, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, project_id, metric_name, metric_value, snapshot_date, created_at FROM (
			SELECT id, project_id, metric_name, metric_value, snapshot_date, created_at,
			       ROW_NUMBER() OVER (PARTITION BY metric_name ORDER BY snapshot_date DESC, created_at DESC) AS rn
			FROM dashboard_snapshots
			WHERE project_id = ?
		) WHERE rn = 1`,
		projectID)
	metrics.ObserveDBQuery("latest", "dashboard_snapshots", start, err)
	if err != nil {
		return nil, fmt.Errorf("latest snapshots for project %s: %w", projectID, err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]*models.DashboardSnapshot)
	for rows.Next() {
		s := &models.DashboardSnapshot{}
		if err := rows.Scan(&s.ID, &s.ProjectID, &s.MetricName, &s.MetricValue,
			&s.SnapshotDate, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		out[s.MetricName] = s
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return out, nil
}
