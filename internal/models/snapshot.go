// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

/*
snapshot.go - Dashboard Snapshot Models

DashboardSnapshot rows are write-once facts. A time series for a metric is
the set of snapshots sharing (ProjectID, MetricName) ordered by SnapshotDate.
Trend queries scan ranges; nothing updates a snapshot in place.
*/

package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Core metric names persisted on every dashboard recomputation.
const (
	MetricTotalIssues      = "total_issues"
	MetricCompletedIssues  = "completed_issues"
	MetricTodoIssues       = "todo_issues"
	MetricInProgressIssues = "in_progress_issues"
	MetricCompletionRate   = "completion_rate"
)

// CoreMetricNames lists the five metrics persisted even for an empty project.
var CoreMetricNames = []string{
	MetricTotalIssues,
	MetricCompletedIssues,
	MetricTodoIssues,
	MetricInProgressIssues,
	MetricCompletionRate,
}

// UserEfficiencyMetric returns the per-creator efficiency metric name.
func UserEfficiencyMetric(userID string) string {
	return fmt.Sprintf("user_efficiency_%s", userID)
}

// DashboardSnapshot is a write-once numeric fact row.
type DashboardSnapshot struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id"`
	MetricName   string    `json:"metric_name"`
	MetricValue  float64   `json:"metric_value"`
	SnapshotDate time.Time `json:"snapshot_date"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewDashboardSnapshot creates a snapshot with a generated ID.
func NewDashboardSnapshot(projectID, metricName string, value float64, snapshotDate time.Time) *DashboardSnapshot {
	return &DashboardSnapshot{
		ID:           uuid.New().String(),
		ProjectID:    projectID,
		MetricName:   metricName,
		MetricValue:  value,
		SnapshotDate: snapshotDate,
		CreatedAt:    time.Now().UTC(),
	}
}

// DashboardMetrics is the DTO returned by a dashboard recomputation. It must
// numerically agree with the snapshots persisted by the same invocation.
type DashboardMetrics struct {
	ProjectID        string             `json:"project_id"`
	TotalIssues      int                `json:"total_issues"`
	CompletedIssues  int                `json:"completed_issues"`
	TodoIssues       int                `json:"todo_issues"`
	InProgressIssues int                `json:"in_progress_issues"`
	CompletionRate   float64            `json:"completion_rate"`
	UserEfficiency   map[string]float64 `json:"user_efficiency"`
	ComputedAt       time.Time          `json:"computed_at"`
}

// TrendPoint is one (date, value) observation in a metric time series.
type TrendPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}
