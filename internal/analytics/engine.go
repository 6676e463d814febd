// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

/*
engine.go - Activity Analytics Engine

Dashboard metrics are projections over the append-only activity log, never
reads of mutable issue state. The projection is idempotent: recomputing at
any time over the same log yields the same numbers, which makes the snapshot
table a cache of the log rather than a second source of truth.

The active issue set is (issues with a Created entry) minus (issues with a
Deleted entry). Current status per issue is the latest status-like log entry.
An issue whose latest status-like entry is still the creation event has never
transitioned and counts as todo.
*/

package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/boardpulse/internal/cache"
	"github.com/tomtom215/boardpulse/internal/logging"
	"github.com/tomtom215/boardpulse/internal/metrics"
	"github.com/tomtom215/boardpulse/internal/models"
)

// ActivityStore is the activity-log read surface the engine projects over.
type ActivityStore interface {
	ActiveIssueIDs(ctx context.Context, projectID string) ([]string, error)
	LatestIssueStatuses(ctx context.Context, projectID string, issueIDs []string) (map[string]string, error)
	IssueCreators(ctx context.Context, projectID string, issueIDs []string) (map[string]string, error)
	IssueActionTimestamps(ctx context.Context, projectID, actionType string, issueIDs []string) (map[string]time.Time, error)
}

// SnapshotStore persists and serves dashboard snapshots.
type SnapshotStore interface {
	InsertSnapshots(ctx context.Context, snapshots []*models.DashboardSnapshot) error
	TrendSeries(ctx context.Context, projectID, metricName string, from, to time.Time) ([]models.TrendPoint, error)
}

// Authorizer gates user-facing analytics operations.
type Authorizer interface {
	HasPermission(ctx context.Context, userID, projectID string, perm models.Permission) error
}

var analyticsView = models.Permission{Entity: models.EntityAnalytics, Action: models.ActionView}

// Engine recomputes dashboard metrics from the activity log.
type Engine struct {
	activity   ActivityStore
	snapshots  SnapshotStore
	authz      Authorizer
	trendCache *cache.Cache

	// now is replaceable in tests.
	now func() time.Time
}

// New builds an Engine. trendTTL bounds how stale a served trend series may
// be; recomputation invalidates nothing because snapshots are append-only.
func New(activity ActivityStore, snapshots SnapshotStore, authz Authorizer, trendTTL time.Duration) *Engine {
	return &Engine{
		activity:   activity,
		snapshots:  snapshots,
		authz:      authz,
		trendCache: cache.New(trendTTL),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Close releases the trend cache's background worker.
func (e *Engine) Close() {
	e.trendCache.Close()
}

// RecomputeDashboard projects current metrics for a project from the
// activity log, persists one snapshot row per metric, and returns a DTO
// carrying the same numbers. Requires ANALYTICS:VIEW.
func (e *Engine) RecomputeDashboard(ctx context.Context, userID, projectID string) (*models.DashboardMetrics, error) {
	if err := e.authz.HasPermission(ctx, userID, projectID, analyticsView); err != nil {
		return nil, err
	}
	return e.recompute(ctx, projectID)
}

// recompute is the authorization-free core.
func (e *Engine) recompute(ctx context.Context, projectID string) (*models.DashboardMetrics, error) {
	start := time.Now()
	dto, err := e.project(ctx, projectID)
	if err != nil {
		metrics.DashboardRecomputes.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.DashboardRecomputes.WithLabelValues("success").Inc()
	logging.Debug().
		Str("project_id", projectID).
		Int("total_issues", dto.TotalIssues).
		Dur("duration", time.Since(start)).
		Msg("Dashboard recomputed")
	return dto, nil
}

// project derives the full metric set from the log.
func (e *Engine) project(ctx context.Context, projectID string) (*models.DashboardMetrics, error) {
	now := e.now()

	activeIDs, err := e.activity.ActiveIssueIDs(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("resolve active issue set: %w", err)
	}

	dto := &models.DashboardMetrics{
		ProjectID:      projectID,
		UserEfficiency: map[string]float64{},
		ComputedAt:     now,
	}

	if len(activeIDs) == 0 {
		// Empty projects still persist the five core snapshots so trend
		// series have a zero point for this date.
		if err := e.persist(ctx, projectID, dto, now); err != nil {
			return nil, err
		}
		return dto, nil
	}

	statuses, err := e.activity.LatestIssueStatuses(ctx, projectID, activeIDs)
	if err != nil {
		return nil, fmt.Errorf("project issue statuses: %w", err)
	}
	creators, err := e.activity.IssueCreators(ctx, projectID, activeIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve issue creators: %w", err)
	}

	totalByCreator := map[string]int{}
	completedByCreator := map[string]int{}

	dto.TotalIssues = len(activeIDs)
	for _, issueID := range activeIDs {
		status := statuses[issueID]
		switch status {
		case models.StatusDone:
			dto.CompletedIssues++
		case models.StatusInProgress:
			dto.InProgressIssues++
		case models.ActivityCreated:
			dto.TodoIssues++
		}

		if creator, ok := creators[issueID]; ok {
			totalByCreator[creator]++
			if status == models.StatusDone {
				completedByCreator[creator]++
			}
		}
	}

	dto.CompletionRate = ratio(dto.CompletedIssues, dto.TotalIssues)
	for creator, total := range totalByCreator {
		dto.UserEfficiency[creator] = ratio(completedByCreator[creator], total)
	}

	if err := e.persist(ctx, projectID, dto, now); err != nil {
		return nil, err
	}
	return dto, nil
}

// persist writes one snapshot row per metric. The rows carry exactly the
// DTO's values; nothing is rounded or reformatted between the two.
func (e *Engine) persist(ctx context.Context, projectID string, dto *models.DashboardMetrics, now time.Time) error {
	snapshots := []*models.DashboardSnapshot{
		models.NewDashboardSnapshot(projectID, models.MetricTotalIssues, float64(dto.TotalIssues), now),
		models.NewDashboardSnapshot(projectID, models.MetricCompletedIssues, float64(dto.CompletedIssues), now),
		models.NewDashboardSnapshot(projectID, models.MetricTodoIssues, float64(dto.TodoIssues), now),
		models.NewDashboardSnapshot(projectID, models.MetricInProgressIssues, float64(dto.InProgressIssues), now),
		models.NewDashboardSnapshot(projectID, models.MetricCompletionRate, dto.CompletionRate, now),
	}
	for userID, efficiency := range dto.UserEfficiency {
		snapshots = append(snapshots,
			models.NewDashboardSnapshot(projectID, models.UserEfficiencyMetric(userID), efficiency, now))
	}

	if err := e.snapshots.InsertSnapshots(ctx, snapshots); err != nil {
		return fmt.Errorf("persist dashboard snapshots: %w", err)
	}
	return nil
}

func ratio(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// CycleTimes returns DONE-minus-Created elapsed time in fractional days per
// issue. Issues missing either endpoint are excluded, not errors. Requires
// ANALYTICS:VIEW.
func (e *Engine) CycleTimes(ctx context.Context, userID, projectID string, issueIDs []string) (map[string]float64, error) {
	if err := e.authz.HasPermission(ctx, userID, projectID, analyticsView); err != nil {
		return nil, err
	}

	created, err := e.activity.IssueActionTimestamps(ctx, projectID, models.ActivityCreated, issueIDs)
	if err != nil {
		return nil, fmt.Errorf("created timestamps: %w", err)
	}
	done, err := e.activity.IssueActionTimestamps(ctx, projectID, models.StatusDone, issueIDs)
	if err != nil {
		return nil, fmt.Errorf("completion timestamps: %w", err)
	}

	out := make(map[string]float64, len(done))
	for issueID, doneAt := range done {
		createdAt, ok := created[issueID]
		if !ok {
			continue
		}
		out[issueID] = doneAt.Sub(createdAt).Hours() / 24
	}
	return out, nil
}

// LatestStatusForIssues exposes the status projection directly. Recomputing
// over the same log always yields the same map.
func (e *Engine) LatestStatusForIssues(ctx context.Context, projectID string, issueIDs []string) (map[string]string, error) {
	statuses, err := e.activity.LatestIssueStatuses(ctx, projectID, issueIDs)
	if err != nil {
		return nil, fmt.Errorf("project issue statuses: %w", err)
	}
	return statuses, nil
}

// MetricTrend returns the chronological snapshot series for one metric in a
// date range. Series are cached briefly because snapshots for past dates
// never change. Requires ANALYTICS:VIEW.
func (e *Engine) MetricTrend(ctx context.Context, userID, projectID, metricName string, from, to time.Time) ([]models.TrendPoint, error) {
	if err := e.authz.HasPermission(ctx, userID, projectID, analyticsView); err != nil {
		return nil, err
	}

	key := cache.GenerateKey("trend", projectID, metricName, from.Unix(), to.Unix())
	if cached, ok := e.trendCache.Get(key); ok {
		metrics.TrendCacheHits.Inc()
		return cached.([]models.TrendPoint), nil
	}
	metrics.TrendCacheMisses.Inc()

	points, err := e.snapshots.TrendSeries(ctx, projectID, metricName, from, to)
	if err != nil {
		return nil, fmt.Errorf("trend series: %w", err)
	}
	e.trendCache.Set(key, points)
	return points, nil
}
