// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

package analytics

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/tomtom215/boardpulse/internal/apperr"
	"github.com/tomtom215/boardpulse/internal/models"
)

// fakeActivityStore serves canned projections.
type fakeActivityStore struct {
	active     []string
	statuses   map[string]string
	creators   map[string]string
	timestamps map[string]map[string]time.Time // actionType -> issueID -> at
}

func (f *fakeActivityStore) ActiveIssueIDs(ctx context.Context, projectID string) ([]string, error) {
	return f.active, nil
}

func (f *fakeActivityStore) LatestIssueStatuses(ctx context.Context, projectID string, issueIDs []string) (map[string]string, error) {
	return f.statuses, nil
}

func (f *fakeActivityStore) IssueCreators(ctx context.Context, projectID string, issueIDs []string) (map[string]string, error) {
	return f.creators, nil
}

func (f *fakeActivityStore) IssueActionTimestamps(ctx context.Context, projectID, actionType string, issueIDs []string) (map[string]time.Time, error) {
	return f.timestamps[actionType], nil
}

// recordingSnapshotStore captures persisted snapshots and serves trends.
type recordingSnapshotStore struct {
	inserted   []*models.DashboardSnapshot
	trend      []models.TrendPoint
	trendCalls int
}

func (r *recordingSnapshotStore) InsertSnapshots(ctx context.Context, snapshots []*models.DashboardSnapshot) error {
	r.inserted = append(r.inserted, snapshots...)
	return nil
}

func (r *recordingSnapshotStore) TrendSeries(ctx context.Context, projectID, metricName string, from, to time.Time) ([]models.TrendPoint, error) {
	r.trendCalls++
	return r.trend, nil
}

// allowAll grants every permission.
type allowAll struct{}

func (allowAll) HasPermission(ctx context.Context, userID, projectID string, perm models.Permission) error {
	return nil
}

// denyAll denies every permission.
type denyAll struct{}

func (denyAll) HasPermission(ctx context.Context, userID, projectID string, perm models.Permission) error {
	return apperr.Authorization(userID, projectID, perm.String())
}

func snapshotByName(snapshots []*models.DashboardSnapshot, name string) *models.DashboardSnapshot {
	for _, s := range snapshots {
		if s.MetricName == name {
			return s
		}
	}
	return nil
}

func TestRecomputeDashboard(t *testing.T) {
	ctx := context.Background()

	t.Run("zero issues persists five zero snapshots", func(t *testing.T) {
		store := &recordingSnapshotStore{}
		engine := New(&fakeActivityStore{}, store, allowAll{}, time.Minute)
		defer engine.Close()

		dto, err := engine.RecomputeDashboard(ctx, "user-1", "proj-empty")
		if err != nil {
			t.Fatalf("RecomputeDashboard failed: %v", err)
		}

		if dto.TotalIssues != 0 || dto.CompletedIssues != 0 || dto.TodoIssues != 0 ||
			dto.InProgressIssues != 0 || dto.CompletionRate != 0 {
			t.Errorf("Empty project DTO not all-zero: %+v", dto)
		}
		if len(store.inserted) != 5 {
			t.Fatalf("Snapshot count = %d, want 5", len(store.inserted))
		}
		for _, name := range models.CoreMetricNames {
			s := snapshotByName(store.inserted, name)
			if s == nil {
				t.Errorf("Missing zero snapshot for %s", name)
				continue
			}
			if s.MetricValue != 0 {
				t.Errorf("Snapshot %s = %v, want 0", name, s.MetricValue)
			}
		}
	})

	t.Run("aggregates and per-user efficiency", func(t *testing.T) {
		activity := &fakeActivityStore{
			active: []string{"i1", "i2", "i3", "i4"},
			statuses: map[string]string{
				"i1": models.StatusDone,
				"i2": models.StatusInProgress,
				"i3": models.ActivityCreated,
				"i4": models.StatusCodeReview,
			},
			creators: map[string]string{
				"i1": "alice",
				"i2": "alice",
				"i3": "bob",
				"i4": "bob",
			},
		}
		store := &recordingSnapshotStore{}
		engine := New(activity, store, allowAll{}, time.Minute)
		defer engine.Close()

		dto, err := engine.RecomputeDashboard(ctx, "user-1", "proj-1")
		if err != nil {
			t.Fatalf("RecomputeDashboard failed: %v", err)
		}

		if dto.TotalIssues != 4 || dto.CompletedIssues != 1 || dto.InProgressIssues != 1 || dto.TodoIssues != 1 {
			t.Errorf("Counts = %+v", dto)
		}
		if dto.CompletionRate != 25 {
			t.Errorf("CompletionRate = %v, want 25", dto.CompletionRate)
		}
		if dto.UserEfficiency["alice"] != 50 {
			t.Errorf("alice efficiency = %v, want 50", dto.UserEfficiency["alice"])
		}
		if dto.UserEfficiency["bob"] != 0 {
			t.Errorf("bob efficiency = %v, want 0", dto.UserEfficiency["bob"])
		}
	})

	t.Run("persisted snapshots agree with the DTO", func(t *testing.T) {
		activity := &fakeActivityStore{
			active: []string{"i1", "i2", "i3"},
			statuses: map[string]string{
				"i1": models.StatusDone,
				"i2": models.StatusDone,
				"i3": models.StatusInProgress,
			},
			creators: map[string]string{"i1": "alice", "i2": "alice", "i3": "alice"},
		}
		store := &recordingSnapshotStore{}
		engine := New(activity, store, allowAll{}, time.Minute)
		defer engine.Close()

		dto, err := engine.RecomputeDashboard(ctx, "user-1", "proj-1")
		if err != nil {
			t.Fatalf("RecomputeDashboard failed: %v", err)
		}

		checks := map[string]float64{
			models.MetricTotalIssues:             float64(dto.TotalIssues),
			models.MetricCompletedIssues:         float64(dto.CompletedIssues),
			models.MetricTodoIssues:              float64(dto.TodoIssues),
			models.MetricInProgressIssues:        float64(dto.InProgressIssues),
			models.MetricCompletionRate:          dto.CompletionRate,
			models.UserEfficiencyMetric("alice"): dto.UserEfficiency["alice"],
		}
		for name, want := range checks {
			s := snapshotByName(store.inserted, name)
			if s == nil {
				t.Errorf("Missing snapshot %s", name)
				continue
			}
			if s.MetricValue != want {
				t.Errorf("Snapshot %s = %v, DTO says %v", name, s.MetricValue, want)
			}
		}
		if len(store.inserted) != 6 {
			t.Errorf("Snapshot count = %d, want 5 core + 1 efficiency", len(store.inserted))
		}
	})

	t.Run("denied user never reaches the store", func(t *testing.T) {
		store := &recordingSnapshotStore{}
		engine := New(&fakeActivityStore{}, store, denyAll{}, time.Minute)
		defer engine.Close()

		_, err := engine.RecomputeDashboard(ctx, "user-1", "proj-1")
		var authErr *apperr.AuthorizationError
		if !errors.As(err, &authErr) {
			t.Fatalf("Expected AuthorizationError, got %v", err)
		}
		if len(store.inserted) != 0 {
			t.Error("Snapshots persisted despite denial")
		}
	})
}

func TestCycleTimes(t *testing.T) {
	ctx := context.Background()

	t0 := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	activity := &fakeActivityStore{
		timestamps: map[string]map[string]time.Time{
			models.ActivityCreated: {
				"i1": t0,
				"i2": t0,
			},
			models.StatusDone: {
				"i1": t0.Add(36 * time.Hour), // 1.5 days
				"i3": t0.Add(48 * time.Hour), // no Created entry
			},
		},
	}
	engine := New(activity, &recordingSnapshotStore{}, allowAll{}, time.Minute)
	defer engine.Close()

	times, err := engine.CycleTimes(ctx, "user-1", "proj-1", []string{"i1", "i2", "i3"})
	if err != nil {
		t.Fatalf("CycleTimes failed: %v", err)
	}

	t.Run("completed issue yields fractional days", func(t *testing.T) {
		got, ok := times["i1"]
		if !ok {
			t.Fatal("i1 missing from cycle times")
		}
		if math.Abs(got-1.5) > 1e-9 {
			t.Errorf("i1 cycle time = %v, want 1.5", got)
		}
	})

	t.Run("issues missing an endpoint are silently excluded", func(t *testing.T) {
		if _, ok := times["i2"]; ok {
			t.Error("i2 (never completed) present in cycle times")
		}
		if _, ok := times["i3"]; ok {
			t.Error("i3 (no creation entry) present in cycle times")
		}
	})
}

func TestMetricTrend(t *testing.T) {
	ctx := context.Background()

	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(7 * 24 * time.Hour)

	store := &recordingSnapshotStore{
		trend: []models.TrendPoint{
			{Date: from, Value: 10},
			{Date: from.Add(24 * time.Hour), Value: 12},
		},
	}
	engine := New(&fakeActivityStore{}, store, allowAll{}, time.Minute)
	defer engine.Close()

	t.Run("returns the chronological series", func(t *testing.T) {
		points, err := engine.MetricTrend(ctx, "user-1", "proj-1", models.MetricTotalIssues, from, to)
		if err != nil {
			t.Fatalf("MetricTrend failed: %v", err)
		}
		if len(points) != 2 || points[0].Value != 10 || points[1].Value != 12 {
			t.Errorf("Trend = %v", points)
		}
	})

	t.Run("repeated queries hit the cache", func(t *testing.T) {
		if _, err := engine.MetricTrend(ctx, "user-1", "proj-1", models.MetricTotalIssues, from, to); err != nil {
			t.Fatalf("MetricTrend failed: %v", err)
		}
		if store.trendCalls != 1 {
			t.Errorf("Store trend calls = %d, want 1", store.trendCalls)
		}
	})

	t.Run("denied user gets AuthorizationError", func(t *testing.T) {
		denied := New(&fakeActivityStore{}, store, denyAll{}, time.Minute)
		defer denied.Close()

		_, err := denied.MetricTrend(ctx, "user-1", "proj-1", models.MetricTotalIssues, from, to)
		var authErr *apperr.AuthorizationError
		if !errors.As(err, &authErr) {
			t.Errorf("Expected AuthorizationError, got %v", err)
		}
	})
}
