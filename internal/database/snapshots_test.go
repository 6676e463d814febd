// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

package database

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/boardpulse/internal/models"
)

func TestSnapshots(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	day1 := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)
	day3 := day1.Add(48 * time.Hour)

	batch1 := []*models.DashboardSnapshot{
		models.NewDashboardSnapshot("proj-s", models.MetricTotalIssues, 10, day1),
		models.NewDashboardSnapshot("proj-s", models.MetricCompletionRate, 20, day1),
	}
	batch2 := []*models.DashboardSnapshot{
		models.NewDashboardSnapshot("proj-s", models.MetricTotalIssues, 12, day2),
		models.NewDashboardSnapshot("proj-s", models.MetricCompletionRate, 25, day2),
	}
	batch3 := []*models.DashboardSnapshot{
		models.NewDashboardSnapshot("proj-s", models.MetricCompletionRate, 40, day3),
	}

	for _, batch := range [][]*models.DashboardSnapshot{batch1, batch2, batch3} {
		if err := db.InsertSnapshots(ctx, batch); err != nil {
			t.Fatalf("InsertSnapshots failed: %v", err)
		}
	}

	t.Run("empty batch is a no-op", func(t *testing.T) {
		if err := db.InsertSnapshots(ctx, nil); err != nil {
			t.Errorf("InsertSnapshots(nil) failed: %v", err)
		}
	})

	t.Run("trend series is chronological and range-bounded", func(t *testing.T) {
		points, err := db.TrendSeries(ctx, "proj-s", models.MetricCompletionRate, day1, day2)
		if err != nil {
			t.Fatalf("TrendSeries failed: %v", err)
		}
		if len(points) != 2 {
			t.Fatalf("Point count = %d, want 2", len(points))
		}
		if points[0].Value != 20 || points[1].Value != 25 {
			t.Errorf("Trend values = %v", points)
		}
		if !points[0].Date.Before(points[1].Date) {
			t.Error("Trend points out of chronological order")
		}
	})

	t.Run("trend series for unknown metric is empty", func(t *testing.T) {
		points, err := db.TrendSeries(ctx, "proj-s", "no_such_metric", day1, day3)
		if err != nil {
			t.Fatalf("TrendSeries failed: %v", err)
		}
		if len(points) != 0 {
			t.Errorf("Points = %v, want empty", points)
		}
	})

	t.Run("latest snapshots pick newest row per metric", func(t *testing.T) {
		latest, err := db.LatestSnapshots(ctx, "proj-s")
		if err != nil {
			t.Fatalf("LatestSnapshots failed: %v", err)
		}
		if got := latest[models.MetricTotalIssues]; got == nil || got.MetricValue != 12 {
			t.Errorf("Latest total_issues = %+v, want value 12", got)
		}
		if got := latest[models.MetricCompletionRate]; got == nil || got.MetricValue != 40 {
			t.Errorf("Latest completion_rate = %+v, want value 40", got)
		}
	})
}
