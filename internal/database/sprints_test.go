// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/boardpulse/internal/models"
)

func testSprint(projectID string, start, end time.Time) *models.Sprint {
	return models.NewSprint(projectID, "Sprint", "Ship it", start, &end)
}

func TestSprintCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	t.Run("insert and get round-trip", func(t *testing.T) {
		s := testSprint("proj-1", start, end)
		if err := db.InsertSprint(ctx, s); err != nil {
			t.Fatalf("InsertSprint failed: %v", err)
		}

		got, err := db.GetSprint(ctx, s.ID)
		if err != nil {
			t.Fatalf("GetSprint failed: %v", err)
		}
		if got.ProjectID != "proj-1" || got.Name != "Sprint" || got.Goal != "Ship it" {
			t.Errorf("Round-trip mismatch: got %+v", got)
		}
		if got.Status != models.SprintPlanned {
			t.Errorf("New sprint status = %s, want %s", got.Status, models.SprintPlanned)
		}
		if got.EndDate == nil || !got.EndDate.Equal(end) {
			t.Errorf("EndDate = %v, want %v", got.EndDate, end)
		}
	})

	t.Run("get unknown sprint returns ErrSprintNotFound", func(t *testing.T) {
		if _, err := db.GetSprint(ctx, "does-not-exist"); !errors.Is(err, ErrSprintNotFound) {
			t.Errorf("Expected ErrSprintNotFound, got %v", err)
		}
	})

	t.Run("update persists changed fields", func(t *testing.T) {
		s := testSprint("proj-2", start, end)
		if err := db.InsertSprint(ctx, s); err != nil {
			t.Fatalf("InsertSprint failed: %v", err)
		}

		s.Name = "Renamed"
		s.Goal = ""
		if err := db.UpdateSprint(ctx, s); err != nil {
			t.Fatalf("UpdateSprint failed: %v", err)
		}

		got, err := db.GetSprint(ctx, s.ID)
		if err != nil {
			t.Fatalf("GetSprint failed: %v", err)
		}
		if got.Name != "Renamed" || got.Goal != "" {
			t.Errorf("Update not persisted: got %+v", got)
		}
	})

	t.Run("update unknown sprint returns ErrSprintNotFound", func(t *testing.T) {
		s := testSprint("proj-2", start, end)
		if err := db.UpdateSprint(ctx, s); !errors.Is(err, ErrSprintNotFound) {
			t.Errorf("Expected ErrSprintNotFound, got %v", err)
		}
	})

	t.Run("delete removes sprint and memberships", func(t *testing.T) {
		s := testSprint("proj-3", start, end)
		if err := db.InsertSprint(ctx, s); err != nil {
			t.Fatalf("InsertSprint failed: %v", err)
		}
		if err := db.MoveIssuesToSprint(ctx, s.ID, "user-1", []string{"issue-1", "issue-2"}); err != nil {
			t.Fatalf("MoveIssuesToSprint failed: %v", err)
		}

		if err := db.DeleteSprint(ctx, s.ID); err != nil {
			t.Fatalf("DeleteSprint failed: %v", err)
		}

		if _, err := db.GetSprint(ctx, s.ID); !errors.Is(err, ErrSprintNotFound) {
			t.Errorf("Sprint still present after delete: %v", err)
		}
		ids, err := db.IssueIDsBySprint(ctx, s.ID)
		if err != nil {
			t.Fatalf("IssueIDsBySprint failed: %v", err)
		}
		if len(ids) != 0 {
			t.Errorf("Memberships survived delete: %v", ids)
		}
	})
}

func TestTransitionSprintStatus(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 4, 14, 0, 0, 0, 0, time.UTC)

	t.Run("guarded transition succeeds once", func(t *testing.T) {
		s := testSprint("proj-t", start, end)
		if err := db.InsertSprint(ctx, s); err != nil {
			t.Fatalf("InsertSprint failed: %v", err)
		}

		actual := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
		ok, err := db.TransitionSprintStatus(ctx, s.ID, models.SprintPlanned, models.SprintActive, &actual)
		if err != nil {
			t.Fatalf("TransitionSprintStatus failed: %v", err)
		}
		if !ok {
			t.Fatal("Expected transition to apply")
		}

		got, err := db.GetSprint(ctx, s.ID)
		if err != nil {
			t.Fatalf("GetSprint failed: %v", err)
		}
		if got.Status != models.SprintActive {
			t.Errorf("Status = %s, want %s", got.Status, models.SprintActive)
		}
		if !got.StartDate.Equal(actual) {
			t.Errorf("StartDate = %v, want overwritten to %v", got.StartDate, actual)
		}

		// Second attempt with the same precondition must be a no-op.
		ok, err = db.TransitionSprintStatus(ctx, s.ID, models.SprintPlanned, models.SprintActive, &actual)
		if err != nil {
			t.Fatalf("Second TransitionSprintStatus failed: %v", err)
		}
		if ok {
			t.Error("Expected second transition to report not applied")
		}
	})

	t.Run("transition without start override keeps start date", func(t *testing.T) {
		s := testSprint("proj-t2", start, end)
		s.Status = models.SprintActive
		if err := db.InsertSprint(ctx, s); err != nil {
			t.Fatalf("InsertSprint failed: %v", err)
		}

		ok, err := db.TransitionSprintStatus(ctx, s.ID, models.SprintActive, models.SprintCompleted, nil)
		if err != nil {
			t.Fatalf("TransitionSprintStatus failed: %v", err)
		}
		if !ok {
			t.Fatal("Expected transition to apply")
		}

		got, err := db.GetSprint(ctx, s.ID)
		if err != nil {
			t.Fatalf("GetSprint failed: %v", err)
		}
		if got.Status != models.SprintCompleted {
			t.Errorf("Status = %s, want %s", got.Status, models.SprintCompleted)
		}
		if !got.StartDate.Equal(start) {
			t.Errorf("StartDate changed to %v, want %v", got.StartDate, start)
		}
	})
}

func TestOverlappingSprints(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	existing := testSprint("proj-o",
		time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 5, 14, 0, 0, 0, 0, time.UTC))
	if err := db.InsertSprint(ctx, existing); err != nil {
		t.Fatalf("InsertSprint failed: %v", err)
	}

	cases := []struct {
		name    string
		start   time.Time
		end     time.Time
		overlap bool
	}{
		{
			name:    "fully inside",
			start:   time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC),
			end:     time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC),
			overlap: true,
		},
		{
			name:    "shared boundary day counts as overlap",
			start:   time.Date(2026, 5, 14, 0, 0, 0, 0, time.UTC),
			end:     time.Date(2026, 5, 28, 0, 0, 0, 0, time.UTC),
			overlap: true,
		},
		{
			name:    "strictly after",
			start:   time.Date(2026, 5, 15, 0, 0, 0, 0, time.UTC),
			end:     time.Date(2026, 5, 28, 0, 0, 0, 0, time.UTC),
			overlap: false,
		},
		{
			name:    "strictly before",
			start:   time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
			end:     time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC),
			overlap: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			found, err := db.OverlappingSprints(ctx, "proj-o", tc.start, tc.end, "")
			if err != nil {
				t.Fatalf("OverlappingSprints failed: %v", err)
			}
			if got := len(found) > 0; got != tc.overlap {
				t.Errorf("Overlap = %v, want %v", got, tc.overlap)
			}
		})
	}

	t.Run("exclude self when revalidating an update", func(t *testing.T) {
		found, err := db.OverlappingSprints(ctx, "proj-o",
			time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 5, 14, 0, 0, 0, 0, time.UTC),
			existing.ID)
		if err != nil {
			t.Fatalf("OverlappingSprints failed: %v", err)
		}
		if len(found) != 0 {
			t.Errorf("Sprint conflicts with itself: %v", found)
		}
	})

	t.Run("different project never conflicts", func(t *testing.T) {
		found, err := db.OverlappingSprints(ctx, "proj-other",
			time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 5, 14, 0, 0, 0, 0, time.UTC),
			"")
		if err != nil {
			t.Fatalf("OverlappingSprints failed: %v", err)
		}
		if len(found) != 0 {
			t.Errorf("Cross-project overlap reported: %v", found)
		}
	})

	t.Run("sprint without end date is ignored", func(t *testing.T) {
		open := models.NewSprint("proj-open", "Open", "", time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), nil)
		if err := db.InsertSprint(ctx, open); err != nil {
			t.Fatalf("InsertSprint failed: %v", err)
		}
		found, err := db.OverlappingSprints(ctx, "proj-open",
			time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 5, 14, 0, 0, 0, 0, time.UTC),
			"")
		if err != nil {
			t.Fatalf("OverlappingSprints failed: %v", err)
		}
		if len(found) != 0 {
			t.Errorf("Open-ended sprint reported as overlap: %v", found)
		}
	})
}

func TestSprintDeadlineQueries(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	duePlanned := testSprint("proj-d",
		now.Add(-24*time.Hour), now.Add(7*24*time.Hour))
	futurePlanned := testSprint("proj-d",
		now.Add(48*time.Hour), now.Add(14*24*time.Hour))
	expiredActive := testSprint("proj-d",
		now.Add(-14*24*time.Hour), now.Add(-time.Hour))
	expiredActive.Status = models.SprintActive
	runningActive := testSprint("proj-d2",
		now.Add(-24*time.Hour), now.Add(5*24*time.Hour))
	runningActive.Status = models.SprintActive

	for _, s := range []*models.Sprint{duePlanned, futurePlanned, expiredActive, runningActive} {
		if err := db.InsertSprint(ctx, s); err != nil {
			t.Fatalf("InsertSprint failed: %v", err)
		}
	}

	t.Run("planned sprints due by now", func(t *testing.T) {
		due, err := db.PlannedSprintsDueBy(ctx, now)
		if err != nil {
			t.Fatalf("PlannedSprintsDueBy failed: %v", err)
		}
		if len(due) != 1 || due[0].ID != duePlanned.ID {
			t.Errorf("Due planned = %v, want only %s", due, duePlanned.ID)
		}
	})

	t.Run("active sprints expired by now", func(t *testing.T) {
		expired, err := db.ActiveSprintsExpiredBy(ctx, now)
		if err != nil {
			t.Fatalf("ActiveSprintsExpiredBy failed: %v", err)
		}
		if len(expired) != 1 || expired[0].ID != expiredActive.ID {
			t.Errorf("Expired active = %v, want only %s", expired, expiredActive.ID)
		}
	})
}

func TestSprintMembership(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 7, 14, 0, 0, 0, 0, time.UTC)

	first := testSprint("proj-m", start, end)
	second := testSprint("proj-m",
		time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 7, 28, 0, 0, 0, 0, time.UTC))
	for _, s := range []*models.Sprint{first, second} {
		if err := db.InsertSprint(ctx, s); err != nil {
			t.Fatalf("InsertSprint failed: %v", err)
		}
	}

	t.Run("moving issues replaces prior membership", func(t *testing.T) {
		if err := db.MoveIssuesToSprint(ctx, first.ID, "user-1", []string{"issue-a", "issue-b"}); err != nil {
			t.Fatalf("MoveIssuesToSprint failed: %v", err)
		}
		if err := db.MoveIssuesToSprint(ctx, second.ID, "user-2", []string{"issue-a"}); err != nil {
			t.Fatalf("MoveIssuesToSprint failed: %v", err)
		}

		sprintID, err := db.SprintIDByIssue(ctx, "issue-a")
		if err != nil {
			t.Fatalf("SprintIDByIssue failed: %v", err)
		}
		if sprintID != second.ID {
			t.Errorf("issue-a in sprint %s, want %s", sprintID, second.ID)
		}

		firstIssues, err := db.IssueIDsBySprint(ctx, first.ID)
		if err != nil {
			t.Fatalf("IssueIDsBySprint failed: %v", err)
		}
		if len(firstIssues) != 1 || firstIssues[0] != "issue-b" {
			t.Errorf("First sprint issues = %v, want [issue-b]", firstIssues)
		}
	})

	t.Run("issue not in any sprint reports backlog", func(t *testing.T) {
		sprintID, err := db.SprintIDByIssue(ctx, "issue-unassigned")
		if err != nil {
			t.Fatalf("SprintIDByIssue failed: %v", err)
		}
		if sprintID != "" {
			t.Errorf("Backlog issue reported in sprint %s", sprintID)
		}
	})

	t.Run("removing issue from sprint", func(t *testing.T) {
		if err := db.RemoveIssueFromSprint(ctx, first.ID, "issue-b"); err != nil {
			t.Fatalf("RemoveIssueFromSprint failed: %v", err)
		}
		if err := db.RemoveIssueFromSprint(ctx, first.ID, "issue-b"); !errors.Is(err, ErrMembershipNotFound) {
			t.Errorf("Expected ErrMembershipNotFound, got %v", err)
		}
	})
}
