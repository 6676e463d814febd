// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

package database

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tomtom215/boardpulse/internal/models"
)

// appendEntry writes one activity entry with a controlled timestamp.
func appendEntry(t *testing.T, db *DB, projectID, userID, actionType, entityID string, at time.Time) *models.ActivityLogEntry {
	t.Helper()
	e := &models.ActivityLogEntry{
		ID:         uuid.New().String(),
		ProjectID:  projectID,
		UserID:     userID,
		ActionType: actionType,
		EntityType: models.EntityTypeIssue,
		EntityID:   entityID,
		CreatedAt:  at,
	}
	if err := db.AppendActivity(context.Background(), e); err != nil {
		t.Fatalf("AppendActivity failed: %v", err)
	}
	return e
}

func TestAppendActivity(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	t.Run("duplicate entry IDs are ignored", func(t *testing.T) {
		e := appendEntry(t, db, "proj-a", "user-1", models.ActivityCreated, "issue-1", time.Now().UTC())

		// Replaying the same event must not fail or duplicate the row.
		if err := db.AppendActivity(ctx, e); err != nil {
			t.Fatalf("Replayed AppendActivity failed: %v", err)
		}

		entries, err := db.QueryActivity(ctx, models.ActivityFilter{ProjectID: "proj-a"})
		if err != nil {
			t.Fatalf("QueryActivity failed: %v", err)
		}
		if len(entries) != 1 {
			t.Errorf("Entry count = %d, want 1 after replay", len(entries))
		}
	})
}

func TestQueryActivity(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	appendEntry(t, db, "proj-q", "user-1", models.ActivityCreated, "issue-1", base)
	appendEntry(t, db, "proj-q", "user-2", models.ActivityCreated, "issue-2", base.Add(time.Hour))
	appendEntry(t, db, "proj-q", "user-1", models.StatusDone, "issue-1", base.Add(2*time.Hour))
	appendEntry(t, db, "proj-other", "user-1", models.ActivityCreated, "issue-3", base)

	t.Run("filter by project", func(t *testing.T) {
		entries, err := db.QueryActivity(ctx, models.ActivityFilter{ProjectID: "proj-q"})
		if err != nil {
			t.Fatalf("QueryActivity failed: %v", err)
		}
		if len(entries) != 3 {
			t.Errorf("Entry count = %d, want 3", len(entries))
		}
	})

	t.Run("newest first ordering", func(t *testing.T) {
		entries, err := db.QueryActivity(ctx, models.ActivityFilter{ProjectID: "proj-q"})
		if err != nil {
			t.Fatalf("QueryActivity failed: %v", err)
		}
		for i := 1; i < len(entries); i++ {
			if entries[i].CreatedAt.After(entries[i-1].CreatedAt) {
				t.Errorf("Entries out of order at index %d", i)
			}
		}
	})

	t.Run("filter by user and action", func(t *testing.T) {
		entries, err := db.QueryActivity(ctx, models.ActivityFilter{
			ProjectID:  "proj-q",
			UserID:     "user-1",
			ActionType: models.StatusDone,
		})
		if err != nil {
			t.Fatalf("QueryActivity failed: %v", err)
		}
		if len(entries) != 1 || entries[0].EntityID != "issue-1" {
			t.Errorf("Filtered entries = %v", entries)
		}
	})

	t.Run("time window and pagination", func(t *testing.T) {
		from := base.Add(30 * time.Minute)
		entries, err := db.QueryActivity(ctx, models.ActivityFilter{
			ProjectID: "proj-q",
			From:      &from,
			Limit:     1,
		})
		if err != nil {
			t.Fatalf("QueryActivity failed: %v", err)
		}
		if len(entries) != 1 || entries[0].ActionType != models.StatusDone {
			t.Errorf("Windowed page = %v", entries)
		}
	})
}

func TestActiveIssueIDs(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC)
	appendEntry(t, db, "proj-s", "user-1", models.ActivityCreated, "issue-live", base)
	appendEntry(t, db, "proj-s", "user-1", models.ActivityCreated, "issue-gone", base.Add(time.Minute))
	appendEntry(t, db, "proj-s", "user-2", models.ActivityDeleted, "issue-gone", base.Add(time.Hour))

	t.Run("deleted issues are excluded", func(t *testing.T) {
		ids, err := db.ActiveIssueIDs(ctx, "proj-s")
		if err != nil {
			t.Fatalf("ActiveIssueIDs failed: %v", err)
		}
		if len(ids) != 1 || ids[0] != "issue-live" {
			t.Errorf("Active set = %v, want [issue-live]", ids)
		}
	})

	t.Run("empty project yields empty set", func(t *testing.T) {
		ids, err := db.ActiveIssueIDs(ctx, "proj-empty")
		if err != nil {
			t.Fatalf("ActiveIssueIDs failed: %v", err)
		}
		if len(ids) != 0 {
			t.Errorf("Active set = %v, want empty", ids)
		}
	})
}

func TestLatestIssueStatuses(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)

	// issue-1: Created then IN_PROGRESS then DONE. Latest must win.
	appendEntry(t, db, "proj-l", "user-1", models.ActivityCreated, "issue-1", base)
	appendEntry(t, db, "proj-l", "user-1", models.StatusInProgress, "issue-1", base.Add(time.Hour))
	appendEntry(t, db, "proj-l", "user-1", models.StatusDone, "issue-1", base.Add(2*time.Hour))

	// issue-2: non-status noise after a status entry must not change the projection.
	appendEntry(t, db, "proj-l", "user-2", models.ActivityCreated, "issue-2", base)
	appendEntry(t, db, "proj-l", "user-2", models.StatusCodeReview, "issue-2", base.Add(time.Hour))
	appendEntry(t, db, "proj-l", "user-2", models.ActivityUpdated, "issue-2", base.Add(3*time.Hour))

	// issue-3: two status entries with identical timestamps; insertion order wins.
	appendEntry(t, db, "proj-l", "user-3", models.StatusQA, "issue-3", base)
	appendEntry(t, db, "proj-l", "user-3", models.StatusStaging, "issue-3", base)

	t.Run("latest status per issue", func(t *testing.T) {
		statuses, err := db.LatestIssueStatuses(ctx, "proj-l", []string{"issue-1", "issue-2", "issue-3"})
		if err != nil {
			t.Fatalf("LatestIssueStatuses failed: %v", err)
		}
		if statuses["issue-1"] != models.StatusDone {
			t.Errorf("issue-1 status = %s, want %s", statuses["issue-1"], models.StatusDone)
		}
		if statuses["issue-2"] != models.StatusCodeReview {
			t.Errorf("issue-2 status = %s, want %s", statuses["issue-2"], models.StatusCodeReview)
		}
		if statuses["issue-3"] != models.StatusStaging {
			t.Errorf("issue-3 status = %s, want %s (insertion order tie-break)", statuses["issue-3"], models.StatusStaging)
		}
	})

	t.Run("empty issue list short-circuits", func(t *testing.T) {
		statuses, err := db.LatestIssueStatuses(ctx, "proj-l", nil)
		if err != nil {
			t.Fatalf("LatestIssueStatuses failed: %v", err)
		}
		if len(statuses) != 0 {
			t.Errorf("Statuses = %v, want empty", statuses)
		}
	})
}

func TestIssueCreatorsAndTimestamps(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	created := time.Date(2026, 8, 4, 9, 0, 0, 0, time.UTC)
	done := created.Add(36 * time.Hour)

	appendEntry(t, db, "proj-c", "alice", models.ActivityCreated, "issue-1", created)
	appendEntry(t, db, "proj-c", "bob", models.StatusDone, "issue-1", done)
	appendEntry(t, db, "proj-c", "bob", models.ActivityCreated, "issue-2", created.Add(time.Hour))

	t.Run("creators map to the Created entry author", func(t *testing.T) {
		creators, err := db.IssueCreators(ctx, "proj-c", []string{"issue-1", "issue-2"})
		if err != nil {
			t.Fatalf("IssueCreators failed: %v", err)
		}
		if creators["issue-1"] != "alice" || creators["issue-2"] != "bob" {
			t.Errorf("Creators = %v", creators)
		}
	})

	t.Run("done timestamps exclude issues never completed", func(t *testing.T) {
		stamps, err := db.IssueActionTimestamps(ctx, "proj-c", models.StatusDone, []string{"issue-1", "issue-2"})
		if err != nil {
			t.Fatalf("IssueActionTimestamps failed: %v", err)
		}
		if len(stamps) != 1 {
			t.Fatalf("Timestamp count = %d, want 1", len(stamps))
		}
		if !stamps["issue-1"].Equal(done) {
			t.Errorf("issue-1 done at %v, want %v", stamps["issue-1"], done)
		}
	})
}
