// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

package models

import (
	"testing"
	"time"
)

func TestSprintStatusTransitions(t *testing.T) {
	tests := []struct {
		from SprintStatus
		to   SprintStatus
		want bool
	}{
		{SprintPlanned, SprintActive, true},
		{SprintActive, SprintCompleted, true},
		{SprintPlanned, SprintCompleted, false}, // no skipping
		{SprintActive, SprintPlanned, false},    // no backward moves
		{SprintCompleted, SprintActive, false},
		{SprintCompleted, SprintPlanned, false},
		{SprintPlanned, SprintPlanned, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestNewSprint(t *testing.T) {
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)

	s := NewSprint("proj-1", "Sprint 1", "Ship it", start, &end)

	if s.ID == "" {
		t.Error("NewSprint should generate an ID")
	}
	if s.Status != SprintPlanned {
		t.Errorf("Status = %s, want Planned", s.Status)
	}
	if !s.StartDate.Equal(start) || s.EndDate == nil || !s.EndDate.Equal(end) {
		t.Errorf("dates not preserved: start=%v end=%v", s.StartDate, s.EndDate)
	}
}

func TestSprintOverlaps(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2026, 9, d, 0, 0, 0, 0, time.UTC)
	}
	end := day(10)
	sprint := &Sprint{StartDate: day(5), EndDate: &end}

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  bool
	}{
		{"fully inside", day(6), day(8), true},
		{"fully covering", day(1), day(20), true},
		{"touching at start bound", day(1), day(5), true},
		{"touching at end bound", day(10), day(15), true},
		{"entirely before", day(1), day(4), false},
		{"entirely after", day(11), day(15), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sprint.Overlaps(tt.start, tt.end); got != tt.want {
				t.Errorf("Overlaps(%v, %v) = %v, want %v", tt.start, tt.end, got, tt.want)
			}
		})
	}

	t.Run("open-ended sprint never overlaps", func(t *testing.T) {
		open := &Sprint{StartDate: day(5)}
		if open.Overlaps(day(1), day(20)) {
			t.Error("sprint without end date should not participate in overlap checks")
		}
	})
}

func TestParsePermission(t *testing.T) {
	t.Run("round-trips the wire format", func(t *testing.T) {
		p, err := ParsePermission("SPRINT:MANAGE")
		if err != nil {
			t.Fatalf("ParsePermission: %v", err)
		}
		if p.Entity != EntitySprint || p.Action != ActionManage {
			t.Errorf("parsed %+v", p)
		}
		if p.String() != "SPRINT:MANAGE" {
			t.Errorf("String() = %q", p.String())
		}
	})

	t.Run("rejects malformed and unknown values", func(t *testing.T) {
		for _, raw := range []string{"", "SPRINT", "SPRINT:", ":MANAGE", "GARBAGE:MANAGE", "SPRINT:NOPE", "sprint:manage"} {
			if _, err := ParsePermission(raw); err == nil {
				t.Errorf("ParsePermission(%q) should fail", raw)
			}
		}
	})
}

func TestParsePermissionSet(t *testing.T) {
	t.Run("valid set", func(t *testing.T) {
		set, err := ParsePermissionSet([]string{"SPRINT:MANAGE", "ANALYTICS:VIEW"})
		if err != nil {
			t.Fatalf("ParsePermissionSet: %v", err)
		}
		if !set.Has(Permission{Entity: EntitySprint, Action: ActionManage}) {
			t.Error("set should contain SPRINT:MANAGE")
		}
		if set.Has(Permission{Entity: EntityIssue, Action: ActionDelete}) {
			t.Error("set should not contain ISSUE:DELETE")
		}
	})

	t.Run("one bad member fails the whole parse", func(t *testing.T) {
		if _, err := ParsePermissionSet([]string{"SPRINT:MANAGE", "BOGUS"}); err == nil {
			t.Error("partially valid set should be rejected")
		}
	})
}

func TestUserPermissionsHas(t *testing.T) {
	up := &UserPermissions{
		UserID:      "alice",
		ProjectID:   "proj-1",
		Permissions: NewPermissionSet(Permission{Entity: EntitySprint, Action: ActionManage}),
	}

	if !up.Has(EntitySprint, ActionManage) {
		t.Error("expected SPRINT:MANAGE to be granted")
	}
	if up.Has(EntityAnalytics, ActionView) {
		t.Error("ANALYTICS:VIEW should not be granted")
	}
}

func TestNewActivityLogEntry(t *testing.T) {
	e := NewActivityLogEntry("proj-1", "alice", ActivityCreated, "issue", "i-1")

	if e.ID == "" {
		t.Error("entry should have a generated ID")
	}
	if e.CreatedAt.IsZero() {
		t.Error("entry should have a timestamp")
	}
	if e.ActionType != "Created" {
		t.Errorf("ActionType = %q", e.ActionType)
	}
}

func TestSnapshotHelpers(t *testing.T) {
	if got := UserEfficiencyMetric("alice"); got != "user_efficiency_alice" {
		t.Errorf("UserEfficiencyMetric = %q", got)
	}

	if len(CoreMetricNames) != 5 {
		t.Errorf("CoreMetricNames has %d entries, want 5", len(CoreMetricNames))
	}

	snap := NewDashboardSnapshot("proj-1", MetricCompletionRate, 25, time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC))
	if snap.ID == "" || snap.CreatedAt.IsZero() {
		t.Errorf("snapshot missing generated fields: %+v", snap)
	}
	if snap.MetricValue != 25 {
		t.Errorf("MetricValue = %v", snap.MetricValue)
	}
}
