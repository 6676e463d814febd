// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

/*
Package models defines the core data structures shared across BoardPulse.

Groups:

  - Sprints: Sprint, SprintIssue, SprintStatus and its transition rules
  - Permissions: Permission, PermissionSet, UserPermissions and the
    "ENTITY:ACTION" wire format shared with the role service
  - Activity: ActivityLogEntry, the append-only log record, plus the
    lifecycle and workflow-status action type constants
  - Analytics: DashboardSnapshot (the persisted metric row),
    DashboardMetrics (the response DTO), TrendPoint
  - API: the APIResponse envelope used by every HTTP endpoint

Types here carry data and local invariants only; cross-entity rules such as
sprint overlap and single sprint membership live in the service packages.
*/
package models
