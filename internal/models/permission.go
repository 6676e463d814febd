// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

/*
permission.go - Permission and Authorization Models

This file defines the closed permission model used by the permission cache
reader and every privileged operation.

Key Structures:
  - EntityKind / ActionKind: closed enumerations of protected entities and actions
  - Permission: an (entity, action) pair with the "ENTITY:ACTION" wire format
  - PermissionSet: set container with O(1) membership checks
  - UserPermissions: the full authorization snapshot for a (user, project) pair

Wire Format:
The cache and the authoritative role service exchange permissions as
"ENTITY:ACTION" strings (e.g. "SPRINT:MANAGE"). Permission.String and
ParsePermission preserve that format exactly so cache keys stay compatible
with the legacy writer.
*/

package models

import (
	"fmt"
	"sort"
	"strings"
)

// EntityKind enumerates the protected entity kinds.
type EntityKind string

const (
	EntityProject    EntityKind = "PROJECT"
	EntityIssue      EntityKind = "ISSUE"
	EntitySprint     EntityKind = "SPRINT"
	EntityComment    EntityKind = "COMMENT"
	EntityAttachment EntityKind = "ATTACHMENT"
	EntityTag        EntityKind = "TAG"
	EntityAnalytics  EntityKind = "ANALYTICS"
	EntityLogs       EntityKind = "LOGS"
)

// ActionKind enumerates the protected actions.
type ActionKind string

const (
	ActionView   ActionKind = "VIEW"
	ActionCreate ActionKind = "CREATE"
	ActionEdit   ActionKind = "EDIT"
	ActionDelete ActionKind = "DELETE"
	ActionAssign ActionKind = "ASSIGN"
	ActionManage ActionKind = "MANAGE"
)

// validEntities contains all valid entity kinds for parsing.
var validEntities = map[EntityKind]bool{
	EntityProject:    true,
	EntityIssue:      true,
	EntitySprint:     true,
	EntityComment:    true,
	EntityAttachment: true,
	EntityTag:        true,
	EntityAnalytics:  true,
	EntityLogs:       true,
}

// validActions contains all valid action kinds for parsing.
var validActions = map[ActionKind]bool{
	ActionView:   true,
	ActionCreate: true,
	ActionEdit:   true,
	ActionDelete: true,
	ActionAssign: true,
	ActionManage: true,
}

// Permission is a single (entity, action) authorization unit.
type Permission struct {
	Entity EntityKind
	Action ActionKind
}

// String returns the "ENTITY:ACTION" wire format.
func (p Permission) String() string {
	return string(p.Entity) + ":" + string(p.Action)
}

// ParsePermission parses the "ENTITY:ACTION" wire format. Unknown entities or
// actions are rejected so a corrupted cache entry can never widen access.
func ParsePermission(s string) (Permission, error) {
	entity, action, ok := strings.Cut(s, ":")
	if !ok {
		return Permission{}, fmt.Errorf("malformed permission %q", s)
	}

	p := Permission{Entity: EntityKind(entity), Action: ActionKind(action)}
	if !validEntities[p.Entity] {
		return Permission{}, fmt.Errorf("unknown permission entity %q", entity)
	}
	if !validActions[p.Action] {
		return Permission{}, fmt.Errorf("unknown permission action %q", action)
	}

	return p, nil
}

// PermissionSet holds a set of permissions with O(1) membership checks.
type PermissionSet map[Permission]struct{}

// NewPermissionSet builds a set from individual permissions.
func NewPermissionSet(perms ...Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// ParsePermissionSet parses a slice of wire-format strings into a set.
// Any unparsable member fails the whole parse - a partially understood
// permission set is untrustworthy.
func ParsePermissionSet(raw []string) (PermissionSet, error) {
	set := make(PermissionSet, len(raw))
	for _, s := range raw {
		p, err := ParsePermission(s)
		if err != nil {
			return nil, err
		}
		set[p] = struct{}{}
	}
	return set, nil
}

// Has reports whether the set contains the permission.
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Add inserts a permission into the set.
func (s PermissionSet) Add(p Permission) {
	s[p] = struct{}{}
}

// Strings returns the sorted wire-format representation of the set.
func (s PermissionSet) Strings() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p.String())
	}
	sort.Strings(out)
	return out
}

// UserPermissions is the complete authorization snapshot for a user on a
// project. It is ephemeral: reconstructed per check, never persisted by this
// service.
type UserPermissions struct {
	UserID      string        `json:"user_id"`
	ProjectID   string        `json:"project_id"`
	Permissions PermissionSet `json:"-"`
	IsOwner     bool          `json:"is_owner"`
}

// Has reports whether the snapshot grants the (entity, action) pair.
func (up *UserPermissions) Has(entity EntityKind, action ActionKind) bool {
	return up.Permissions.Has(Permission{Entity: entity, Action: action})
}
