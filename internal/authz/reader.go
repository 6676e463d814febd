// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

/*
reader.go - Cache-Aside Permission Reader

Resolution reads three cache keys in sequence: role assignment, then the
role's permission set and owner flag. ANY missing or unreadable piece sends
the whole lookup to the authoritative role service. A role ID without its
permission set is untrustworthy, never "no permissions": the partial result
is discarded rather than combined with fallback data.

The reader never writes the cache. Cache transport errors are treated the
same as misses; a store that cannot answer is a store that returned nothing.
*/

package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/boardpulse/internal/apperr"
	"github.com/tomtom215/boardpulse/internal/logging"
	"github.com/tomtom215/boardpulse/internal/metrics"
	"github.com/tomtom215/boardpulse/internal/models"
)

// PermissionCache is the read surface of the permission store.
type PermissionCache interface {
	RoleID(ctx context.Context, userID, projectID string) (string, error)
	Permissions(ctx context.Context, roleID string) ([]string, error)
	IsOwner(ctx context.Context, roleID string) (bool, error)
}

// Reader resolves user permissions cache-aside.
type Reader struct {
	cache PermissionCache
	roles RoleProvider
}

// NewReader builds a Reader over the given cache and authoritative provider.
func NewReader(cache PermissionCache, roles RoleProvider) *Reader {
	return &Reader{cache: cache, roles: roles}
}

// GetUserPermissions resolves the full permission record for a user/project
// pair, from cache when all three pieces are present, otherwise from the
// authoritative role service.
func (r *Reader) GetUserPermissions(ctx context.Context, userID, projectID string) (*models.UserPermissions, error) {
	roleID, err := r.cache.RoleID(ctx, userID, projectID)
	if err != nil || roleID == "" {
		return r.fallback(ctx, userID, projectID, "role_id", err)
	}
	metrics.PermCacheReads.WithLabelValues("role_id", "hit").Inc()

	rawPerms, err := r.cache.Permissions(ctx, roleID)
	if err != nil || len(rawPerms) == 0 {
		return r.fallback(ctx, userID, projectID, "permissions", err)
	}
	metrics.PermCacheReads.WithLabelValues("permissions", "hit").Inc()

	isOwner, err := r.cache.IsOwner(ctx, roleID)
	if err != nil {
		return r.fallback(ctx, userID, projectID, "is_owner", err)
	}
	metrics.PermCacheReads.WithLabelValues("is_owner", "hit").Inc()

	perms, err := models.ParsePermissionSet(rawPerms)
	if err != nil {
		// An unparsable cached set is as untrustworthy as a missing one.
		return r.fallback(ctx, userID, projectID, "permissions_parse", err)
	}

	return &models.UserPermissions{
		UserID:      userID,
		ProjectID:   projectID,
		Permissions: perms,
		IsOwner:     isOwner,
	}, nil
}

// fallback fetches the full record from the authoritative service. The
// result is returned directly, never written back into the cache.
func (r *Reader) fallback(ctx context.Context, userID, projectID, missingPiece string, cause error) (*models.UserPermissions, error) {
	metrics.PermCacheReads.WithLabelValues(missingPiece, "miss").Inc()
	metrics.PermCacheFallbacks.WithLabelValues(missingPiece).Inc()

	if cause != nil && !errors.Is(cause, ErrCacheMiss) {
		logging.Debug().
			Err(cause).
			Str("user_id", userID).
			Str("project_id", projectID).
			Str("piece", missingPiece).
			Msg("Permission cache read failed, treating as miss")
	}

	up, err := r.roles.UserPermissions(ctx, userID, projectID)
	if err != nil {
		return nil, fmt.Errorf("authoritative permission lookup for user %s: %w", userID, err)
	}
	return up, nil
}

// HasPermission resolves the user's permissions and fails with an
// AuthorizationError when the required permission is absent.
func (r *Reader) HasPermission(ctx context.Context, userID, projectID string, perm models.Permission) error {
	up, err := r.GetUserPermissions(ctx, userID, projectID)
	if err != nil {
		return err
	}

	allowed := up.Permissions.Has(perm)
	metrics.RecordAuthzDecision(perm.String(), allowed)
	if !allowed {
		return apperr.Authorization(userID, projectID, perm.String())
	}
	return nil
}
