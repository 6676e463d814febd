// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

// Package authz resolves user permissions for project-scoped operations.
//
// Permissions live in a BadgerDB cache under three independent key
// families, each with its own TTL:
//
//	user:{userID}:project:{projectID} -> roleID
//	role:{roleID}:permissions         -> permission set
//	role:{roleID}:isOwner             -> owner flag
//
// The Reader follows a strict cache-aside protocol: if any of the three
// pieces is missing, expired, or unreadable, the whole lookup falls back to
// the authoritative role service. The reader never writes the cache; cache
// population is the authoritative service's responsibility, which keeps a
// single writer.
package authz
