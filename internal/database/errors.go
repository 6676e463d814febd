// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

package database

import "errors"

// Sentinel errors returned by store operations. Higher layers translate them
// into the apperr taxonomy; this package stays transport-agnostic.
var (
	// ErrSprintNotFound is returned when a sprint ID does not exist.
	ErrSprintNotFound = errors.New("sprint not found")

	// ErrMembershipNotFound is returned when a sprint<->issue edge does not exist.
	ErrMembershipNotFound = errors.New("sprint membership not found")
)
