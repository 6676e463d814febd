// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

// Package apperr defines the shared error taxonomy used across BoardPulse
// components.
//
// Five categories cover every failure a caller can observe:
//
//   - NotFoundError: a referenced entity (project, sprint, issue) is absent
//   - ValidationError: malformed input detected before any mutation
//   - ConflictError: an invariant violation (e.g. overlapping sprint dates)
//   - AuthorizationError: a permission check failed
//   - ServiceUnavailableError: a downstream dependency failed, wrapping the cause
//
// All five implement error and are matchable with errors.As. Validation and
// conflict errors are terminal for the request - callers must not retry them.
package apperr

import (
	"fmt"
	"strings"
)

// NotFoundError indicates a referenced entity does not exist.
type NotFoundError struct {
	// Entity is the kind of thing that was looked up: "project", "sprint", "issue".
	Entity string

	// ID identifies what was requested. For batch lookups it lists every
	// missing ID, comma separated.
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// NotFound builds a NotFoundError for a single entity.
func NotFound(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// NotFoundBatch builds a NotFoundError naming every missing ID from a batch
// lookup. The all-or-nothing contract for batch operations requires reporting
// the complete set, not just the first miss.
func NotFoundBatch(entity string, ids []string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: strings.Join(ids, ",")}
}

// ValidationError indicates malformed input. Detected locally, returned
// synchronously, never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validation builds a ValidationError for a named field.
func Validation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ConflictError indicates an invariant violation with existing state.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// Conflict builds a ConflictError with a human-readable description of the
// conflicting resource.
func Conflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// AuthorizationError indicates a permission check failed. It quotes the
// entity/action pair that was required so the rejection is self-describing.
type AuthorizationError struct {
	UserID     string
	ProjectID  string
	Permission string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("user %s lacks permission %q on project %s", e.UserID, e.Permission, e.ProjectID)
}

// Authorization builds an AuthorizationError for a denied entity:action pair.
func Authorization(userID, projectID, permission string) *AuthorizationError {
	return &AuthorizationError{UserID: userID, ProjectID: projectID, Permission: permission}
}

// ServiceUnavailableError indicates a downstream dependency failure. The
// original cause is preserved for errors.Is/As chains.
type ServiceUnavailableError struct {
	Service string
	Cause   error
}

func (e *ServiceUnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Service, e.Cause)
}

func (e *ServiceUnavailableError) Unwrap() error {
	return e.Cause
}

// ServiceUnavailable wraps a downstream failure with the service name.
func ServiceUnavailable(service string, cause error) *ServiceUnavailableError {
	return &ServiceUnavailableError{Service: service, Cause: cause}
}
