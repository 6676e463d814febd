// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

// Package api provides the HTTP surface using the Chi router.
//
// Routes are grouped under /api/v1. Caller identity arrives as the
// X-User-ID header; handlers pass it through to the sprint manager and
// analytics engine, which enforce permissions. The package never makes
// authorization decisions itself.
//
// All responses use the models.APIResponse envelope. Domain errors from
// the apperr package are translated to HTTP status codes in one place
// (respondAppError) so handlers stay thin.
package api
