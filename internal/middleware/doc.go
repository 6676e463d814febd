// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

// Package middleware provides HTTP middleware shared across API routes:
// request ID propagation and Prometheus request instrumentation.
package middleware
