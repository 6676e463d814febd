// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

// Package eventprocessor ingests activity events over NATS JetStream.
//
// Upstream services publish ActivityEvent messages to the activity topic.
// The consumer appends them to the append-only activity log in DuckDB.
// Delivery is at-least-once; the append is idempotent by event ID, so
// redelivered messages are harmless. JetStream's message-ID deduplication
// window additionally suppresses duplicate publishes.
//
// The whole pipeline is optional at runtime: deployments without NATS
// configured accept activity appends synchronously over the HTTP API
// instead.
package eventprocessor
