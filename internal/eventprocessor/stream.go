// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

/*
stream.go - JetStream Stream Provisioning

The activity stream is created (or its configuration updated) before any
publisher or subscriber starts. Initialization is idempotent.
*/

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/boardpulse/internal/config"
	"github.com/tomtom215/boardpulse/internal/logging"
)

// JetStreamContext is the subset of jetstream.JetStream the initializer
// uses, extracted for test fakes.
type JetStreamContext interface {
	Stream(ctx context.Context, name string) (jetstream.Stream, error)
	CreateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
	UpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
}

// StreamInitializer provisions the activity stream.
type StreamInitializer struct {
	js  JetStreamContext
	cfg *config.NATSConfig
}

// NewStreamInitializer builds an initializer.
func NewStreamInitializer(js JetStreamContext, cfg *config.NATSConfig) (*StreamInitializer, error) {
	if js == nil {
		return nil, fmt.Errorf("JetStream context required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("NATS config required")
	}
	return &StreamInitializer{js: js, cfg: cfg}, nil
}

// EnsureStream creates the stream if absent or updates its configuration if
// present. Safe to call on every startup.
func (s *StreamInitializer) EnsureStream(ctx context.Context) (jetstream.Stream, error) {
	retention := time.Duration(s.cfg.RetentionDays) * 24 * time.Hour
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}

	streamCfg := jetstream.StreamConfig{
		Name:        s.cfg.StreamName,
		Subjects:    []string{s.cfg.Topic},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      retention,
		Duplicates:  2 * time.Minute,
		Storage:     jetstream.FileStorage,
		AllowDirect: true,
		Discard:     jetstream.DiscardOld,
	}

	if _, err := s.js.Stream(ctx, s.cfg.StreamName); err == nil {
		stream, err := s.js.UpdateStream(ctx, streamCfg)
		if err != nil {
			return nil, fmt.Errorf("update stream %s: %w", s.cfg.StreamName, err)
		}
		logging.Info().Str("stream", s.cfg.StreamName).Msg("Activity stream configuration updated")
		return stream, nil
	} else if !errors.Is(err, jetstream.ErrStreamNotFound) {
		return nil, fmt.Errorf("check stream %s: %w", s.cfg.StreamName, err)
	}

	stream, err := s.js.CreateStream(ctx, streamCfg)
	if err != nil {
		return nil, fmt.Errorf("create stream %s: %w", s.cfg.StreamName, err)
	}
	logging.Info().Str("stream", s.cfg.StreamName).Str("topic", s.cfg.Topic).Msg("Activity stream created")
	return stream, nil
}
