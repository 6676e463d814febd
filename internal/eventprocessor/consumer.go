// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

/*
consumer.go - Activity Event Consumer

Durable JetStream subscriber that appends events to the activity log.
Delivery is at-least-once: the append is idempotent by event ID, so a
redelivered message lands on the existing row and is acked again.

Malformed messages are acked, not nacked. Redelivering a message that can
never parse would loop forever; the event is logged and dropped instead.
*/

package eventprocessor

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/boardpulse/internal/config"
	"github.com/tomtom215/boardpulse/internal/logging"
	"github.com/tomtom215/boardpulse/internal/metrics"
	"github.com/tomtom215/boardpulse/internal/models"
)

// ActivityAppender is the storage surface the consumer writes through.
type ActivityAppender interface {
	AppendActivity(ctx context.Context, e *models.ActivityLogEntry) error
}

// Consumer subscribes to the activity topic and appends events to the log.
type Consumer struct {
	subscriber message.Subscriber
	appender   ActivityAppender
	topic      string
}

// NewConsumer creates a durable queue-group subscriber so multiple instances
// share the work without double-appending. AckAsync stays off; the append
// must be durable before the ack leaves.
func NewConsumer(cfg *config.NATSConfig, appender ActivityAppender, logger watermill.LoggerAdapter) (*Consumer, error) {
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("Consumer disconnected", err, nil)
			}
		}),
	}

	subOpts := []natsgo.SubOpt{
		natsgo.MaxDeliver(5),
		natsgo.MaxAckPending(256),
		natsgo.DeliverNew(),
		natsgo.BindStream(cfg.StreamName),
	}

	wmConfig := wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: 1,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:         false,
			AutoProvision:    false,
			AckAsync:         false,
			SubscribeOptions: subOpts,
			DurablePrefix:    cfg.DurableName,
		},
	}

	sub, err := wmNats.NewSubscriber(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create activity subscriber: %w", err)
	}

	return &Consumer{
		subscriber: sub,
		appender:   appender,
		topic:      cfg.Topic,
	}, nil
}

// Serve implements suture.Service. It consumes until the context is
// canceled.
func (c *Consumer) Serve(ctx context.Context) error {
	logging.Info().Str("topic", c.topic).Msg("Starting activity event consumer")

	messages, err := c.subscriber.Subscribe(ctx, c.topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", c.topic, err)
	}

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Activity event consumer stopped")
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return fmt.Errorf("activity subscription channel closed")
			}
			c.handle(ctx, msg)
		}
	}
}

// handle processes one delivery. Only a failed append nacks; everything else
// acks so the stream keeps moving.
func (c *Consumer) handle(ctx context.Context, msg *message.Message) {
	event, err := EventFromMessage(msg)
	if err != nil {
		// Poison message. Redelivery cannot fix a parse failure.
		metrics.EventsConsumed.WithLabelValues("invalid").Inc()
		logging.Warn().Err(err).Str("message_id", msg.UUID).Msg("Dropping malformed activity event")
		msg.Ack()
		return
	}

	if err := c.appender.AppendActivity(ctx, event.ToLogEntry()); err != nil {
		metrics.EventsConsumed.WithLabelValues("error").Inc()
		logging.Error().Err(err).Str("event_id", event.EventID).Msg("Activity append failed, requeueing")
		msg.Nack()
		return
	}

	metrics.EventsConsumed.WithLabelValues("success").Inc()
	msg.Ack()
}

// Close shuts the subscriber down.
func (c *Consumer) Close() error {
	return c.subscriber.Close()
}
