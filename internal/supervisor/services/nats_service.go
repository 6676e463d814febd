// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

package services

import (
	"context"
)

// NATSServer matches the embedded NATS server's lifecycle. The server is
// already running when it is handed to the wrapper; Serve only has to hold
// it open and shut it down on cancellation.
type NATSServer interface {
	Shutdown()
}

// NATSServerService keeps the embedded NATS server alive under supervision.
type NATSServerService struct {
	server NATSServer
	name   string
}

// NewNATSServerService creates an embedded NATS server service wrapper.
func NewNATSServerService(server NATSServer) *NATSServerService {
	return &NATSServerService{server: server, name: "nats-server"}
}

// Serve implements suture.Service. It blocks until the context is canceled,
// then shuts the server down.
func (s *NATSServerService) Serve(ctx context.Context) error {
	<-ctx.Done()
	s.server.Shutdown()
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor logging.
func (s *NATSServerService) String() string {
	return s.name
}

// EventConsumer matches the activity event consumer's blocking loop.
type EventConsumer interface {
	Serve(ctx context.Context) error
}

// ConsumerService wraps the activity event consumer as a supervised service.
type ConsumerService struct {
	consumer EventConsumer
	name     string
}

// NewConsumerService creates a consumer service wrapper.
func NewConsumerService(consumer EventConsumer) *ConsumerService {
	return &ConsumerService{consumer: consumer, name: "activity-consumer"}
}

// Serve implements suture.Service.
func (c *ConsumerService) Serve(ctx context.Context) error {
	return c.consumer.Serve(ctx)
}

// String implements fmt.Stringer for supervisor logging.
func (c *ConsumerService) String() string {
	return c.name
}
