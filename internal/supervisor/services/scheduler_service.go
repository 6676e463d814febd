// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

package services

import (
	"context"
)

// SweepRunner matches the sprint expiration scheduler's blocking loop.
type SweepRunner interface {
	Serve(ctx context.Context) error
}

// SchedulerService wraps the sprint expiration scheduler as a supervised
// service.
type SchedulerService struct {
	runner SweepRunner
	name   string
}

// NewSchedulerService creates a scheduler service wrapper.
func NewSchedulerService(runner SweepRunner) *SchedulerService {
	return &SchedulerService{runner: runner, name: "sprint-scheduler"}
}

// Serve implements suture.Service.
func (s *SchedulerService) Serve(ctx context.Context) error {
	return s.runner.Serve(ctx)
}

// String implements fmt.Stringer for supervisor logging.
func (s *SchedulerService) String() string {
	return s.name
}
