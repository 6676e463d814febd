// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

/*
scheduler.go - Sprint Expiration Scheduler

Every tick runs two independent sweeps: auto-start Planned sprints whose
start date has passed, then auto-complete Active sprints whose end date has
passed. The scheduler acts as a trusted system principal; no user permission
gate applies.

One sprint's failure never aborts a sweep. Multiple process instances may
sweep concurrently without leader election; the store's status-guarded
transition makes the duplicate attempt a no-op, and a Conflict result here
just means another instance won.
*/

package sprints

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/boardpulse/internal/apperr"
	"github.com/tomtom215/boardpulse/internal/logging"
	"github.com/tomtom215/boardpulse/internal/metrics"
)

// Clock abstracts wall time so sweep tests control it.
type Clock interface {
	Now() time.Time
}

// systemClock is the production Clock.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Scheduler periodically expires sprint states.
type Scheduler struct {
	manager  *Manager
	clock    Clock
	interval time.Duration
}

// SweepResult summarizes one tick.
type SweepResult struct {
	Started   int
	Completed int
	Failures  int
}

// NewScheduler builds a Scheduler. A nil clock uses wall time; a
// non-positive interval defaults to one minute.
func NewScheduler(manager *Manager, clock Clock, interval time.Duration) *Scheduler {
	if clock == nil {
		clock = systemClock{}
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{manager: manager, clock: clock, interval: interval}
}

// Serve implements suture.Service. It sweeps every interval until the
// context is canceled.
func (s *Scheduler) Serve(ctx context.Context) error {
	logging.Info().
		Dur("interval", s.interval).
		Msg("Starting sprint expiration scheduler")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Sprint expiration scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			result := s.SweepOnce(ctx)
			if result.Started > 0 || result.Completed > 0 || result.Failures > 0 {
				logging.Info().
					Int("started", result.Started).
					Int("completed", result.Completed).
					Int("failures", result.Failures).
					Msg("Sprint sweep finished")
			}
		}
	}
}

// SweepOnce runs both sweeps for the current tick and reports the outcome.
func (s *Scheduler) SweepOnce(ctx context.Context) SweepResult {
	start := time.Now()
	now := s.clock.Now()

	var result SweepResult
	s.sweepAutoStart(ctx, now, &result)
	s.sweepAutoComplete(ctx, now, &result)

	metrics.SchedulerSweeps.Inc()
	metrics.SchedulerSweepDuration.Observe(time.Since(start).Seconds())
	return result
}

// sweepAutoStart activates every Planned sprint whose start date has passed.
func (s *Scheduler) sweepAutoStart(ctx context.Context, now time.Time, result *SweepResult) {
	due, err := s.manager.store.PlannedSprintsDueBy(ctx, now)
	if err != nil {
		logging.Error().Err(err).Msg("Auto-start sweep query failed")
		result.Failures++
		return
	}

	for _, sprint := range due {
		if _, err := s.manager.startSprintAt(ctx, sprint.ID, now); err != nil {
			s.recordTransitionFailure("start", sprint.ID, err, result)
			continue
		}
		metrics.SchedulerTransitions.WithLabelValues("start", "success").Inc()
		result.Started++
	}
}

// sweepAutoComplete completes every Active sprint whose end date has passed.
func (s *Scheduler) sweepAutoComplete(ctx context.Context, now time.Time, result *SweepResult) {
	expired, err := s.manager.store.ActiveSprintsExpiredBy(ctx, now)
	if err != nil {
		logging.Error().Err(err).Msg("Auto-complete sweep query failed")
		result.Failures++
		return
	}

	for _, sprint := range expired {
		if _, err := s.manager.CompleteSprint(ctx, sprint.ID); err != nil {
			s.recordTransitionFailure("complete", sprint.ID, err, result)
			continue
		}
		metrics.SchedulerTransitions.WithLabelValues("complete", "success").Inc()
		result.Completed++
	}
}

func (s *Scheduler) recordTransitionFailure(kind, sprintID string, err error, result *SweepResult) {
	var conflict *apperr.ConflictError
	if errors.As(err, &conflict) {
		// Another instance already transitioned this sprint.
		metrics.SchedulerTransitions.WithLabelValues(kind, "already_done").Inc()
		logging.Debug().
			Str("sprint_id", sprintID).
			Str("kind", kind).
			Msg("Sprint transitioned by another instance")
		return
	}

	metrics.SchedulerTransitions.WithLabelValues(kind, "error").Inc()
	logging.Error().
		Err(err).
		Str("sprint_id", sprintID).
		Str("kind", kind).
		Msg("Sprint transition failed, continuing sweep")
	result.Failures++
}
