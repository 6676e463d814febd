// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

/*
issueclient.go - External Issue Service Client

Issues live in a separate service; BoardPulse only validates their existence
and notifies the service when a sprint starts. Requests go through a rate
limiter and a circuit breaker so a degraded issue service cannot amplify
load.
*/

package sprints

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/boardpulse/internal/config"
	"github.com/tomtom215/boardpulse/internal/logging"
	"github.com/tomtom215/boardpulse/internal/metrics"
	"github.com/tomtom215/boardpulse/internal/models"
)

// IssueProvider is the surface of the external issue service the manager
// needs. Satisfied by IssueServiceClient in production and fakes in tests.
type IssueProvider interface {
	GetIssuesByIDs(ctx context.Context, ids []string) ([]models.IssueSummary, error)
	StartSprint(ctx context.Context, projectID string, issueIDs []string) ([]models.IssueSummary, error)
}

// IssueServiceClient is the HTTP implementation of IssueProvider.
type IssueServiceClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[[]models.IssueSummary]
}

// NewIssueServiceClient builds a client for cfg.URL.
func NewIssueServiceClient(cfg *config.IssueServiceConfig) *IssueServiceClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), int(cfg.RequestsPerSecond)+1)
	}

	cbName := "issue-service"
	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]models.IssueSummary](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Issue service circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(issueBreakerStateValue(to))
		},
	})

	return &IssueServiceClient{
		baseURL: cfg.URL,
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
		cb:      cb,
	}
}

// GetIssuesByIDs fetches summaries for the given issue IDs. IDs unknown to
// the issue service are simply absent from the result.
func (c *IssueServiceClient) GetIssuesByIDs(ctx context.Context, ids []string) ([]models.IssueSummary, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return c.execute(ctx, http.MethodPost, "/api/v1/issues/batch", map[string]interface{}{
		"ids": ids,
	})
}

// StartSprint notifies the issue service that a sprint started so it can
// initialize dependent issue state. The caller treats any error as fatal for
// the sprint transition.
func (c *IssueServiceClient) StartSprint(ctx context.Context, projectID string, issueIDs []string) ([]models.IssueSummary, error) {
	return c.execute(ctx, http.MethodPost, "/api/v1/issues/sprint-start", map[string]interface{}{
		"projectId": projectID,
		"issueIds":  issueIDs,
	})
}

func (c *IssueServiceClient) execute(ctx context.Context, method, path string, payload map[string]interface{}) ([]models.IssueSummary, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("issue service rate limit wait: %w", err)
		}
	}

	return c.cb.Execute(func() ([]models.IssueSummary, error) {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal issue service request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("issue service request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("issue service returned status %d", resp.StatusCode)
		}

		var summaries []models.IssueSummary
		if err := json.NewDecoder(resp.Body).Decode(&summaries); err != nil {
			return nil, fmt.Errorf("decode issue service response: %w", err)
		}
		return summaries, nil
	})
}

func issueBreakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}
