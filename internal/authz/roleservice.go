// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

/*
roleservice.go - Authoritative Role Service Client

HTTP client for the source-of-truth role service, wrapped in a circuit
breaker. The service's "not found" answer becomes a NotFoundError naming the
project; every other failure becomes a ServiceUnavailableError wrapping the
cause. Retries belong to the transport, not here.
*/

package authz

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/boardpulse/internal/apperr"
	"github.com/tomtom215/boardpulse/internal/config"
	"github.com/tomtom215/boardpulse/internal/logging"
	"github.com/tomtom215/boardpulse/internal/metrics"
	"github.com/tomtom215/boardpulse/internal/models"
)

// RoleProvider answers authoritative permission lookups. Satisfied by
// RoleServiceClient in production and by fakes in tests.
type RoleProvider interface {
	UserPermissions(ctx context.Context, userID, projectID string) (*models.UserPermissions, error)
}

// RoleServiceClient is the HTTP implementation of RoleProvider.
type RoleServiceClient struct {
	baseURL string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker[*models.UserPermissions]
}

// rolePermissionsResponse is the role service's wire format.
type rolePermissionsResponse struct {
	UserID      string   `json:"userId"`
	ProjectID   string   `json:"projectId"`
	Permissions []string `json:"permissions"`
	IsOwner     bool     `json:"isOwner"`
}

// NewRoleServiceClient builds a client for cfg.URL. The circuit breaker opens
// after a 60% failure rate over at least 10 requests and recovers through a
// half-open probe after 30 seconds.
func NewRoleServiceClient(cfg *config.RoleServiceConfig) *RoleServiceClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	cbName := "role-service"
	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0)

	cb := gobreaker.NewCircuitBreaker[*models.UserPermissions](gobreaker.Settings{
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
		// A 404 is a definitive answer from a healthy service, not a failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errRoleNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Role service circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
		},
	})

	return &RoleServiceClient{
		baseURL: cfg.URL,
		client:  &http.Client{Timeout: timeout},
		cb:      cb,
	}
}

// errRoleNotFound marks the 404 path inside the breaker so it does not count
// as a service failure.
var errRoleNotFound = errors.New("role assignment not found")

// UserPermissions fetches the full authoritative permission record for a
// user/project pair.
func (c *RoleServiceClient) UserPermissions(ctx context.Context, userID, projectID string) (*models.UserPermissions, error) {
	result, err := c.cb.Execute(func() (*models.UserPermissions, error) {
		return c.fetch(ctx, userID, projectID)
	})
	if err != nil {
		if errors.Is(err, errRoleNotFound) {
			return nil, apperr.NotFound("project", projectID)
		}
		return nil, apperr.ServiceUnavailable("role-service", err)
	}
	return result, nil
}

func (c *RoleServiceClient) fetch(ctx context.Context, userID, projectID string) (*models.UserPermissions, error) {
	reqURL := fmt.Sprintf("%s/api/v1/users/%s/projects/%s/permissions",
		c.baseURL, url.PathEscape(userID), url.PathEscape(projectID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("role service request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errRoleNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("role service returned status %d", resp.StatusCode)
	}

	var wire rolePermissionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decode role service response: %w", err)
	}

	perms, err := models.ParsePermissionSet(wire.Permissions)
	if err != nil {
		return nil, fmt.Errorf("role service response for user %s: %w", userID, err)
	}

	return &models.UserPermissions{
		UserID:      userID,
		ProjectID:   projectID,
		Permissions: perms,
		IsOwner:     wire.IsOwner,
	}, nil
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}
