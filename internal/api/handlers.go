// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/boardpulse/internal/config"
	"github.com/tomtom215/boardpulse/internal/eventprocessor"
	"github.com/tomtom215/boardpulse/internal/logging"
	"github.com/tomtom215/boardpulse/internal/models"
	"github.com/tomtom215/boardpulse/internal/sprints"
)

// maxBodyBytes caps request body size for all JSON endpoints.
const maxBodyBytes = 1 << 20

// SprintService is the sprint lifecycle surface the handlers depend on.
// *sprints.Manager satisfies it.
type SprintService interface {
	CreateSprint(ctx context.Context, projectID, name, goal string, startDate time.Time, endDate *time.Time) (*models.Sprint, error)
	GetSprint(ctx context.Context, sprintID string) (*models.Sprint, error)
	ListSprints(ctx context.Context, projectID string) ([]*models.Sprint, error)
	UpdateSprint(ctx context.Context, sprintID string, update sprints.SprintUpdate) (*models.Sprint, error)
	DeleteSprint(ctx context.Context, sprintID string) error
	StartSprint(ctx context.Context, sprintID string) (*models.Sprint, error)
	CompleteSprint(ctx context.Context, sprintID string) (*models.Sprint, error)
	AddIssuesToSprint(ctx context.Context, userID, sprintID string, issueIDs []string) error
	RemoveIssueFromSprint(ctx context.Context, userID, sprintID, issueID string) error
}

// AnalyticsService is the dashboard surface the handlers depend on.
// *analytics.Engine satisfies it.
type AnalyticsService interface {
	RecomputeDashboard(ctx context.Context, userID, projectID string) (*models.DashboardMetrics, error)
	MetricTrend(ctx context.Context, userID, projectID, metricName string, from, to time.Time) ([]models.TrendPoint, error)
	CycleTimes(ctx context.Context, userID, projectID string, issueIDs []string) (map[string]float64, error)
}

// ActivityStore reads and writes the append-only activity log.
// *database.DB satisfies it.
type ActivityStore interface {
	AppendActivity(ctx context.Context, e *models.ActivityLogEntry) error
	QueryActivity(ctx context.Context, filter models.ActivityFilter) ([]*models.ActivityLogEntry, error)
}

// EventPublisher pushes activity events onto the stream instead of writing
// the log directly. Optional; nil means synchronous appends.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event *eventprocessor.ActivityEvent) error
}

// Pinger reports storage liveness for the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds the dependencies for all HTTP handlers.
type Handler struct {
	config    *config.Config
	sprints   SprintService
	analytics AnalyticsService
	activity  ActivityStore
	publisher EventPublisher
	pinger    Pinger
	startTime time.Time
}

// NewHandler creates a Handler. publisher may be nil, in which case activity
// appends go straight to the store.
func NewHandler(cfg *config.Config, sprintSvc SprintService, analyticsSvc AnalyticsService, activity ActivityStore, publisher EventPublisher, pinger Pinger) *Handler {
	return &Handler{
		config:    cfg,
		sprints:   sprintSvc,
		analytics: analyticsSvc,
		activity:  activity,
		publisher: publisher,
		pinger:    pinger,
		startTime: time.Now(),
	}
}

// userID extracts the caller identity from the X-User-ID header. Returns
// false after writing a 401 when the header is absent.
func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get("X-User-ID")
	if id == "" {
		respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "X-User-ID header is required", nil)
		return "", false
	}
	return id, true
}

// decodeBody parses a JSON request body into dst. Returns false after
// writing a 400 on malformed input.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON request body", nil)
		return false
	}
	return true
}

// healthStatus is the payload for the full health endpoint.
type healthStatus struct {
	Status            string  `json:"status"`
	Version           string  `json:"version"`
	DatabaseConnected bool    `json:"database_connected"`
	EventsEnabled     bool    `json:"events_enabled"`
	Uptime            float64 `json:"uptime_seconds"`
}

// Health reports overall service health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	dbConnected := h.pinger != nil && h.pinger.Ping(r.Context()) == nil

	status := "healthy"
	if !dbConnected {
		status = "degraded"
	}

	respondSuccess(w, http.StatusOK, healthStatus{
		Status:            status,
		Version:           "1.0.0",
		DatabaseConnected: dbConnected,
		EventsEnabled:     h.publisher != nil,
		Uptime:            time.Since(h.startTime).Seconds(),
	})
}

// HealthLive is the liveness probe: the process is up and serving.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]string{"status": "alive"})
}

// HealthReady is the readiness probe: storage must be reachable.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if h.pinger == nil || h.pinger.Ping(r.Context()) != nil {
		respondError(w, http.StatusServiceUnavailable, "NOT_READY", "database is not reachable", nil)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]string{"status": "ready"})
}

// CreateSprint handles POST /api/v1/sprints.
func (h *Handler) CreateSprint(w http.ResponseWriter, r *http.Request) {
	var req CreateSprintRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	sprint, err := h.sprints.CreateSprint(r.Context(), req.ProjectID, req.Name, req.Goal, req.StartDate, req.EndDate)
	if err != nil {
		respondAppError(w, err)
		return
	}

	logger := logging.Ctx(r.Context())
	logger.Info().
		Str("sprint_id", sprint.ID).
		Str("project_id", sanitizeLogValue(req.ProjectID)).
		Msg("Sprint created")

	respondSuccess(w, http.StatusCreated, sprint)
}

// GetSprint handles GET /api/v1/sprints/{sprintID}.
func (h *Handler) GetSprint(w http.ResponseWriter, r *http.Request) {
	sprint, err := h.sprints.GetSprint(r.Context(), chi.URLParam(r, "sprintID"))
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, sprint)
}

// ListSprints handles GET /api/v1/projects/{projectID}/sprints.
func (h *Handler) ListSprints(w http.ResponseWriter, r *http.Request) {
	list, err := h.sprints.ListSprints(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, list)
}

// UpdateSprint handles PUT /api/v1/sprints/{sprintID}.
func (h *Handler) UpdateSprint(w http.ResponseWriter, r *http.Request) {
	var req UpdateSprintRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	sprint, err := h.sprints.UpdateSprint(r.Context(), chi.URLParam(r, "sprintID"), sprints.SprintUpdate{
		Name:      req.Name,
		Goal:      req.Goal,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, sprint)
}

// DeleteSprint handles DELETE /api/v1/sprints/{sprintID}.
func (h *Handler) DeleteSprint(w http.ResponseWriter, r *http.Request) {
	if err := h.sprints.DeleteSprint(r.Context(), chi.URLParam(r, "sprintID")); err != nil {
		respondAppError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, nil)
}

// StartSprint handles POST /api/v1/sprints/{sprintID}/start.
func (h *Handler) StartSprint(w http.ResponseWriter, r *http.Request) {
	sprint, err := h.sprints.StartSprint(r.Context(), chi.URLParam(r, "sprintID"))
	if err != nil {
		respondAppError(w, err)
		return
	}

	logger := logging.Ctx(r.Context())
	logger.Info().
		Str("sprint_id", sprint.ID).
		Time("start_date", sprint.StartDate).
		Msg("Sprint started")

	respondSuccess(w, http.StatusOK, sprint)
}

// CompleteSprint handles POST /api/v1/sprints/{sprintID}/complete.
func (h *Handler) CompleteSprint(w http.ResponseWriter, r *http.Request) {
	sprint, err := h.sprints.CompleteSprint(r.Context(), chi.URLParam(r, "sprintID"))
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, sprint)
}

// AddSprintIssues handles POST /api/v1/sprints/{sprintID}/issues.
func (h *Handler) AddSprintIssues(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req SprintIssuesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	if err := h.sprints.AddIssuesToSprint(r.Context(), userID, chi.URLParam(r, "sprintID"), req.IssueIDs); err != nil {
		respondAppError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]int{"added": len(req.IssueIDs)})
}

// RemoveSprintIssue handles DELETE /api/v1/sprints/{sprintID}/issues/{issueID}.
func (h *Handler) RemoveSprintIssue(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	err := h.sprints.RemoveIssueFromSprint(r.Context(), userID, chi.URLParam(r, "sprintID"), chi.URLParam(r, "issueID"))
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, nil)
}

// RecomputeDashboard handles POST /api/v1/projects/{projectID}/dashboard.
// It recomputes and persists all dashboard snapshots and returns the result.
func (h *Handler) RecomputeDashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	metrics, err := h.analytics.RecomputeDashboard(r.Context(), userID, chi.URLParam(r, "projectID"))
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, metrics)
}

// MetricTrend handles GET /api/v1/projects/{projectID}/trends.
// Query parameters: metric (required), from, to (RFC3339, default last 30 days).
func (h *Handler) MetricTrend(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	req := TrendRequest{
		Metric: r.URL.Query().Get("metric"),
		From:   r.URL.Query().Get("from"),
		To:     r.URL.Query().Get("to"),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -30)
	if req.From != "" {
		from, _ = time.Parse(time.RFC3339, req.From)
	}
	if req.To != "" {
		to, _ = time.Parse(time.RFC3339, req.To)
	}

	points, err := h.analytics.MetricTrend(r.Context(), userID, chi.URLParam(r, "projectID"), req.Metric, from, to)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, points)
}

// CycleTimes handles GET /api/v1/projects/{projectID}/cycle-times.
// The ids query parameter is a comma-separated issue ID list; issues without
// both creation and completion events are omitted from the result.
func (h *Handler) CycleTimes(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	issueIDs := parseCommaSeparated(r.URL.Query().Get("ids"))
	if len(issueIDs) == 0 {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "ids query parameter is required", nil)
		return
	}

	times, err := h.analytics.CycleTimes(r.Context(), userID, chi.URLParam(r, "projectID"), issueIDs)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, times)
}

// ListActivity handles GET /api/v1/projects/{projectID}/activity.
func (h *Handler) ListActivity(w http.ResponseWriter, r *http.Request) {
	query := ActivityQueryRequest{
		Limit:  getIntParam(r, "limit", h.config.API.DefaultPageSize),
		Offset: getIntParam(r, "offset", 0),
	}
	if query.Limit > h.config.API.MaxPageSize {
		query.Limit = h.config.API.MaxPageSize
	}
	if apiErr := validateRequest(&query); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	filter := models.ActivityFilter{
		ProjectID:  chi.URLParam(r, "projectID"),
		UserID:     r.URL.Query().Get("user_id"),
		EntityType: r.URL.Query().Get("entity_type"),
		EntityID:   r.URL.Query().Get("entity_id"),
		ActionType: r.URL.Query().Get("action_type"),
		Limit:      query.Limit,
		Offset:     query.Offset,
	}
	if v := r.URL.Query().Get("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.From = &t
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.To = &t
		}
	}

	entries, err := h.activity.QueryActivity(r.Context(), filter)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, entries)
}

// AppendActivity handles POST /api/v1/projects/{projectID}/activity.
// With an event publisher configured the entry goes through the stream and
// lands in the log asynchronously; otherwise it is written directly.
func (h *Handler) AppendActivity(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req AppendActivityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	projectID := chi.URLParam(r, "projectID")
	occurredAt := time.Now().UTC()
	if req.OccurredAt != nil {
		occurredAt = req.OccurredAt.UTC()
	}

	event := eventprocessor.NewActivityEvent(projectID, userID, req.ActionType, req.EntityType, req.EntityID, occurredAt)

	if h.publisher != nil {
		if err := h.publisher.PublishEvent(r.Context(), event); err != nil {
			respondAppError(w, err)
			return
		}
		respondSuccess(w, http.StatusAccepted, map[string]string{"event_id": event.EventID})
		return
	}

	entry := event.ToLogEntry()
	if err := h.activity.AppendActivity(r.Context(), entry); err != nil {
		respondAppError(w, err)
		return
	}
	respondSuccess(w, http.StatusCreated, entry)
}
