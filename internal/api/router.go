// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/boardpulse/internal/config"
	"github.com/tomtom215/boardpulse/internal/middleware"
)

// Router assembles the Chi route tree for the service.
type Router struct {
	config  *config.Config
	handler *Handler
}

// NewRouter creates a Router around the given handler set.
func NewRouter(cfg *config.Config, handler *Handler) *Router {
	return &Router{config: cfg, handler: handler}
}

// Setup builds the full route tree with the global middleware stack.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: router.config.Server.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-User-ID", "X-Request-ID"},
		MaxAge:         86400,
	}))

	// Health endpoints get a permissive rate limit so monitoring can poll
	// frequently without tripping the API budget.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(httprate.LimitByIP(1000, router.config.Server.RateLimitWindow))
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Route("/api/v1/sprints", func(r chi.Router) {
		r.Use(router.rateLimit())
		r.Use(middleware.Prometheus)

		r.Post("/", router.handler.CreateSprint)
		r.Get("/{sprintID}", router.handler.GetSprint)
		r.Put("/{sprintID}", router.handler.UpdateSprint)
		r.Delete("/{sprintID}", router.handler.DeleteSprint)
		r.Post("/{sprintID}/start", router.handler.StartSprint)
		r.Post("/{sprintID}/complete", router.handler.CompleteSprint)
		r.Post("/{sprintID}/issues", router.handler.AddSprintIssues)
		r.Delete("/{sprintID}/issues/{issueID}", router.handler.RemoveSprintIssue)
	})

	r.Route("/api/v1/projects/{projectID}", func(r chi.Router) {
		r.Use(router.rateLimit())
		r.Use(middleware.Prometheus)

		r.Get("/sprints", router.handler.ListSprints)
		r.Post("/dashboard", router.handler.RecomputeDashboard)
		r.Get("/trends", router.handler.MetricTrend)
		r.Get("/cycle-times", router.handler.CycleTimes)
		r.Get("/activity", router.handler.ListActivity)
		r.Post("/activity", router.handler.AppendActivity)
	})

	// Prometheus scrape endpoint, outside the rate-limited groups.
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// rateLimit returns the per-IP limiter for API routes, or a no-op when
// rate limiting is disabled in config.
func (router *Router) rateLimit() func(http.Handler) http.Handler {
	reqs := router.config.Server.RateLimitReqs
	if reqs <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.LimitByIP(reqs, router.config.Server.RateLimitWindow)
}
