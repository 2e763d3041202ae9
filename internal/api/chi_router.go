// Eventmap - Family Events Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventmap

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/eventmap/internal/config"
	"github.com/tomtom215/eventmap/internal/middleware"
)

// Router wires the handler into a chi route tree.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. cfg may be nil, which applies the default
// middleware configuration.
func NewRouter(handler *Handler, cfg *config.Config) *Router {
	mwConfig := DefaultChiMiddlewareConfig()
	if cfg != nil {
		mwConfig.CORSAllowedOrigins = cfg.Security.CORSOrigins
		if cfg.Security.RateLimitReqs > 0 {
			mwConfig.RateLimitRequests = cfg.Security.RateLimitReqs
		}
		if cfg.Security.RateLimitWindow > 0 {
			mwConfig.RateLimitWindow = cfg.Security.RateLimitWindow
		}
		mwConfig.RateLimitDisabled = cfg.Security.RateLimitDisabled
	}
	return &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddleware(mwConfig),
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// ========================
	// Global Middleware Stack
	// ========================
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // CORS must be global to handle OPTIONS preflight
	r.Use(middleware.PrometheusMetrics)

	// ========================
	// Page and SDK bundle
	// ========================
	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(middleware.Compression)
		r.Get("/", router.handler.Page)
		r.Get(BundlePath, router.handler.SDKBundle)
	})

	// ========================
	// Health Endpoints
	// ========================
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitCustom(RateLimitHealth))
		r.Use(APISecurityHeaders())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
		r.Get("/", router.handler.Health)
	})

	// ========================
	// WebSocket
	// ========================
	// Never compressed; the upgrade needs the raw connection.
	r.With(router.chiMiddleware.RateLimitCustom(RateLimitWebSocket)).Get(WSPath, router.handler.WebSocket)

	// ========================
	// Core API Endpoints
	// ========================
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(middleware.Compression)

		r.Get("/map", router.handler.MapState)
		r.Post("/map/retry", router.handler.RetryMap)

		r.Get("/events", router.handler.Events)
		r.Get("/events/cards", router.handler.EventCards)
		r.With(router.chiMiddleware.RateLimitCustom(RateLimitUpload)).Post("/events", router.handler.UploadEvents)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		NewResponseWriter(w, req).NotFound("route not found")
	})

	return r
}
