// Package http wires the HTTP surface: middleware chain, versioned API
// mounts, health probe and Prometheus scrape endpoint.
package http

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	activityhandler "sdep-gateway/internal/activity/handler"
	areahandler "sdep-gateway/internal/area/handler"
	"sdep-gateway/internal/platform/database"
	"sdep-gateway/internal/platform/metrics"
	"sdep-gateway/internal/platform/middleware"
	"sdep-gateway/internal/transport/http/shared"
)

const requestTimeout = 30 * time.Second

// Handlers bundles the resource handlers mounted under the API prefixes.
type Handlers struct {
	Areas      *areahandler.Handler
	Activities *activityhandler.Handler
}

// NewRouter builds the full router. The API is mounted twice, at /api/v0 and
// at /api as an alias for the current version.
func NewRouter(h Handlers, db *sql.DB, jwtValidator middleware.JWTValidator, m *metrics.Metrics, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Latency(m))
	r.Use(middleware.Timeout(requestTimeout))

	api := func(r chi.Router) {
		h.Areas.Register(r)
		h.Activities.Register(r)
		r.Get("/health", healthHandler(db, logger))
		r.With(middleware.RequireAuth(jwtValidator, logger)).Get("/ping", pingHandler)
	}
	r.Route("/api/v0", api)
	r.Route("/api", api)

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

type healthResponse struct {
	DatabaseAvailable string `json:"database_available"`
}

type pingResponse struct {
	Status string `json:"status"`
}

// pingHandler reports API reachability for authenticated callers. Unlike
// /health it does not touch the database.
func pingHandler(w http.ResponseWriter, r *http.Request) {
	shared.WriteJSON(w, http.StatusOK, pingResponse{Status: "OK"})
}

// healthHandler reports database reachability. An unreachable database
// yields 422 so load balancers treat the instance as unhealthy.
func healthHandler(db *sql.DB, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := database.Ping(db); err != nil {
			logger.ErrorContext(r.Context(), "health check failed",
				"error", err.Error(),
				"request_id", middleware.GetRequestID(r.Context()),
			)
			shared.WriteJSON(w, http.StatusUnprocessableEntity, healthResponse{DatabaseAvailable: "NOK"})
			return
		}
		shared.WriteJSON(w, http.StatusOK, healthResponse{DatabaseAvailable: "OK"})
	}
}
