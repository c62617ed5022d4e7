/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. Logger:     Structured request logging (zap)
  4. Metrics:    Prometheus request counters/latency
  5. CORS:       Cross-origin requests for the dashboard

ROUTE GROUPS:
  /api/employees/*   Identity ingest and queries
  /api/hours         Monthly hours ingest
  /api/offers        Coverage offer facts
  /api/employers/*   Employer-level queries
  /api/batches/*     Batch report runs and snapshots
  /api/scenarios/*   Demo scenarios
  /metrics           Prometheus exposition
  /healthz           Liveness

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/warp/aca-engine/logger"
	"github.com/warp/aca-engine/metrics"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, log *zap.Logger, stats *metrics.Set, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if log != nil {
		r.Use(logger.Middleware(log))
	}
	r.Use(metricsMiddleware(stats))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
			r.Get("/{id}", h.GetEmployee)
			r.Post("/{id}/terminate", h.TerminateEmployee)
			r.Get("/{id}/hours/{month}", h.GetHours)
			r.Get("/{id}/hours/{month}/audit", h.GetHoursAudit)
			r.Get("/{id}/eligibility/{month}", h.GetEligibility)
		})

		r.Post("/hours", h.RecordHours)
		r.Post("/offers", h.PutOffer)
		r.Post("/compensation", h.PutCompensation)

		r.Route("/employers/{employer}", func(r chi.Router) {
			r.Get("/results", h.ListResults)
			r.Get("/batches", h.ListBatches)
		})

		r.Route("/batches", func(r chi.Router) {
			r.Post("/", h.RunBatch)
			r.Get("/{id}", h.GetBatch)
			r.Get("/{id}/status", h.GetBatchStatus)
			r.Get("/{id}/lines", h.GetBatchLines)
			r.Get("/{id}/assessments", h.GetBatchAssessments)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}

// metricsMiddleware records per-route request counts and latency.
func metricsMiddleware(stats *metrics.Set) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = r.URL.Path
			}
			stats.ObserveHTTP(route, r.Method, http.StatusText(ww.Status()), time.Since(start).Seconds())
		})
	}
}
