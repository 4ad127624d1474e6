/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the admin frontend

ROUTE GROUPS:
  /api/workers/*        Workers, entries, week payouts, bonus ledger
  /api/entries/*        Vetting
  /api/payments/*       Payment listing and admin review
  /api/benchmarks/*     Benchmark management
  /api/weeks            Week resolver preview
  /api/scenarios/*      Demo scenarios (dev only)
  /metrics              Prometheus metrics
  /healthz              Liveness

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public and the
  acting admin is self-declared through X-Actor.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new router with all routes configured. A "*" origin
// allows any origin without credentials.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Actor"},
		AllowCredentials: !slices.Contains(allowedOrigins, "*"),
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Worker routes
		r.Route("/workers", func(r chi.Router) {
			r.Get("/", h.ListWorkers)
			r.Post("/", h.CreateWorker)
			r.Get("/{id}", h.GetWorker)
			r.Get("/{id}/entries", h.ListEntries)
			r.Post("/{id}/entries", h.SubmitEntry)
			r.Post("/{id}/weeks/paid", h.MarkWeekPaid)
			r.Get("/{id}/bonuses", h.ListBonuses)
			r.Post("/{id}/bonuses", h.AddBonus)
			r.Post("/{id}/bonuses/pay", h.PayBonus)
			r.Post("/{id}/bonuses/reset", h.ResetBonuses)
		})

		// Entry routes
		r.Route("/entries", func(r chi.Router) {
			r.Post("/{id}/vet", h.VetEntry)
		})

		// Payment routes
		r.Route("/payments", func(r chi.Router) {
			r.Get("/", h.ListPayments)
			r.Get("/{id}", h.GetPayment)
			r.Patch("/{id}", h.UpdatePayment)
			r.Post("/{id}/approve", h.ApprovePayment)
			r.Post("/{id}/deny", h.DenyPayment)
		})

		// Benchmark routes
		r.Route("/benchmarks", func(r chi.Router) {
			r.Get("/", h.ListBenchmarks)
			r.Post("/", h.CreateBenchmark)
			r.Get("/current", h.CurrentBenchmark)
			r.Get("/{id}", h.GetBenchmark)
			r.Put("/{id}", h.UpdateBenchmark)
			r.Delete("/{id}", h.DeleteBenchmark)
		})

		r.Get("/weeks", h.ResolveWeek)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/", h.LoadScenario)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
