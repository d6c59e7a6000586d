/*
server.go - Routes and middleware

PURPOSE:
  Maps the forecast API onto a chi router. Handlers live in handlers.go
  and examples.go; this file only decides which URL reaches which one.

MIDDLEWARE (in order):
  1. RequestID   X-Request-Id on every request, echoed in request logs
  2. Recoverer   a panicking handler answers 500
  3. Logging     one zerolog event per request with status and duration
  4. CORS        local frontends (vite dev server, same-origin)

ROUTES:
  /api/schedules/*  Definitions, evaluation and runs
  /api/runs/*       Stored runs
  /api/examples/*   Example catalog
  /api/models       Curve families
  /                 Endpoint index

Endpoints are unauthenticated.

SEE ALSO:
  - handlers.go: schedule and run handlers
  - cmd/server/main.go: process wiring
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter returns the full API router backed by h.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.loggingMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/schedules", func(r chi.Router) {
			r.Get("/", h.ListSchedules)
			r.Post("/", h.CreateSchedule)
			r.Get("/{id}", h.GetSchedule)
			r.Put("/{id}", h.UpdateSchedule)
			r.Delete("/{id}", h.DeleteSchedule)
			r.Post("/{id}/evaluate", h.EvaluateSchedule)
			r.Get("/{id}/runs", h.ListRuns)
		})

		r.Get("/runs/{id}", h.GetRun)
		r.Get("/models", h.ListModels)

		r.Route("/examples", func(r chi.Router) {
			r.Get("/", h.ListExamples)
			r.Post("/load", h.LoadExample)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Forecast Engine</title></head>
<body style="font-family: sans-serif; margin: 2em;">
<h1>Forecast Engine API</h1>
<ul>
<li><a href="/api/schedules">/api/schedules</a> - Stored schedules</li>
<li><a href="/api/examples">/api/examples</a> - Example definitions</li>
<li><a href="/api/models">/api/models</a> - Curve families</li>
</ul>
</body>
</html>`))
	})

	return r
}

// loggingMiddleware logs HTTP requests
func (h *Handler) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		h.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
