package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all API routes. health and scores may be nil.
func SetupRoutes(h *Handlers, health *HealthChecker, scores *ScoreHub, origins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if health != nil {
		r.Get("/health", health.HandleHealth)
		r.Get("/health/ready", health.HandleReadiness)
	} else {
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"healthy"}`))
		})
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/ranking", func(r chi.Router) {
			r.Post("/top", h.RankTop)
			r.Post("/diversify", h.RankDiversify)
			r.Post("/compare", h.RankCompare)
		})

		r.Get("/niches", h.ListNiches)
		r.Get("/niches/{niche}/top", h.NicheTop)
		r.Get("/channels", h.ListChannels)
		r.Get("/offers/{id}", h.GetOffer)

		r.Route("/subid", func(r chi.Router) {
			r.Post("/build", h.BuildSubIDs)
			r.Post("/parse", h.ParseSubIDs)
		})

		r.Route("/attribution", func(r chi.Router) {
			r.Post("/aggregate", h.AttributionAggregate)
			r.Post("/top", h.AttributionTop)
		})

		r.Route("/metrics", func(r chi.Router) {
			r.Post("/summary", h.MetricsSummary)
			r.Post("/compare", h.MetricsCompare)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/summary", h.ReportSummary)
			r.Get("/compare", h.ReportCompare)
			r.Get("/{dimension}", h.ReportByDimension)
			r.Post("/{dimension}/archive", h.ArchiveReport)
		})
		r.Get("/archive/{dimension}", h.ListArchive)

		if scores != nil {
			r.Get("/scores/stream", scores.HandleSSE)
		}
	})

	return r
}
