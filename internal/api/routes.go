package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures the full route tree for the leadflow service.
// allowedOrigins are the landing page origins permitted by CORS.
func SetupRoutes(h *Handlers, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	// The browser front-end calls with a custom session header; no
	// credentials are involved anywhere on this surface.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", SessionHeader},
		ExposedHeaders: []string{SessionHeader},
		MaxAge:         300,
	}))

	r.Get("/health", h.HandleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/visits", h.HandleVisit)
		r.Get("/questions", h.HandleQuestions)

		r.Route("/leads", func(r chi.Router) {
			r.Post("/", h.HandleLead)
			r.Post("/open", h.HandleOpen)
			r.Post("/answers", h.HandleAnswer)
			r.Post("/complete", h.HandleComplete)
			r.Post("/dismiss", h.HandleDismiss)
		})
	})

	return r
}
