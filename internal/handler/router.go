package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	chatHandler "github.com/tdnguyen/plantdoc/backend/internal/handler/chat"
	middlewarePkg "github.com/tdnguyen/plantdoc/backend/internal/middleware"
	"github.com/tdnguyen/plantdoc/backend/internal/service/geo"
	"github.com/tdnguyen/plantdoc/backend/internal/service/pipeline"
	"github.com/tdnguyen/plantdoc/backend/internal/service/session"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(p *pipeline.Pipeline, sessions *session.Manager, geocoder geo.Geocoder) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	h := chatHandler.New(p, sessions, geocoder)

	r.Route("/api", func(api chi.Router) {
		h.RegisterRoutes(api)
	})

	return r
}
