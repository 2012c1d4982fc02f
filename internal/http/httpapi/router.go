package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/cinegen/cinegen/internal/http/handlers"
	"github.com/cinegen/cinegen/internal/infra"
	"github.com/cinegen/cinegen/internal/middleware"
)

func NewRouter(app *handlers.App, logger infra.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/batches", func(r chi.Router) {
		r.Post("/", app.BatchGenerate)
		r.Post("/archive", app.BatchArchive)
	})

	return r
}
