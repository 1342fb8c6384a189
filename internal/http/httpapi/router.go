package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"promptpdf/internal/http/handlers"
	"promptpdf/internal/middleware"
)

func NewRouter(app *handlers.App) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		chimw.Logger,
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/jobs", func(r chi.Router) {
		r.Post("/", app.JobsCreate)
		r.Get("/{id}", app.JobsGet)
	})

	r.Get("/v1/files/{id}/download", app.FilesDownload)

	// Durably stored PDFs resolve under /static once uploaded.
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(app.Cfg.StoragePath))))

	r.Route("/internal/worker", func(r chi.Router) {
		r.Use(middleware.WorkerSecret(app.Cfg.WorkerSecret))
		r.Post("/drain", app.WorkerDrain)
		r.Get("/stats", app.WorkerStats)
	})

	return r
}
