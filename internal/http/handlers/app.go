package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"promptpdf/internal/browser"
	"promptpdf/internal/domain"
	"promptpdf/internal/infra"
	"promptpdf/internal/pdf"
	"promptpdf/internal/worker"
)

type App struct {
	Cfg     *infra.Config
	Logger  zerolog.Logger
	Jobs    domain.JobRepository
	Files   domain.FileRepository
	Engine  *worker.Engine
	Pool    *browser.Pool
	Renders *pdf.Service
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, slug, message string) {
	a.json(w, code, map[string]string{"error": slug, "message": message})
}
