package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"promptpdf/internal/domain"
)

const maxPromptLength = 8000

type jobCreateRequest struct {
	Prompt string  `json:"prompt"`
	UserID *string `json:"user_id"`
}

func (a *App) JobsCreate(w http.ResponseWriter, r *http.Request) {
	var req jobCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "prompt is required")
		return
	}
	if len(prompt) > maxPromptLength {
		a.error(w, http.StatusBadRequest, "bad_request", "prompt too long")
		return
	}

	job := &domain.Job{
		ID:     uuid.NewString(),
		Prompt: prompt,
		UserID: req.UserID,
		Status: domain.JobStatusQueued,
	}
	if err := a.Jobs.Create(r.Context(), job); err != nil {
		a.Logger.Error().Err(err).Msg("api: enqueue job failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to enqueue job")
		return
	}

	// Fire-and-forget: polling picks the job up even without the nudge.
	a.Engine.Nudge()

	a.json(w, http.StatusAccepted, map[string]any{
		"id":     job.ID,
		"status": string(domain.JobStatusQueued),
	})
}

func (a *App) JobsGet(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	job, err := a.Jobs.GetByID(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("api: load job failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}

	a.json(w, http.StatusOK, map[string]any{
		"id":             job.ID,
		"status":         string(job.Status),
		"attempts":       job.Attempts,
		"result_file_id": job.ResultFileID,
		"error":          job.ErrorMessage,
		"created_at":     job.CreatedAt,
		"updated_at":     job.UpdatedAt,
	})
}
