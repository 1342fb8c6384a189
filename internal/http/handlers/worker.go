package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"promptpdf/internal/worker"
)

const (
	defaultDrainMaxJobs = 25
	defaultDrainMaxMs   = 25_000
)

// WorkerDrain runs one bounded drain pass and reports whether the caller
// should immediately re-invoke to keep chewing through a backlog.
func (a *App) WorkerDrain(w http.ResponseWriter, r *http.Request) {
	opts := worker.DrainOptions{
		MaxJobs:     defaultDrainMaxJobs,
		MaxDuration: defaultDrainMaxMs * time.Millisecond,
	}
	if raw := r.URL.Query().Get("maxJobs"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			a.error(w, http.StatusBadRequest, "bad_request", "maxJobs must be a non-negative integer")
			return
		}
		opts.MaxJobs = n
	}
	if raw := r.URL.Query().Get("maxMs"); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms < 0 {
			a.error(w, http.StatusBadRequest, "bad_request", "maxMs must be a non-negative integer")
			return
		}
		opts.MaxDuration = time.Duration(ms) * time.Millisecond
	}

	res, err := a.Engine.Drain(r.Context(), opts)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		a.Logger.Error().Err(err).Msg("api: drain failed")
		a.error(w, http.StatusInternalServerError, "internal", "drain failed")
		return
	}
	a.json(w, http.StatusOK, res)
}

// WorkerStats exposes pool and render-queue gauges for monitoring.
func (a *App) WorkerStats(w http.ResponseWriter, r *http.Request) {
	queued, err := a.Jobs.CountQueued(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("api: count queued failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load stats")
		return
	}

	a.json(w, http.StatusOK, map[string]any{
		"pool":            a.Pool.Stats(),
		"active_renders":  a.Renders.ActiveRenders(),
		"waiting_renders": a.Renders.WaitingRenders(),
		"queued_jobs":     queued,
	})
}
