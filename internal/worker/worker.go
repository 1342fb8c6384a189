// Package worker drives durable, crash-safe execution of queued rendering
// jobs. All retry policy lives here; the pool and render service below it
// never retry on their own.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"promptpdf/internal/domain"
	"promptpdf/internal/pdf"
	"promptpdf/internal/providers/htmlgen"
	"promptpdf/internal/storage"
)

// ErrNoJobAvailable signals an empty queue to loop callers.
var ErrNoJobAvailable = errors.New("no job available")

// Renderer is the slice of the pdf service the engine needs.
type Renderer interface {
	Render(ctx context.Context, html string, opts pdf.RenderOptions) (*pdf.Result, error)
}

// Options tunes the engine.
type Options struct {
	BatchSize     int
	PollInterval  time.Duration
	Lease         time.Duration
	InterJobPause time.Duration
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 5
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 2 * time.Second
	}
	if o.Lease <= 0 {
		o.Lease = 10 * time.Minute
	}
	if o.InterJobPause < 0 {
		o.InterJobPause = 0
	} else if o.InterJobPause == 0 {
		o.InterJobPause = 25 * time.Millisecond
	}
	return o
}

// Engine claims queued jobs and renders them to PDFs. It is safe to run
// Drain from many invocations concurrently and alongside RunLoop; the
// database row locks are the only synchronization between them.
type Engine struct {
	jobs   domain.JobRepository
	files  domain.FileRepository
	html   htmlgen.Generator
	render Renderer
	store  storage.BlobStore
	opts   Options
	logger zerolog.Logger

	nudge chan struct{}

	staleMu   sync.Mutex
	lastStale time.Time
}

// New assembles an engine.
func New(jobs domain.JobRepository, files domain.FileRepository, html htmlgen.Generator, render Renderer, store storage.BlobStore, opts Options, logger zerolog.Logger) *Engine {
	return &Engine{
		jobs:   jobs,
		files:  files,
		html:   html,
		render: render,
		store:  store,
		opts:   opts.withDefaults(),
		logger: logger,
		nudge:  make(chan struct{}, 1),
	}
}

// Nudge hints the run loop that new work was just submitted. It never
// blocks; polling remains the correctness mechanism.
func (e *Engine) Nudge() {
	select {
	case e.nudge <- struct{}{}:
	default:
	}
}

// DrainOptions bounds one drain invocation. MaxJobs <= 0 means no job cap.
// MaxDuration is a soft deadline checked between jobs; zero means the
// budget is already exhausted, negative means no time cap.
type DrainOptions struct {
	MaxJobs     int
	MaxDuration time.Duration
}

// DrainResult tells the caller whether an immediate re-invocation is worth
// it.
type DrainResult struct {
	Processed int   `json:"processed"`
	TookMs    int64 `json:"tookMs"`
	TimedOut  bool  `json:"timedOut"`
}

// Drain claims and processes queued jobs until a budget is hit or the queue
// is empty. Per-job failures are isolated; only claim-path errors abort the
// drain.
func (e *Engine) Drain(ctx context.Context, opts DrainOptions) (DrainResult, error) {
	start := time.Now()
	res := DrainResult{}
	finish := func(err error) (DrainResult, error) {
		res.TookMs = time.Since(start).Milliseconds()
		return res, err
	}

	overBudget := func() bool {
		if opts.MaxDuration < 0 {
			return false
		}
		return time.Since(start) >= opts.MaxDuration
	}

	e.reclaimStale(ctx)

	for {
		if ctx.Err() != nil {
			return finish(ctx.Err())
		}
		if opts.MaxJobs > 0 && res.Processed >= opts.MaxJobs {
			return finish(nil)
		}
		if overBudget() {
			res.TimedOut = true
			return finish(nil)
		}

		batchSize := e.opts.BatchSize
		if opts.MaxJobs > 0 && opts.MaxJobs-res.Processed < batchSize {
			batchSize = opts.MaxJobs - res.Processed
		}
		batch, err := e.jobs.ClaimBatch(ctx, batchSize)
		if err != nil {
			return finish(fmt.Errorf("claim batch: %w", err))
		}
		if len(batch) == 0 {
			return finish(nil)
		}

		for i, job := range batch {
			if overBudget() {
				res.TimedOut = true
				e.requeueUnstarted(ctx, batch[i:])
				return finish(nil)
			}
			e.Process(ctx, job)
			res.Processed++
			if e.opts.InterJobPause > 0 {
				time.Sleep(e.opts.InterJobPause)
			}
		}
	}
}

// requeueUnstarted hands claimed-but-unprocessed jobs back when the drain
// budget expires mid-batch, instead of leaving them to the stale-lease
// reclaim.
func (e *Engine) requeueUnstarted(ctx context.Context, jobs []domain.Job) {
	for _, job := range jobs {
		if err := e.jobs.Requeue(ctx, job.ID, "drain budget exhausted before processing"); err != nil {
			e.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: requeue unstarted job failed")
		}
	}
}

// RunLoop polls for work until ctx is canceled, processing one job at a
// time. It shares claim primitives with Drain and may run concurrently with
// it.
func (e *Engine) RunLoop(ctx context.Context) error {
	e.logger.Info().Msg("worker: started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		e.reclaimStale(ctx)

		batch, err := e.jobs.ClaimBatch(ctx, 1)
		if err != nil {
			e.logger.Error().Err(err).Msg("worker: failed to claim job")
			e.sleep(ctx)
			continue
		}
		if len(batch) == 0 {
			e.sleep(ctx)
			continue
		}
		e.Process(ctx, batch[0])
	}
}

func (e *Engine) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-e.nudge:
	case <-time.After(e.opts.PollInterval):
	}
}

// reclaimStale returns jobs orphaned in processing by a crashed worker to
// the queue, at most once per lease half-interval.
func (e *Engine) reclaimStale(ctx context.Context) {
	e.staleMu.Lock()
	if time.Since(e.lastStale) < e.opts.Lease/2 {
		e.staleMu.Unlock()
		return
	}
	e.lastStale = time.Now()
	e.staleMu.Unlock()

	n, err := e.jobs.RequeueStale(ctx, e.opts.Lease)
	if err != nil {
		e.logger.Error().Err(err).Msg("worker: stale lease reclaim failed")
		return
	}
	if n > 0 {
		e.logger.Warn().Int("jobs", n).Msg("worker: reclaimed stale processing jobs")
	}
}

// ProcessByID claims and processes one specific job, the fallback path for
// callers holding a job id rather than a claimed batch. A job that is no
// longer queued is skipped silently.
func (e *Engine) ProcessByID(ctx context.Context, jobID string) error {
	job, err := e.jobs.ClaimOne(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyClaimed) {
			e.logger.Debug().Str("job_id", jobID).Msg("worker: job already claimed, skipping")
			return nil
		}
		return err
	}
	e.Process(ctx, *job)
	return nil
}

// Process runs one claimed job to a terminal or requeued state. It never
// returns an error: every failure is recorded on the job row so one bad job
// cannot halt a batch.
func (e *Engine) Process(ctx context.Context, job domain.Job) {
	logger := e.logger.With().Str("job_id", job.ID).Int("attempt", job.Attempts).Logger()
	logger.Info().Msg("worker: picked job")
	start := time.Now()

	fileID := uuid.NewString()
	objectKey := fmt.Sprintf("pdfs/%s/%s.pdf", job.ID, fileID)

	html, err := e.html.Generate(ctx, job.Prompt)
	if err != nil {
		e.recordFailure(ctx, job, logger, fmt.Errorf("generate html: %w", err))
		return
	}

	rendered, err := e.render.Render(ctx, html, pdf.RenderOptions{})
	if err != nil {
		e.recordFailure(ctx, job, logger, fmt.Errorf("render pdf: %w", err))
		return
	}

	// Inline first: the result is visible to readers the moment rendering
	// finishes, without waiting on a possibly flaky upload.
	file := &domain.File{
		ID:       fileID,
		JobID:    job.ID,
		UserID:   job.UserID,
		Location: domain.InlineLocation(rendered.PDF),
		MimeType: "application/pdf",
		Size:     int64(len(rendered.PDF)),
	}
	if err := e.files.Create(ctx, file); err != nil {
		e.recordFailure(ctx, job, logger, fmt.Errorf("persist file record: %w", err))
		return
	}
	if err := e.jobs.Complete(ctx, job.ID, fileID); err != nil {
		e.recordFailure(ctx, job, logger, fmt.Errorf("mark job completed: %w", err))
		return
	}

	logger.Info().
		Str("file_id", fileID).
		Str("instance_id", rendered.InstanceID).
		Int64("took_ms", time.Since(start).Milliseconds()).
		Msg("worker: job completed")

	e.uploadDurable(ctx, job.ID, fileID, objectKey, rendered.PDF, logger)
}

// uploadDurable ships the rendered bytes to blob storage and swaps the file
// record over to the stored regime. Failures leave the inline record intact
// and surface only as a warning on the already-completed job.
func (e *Engine) uploadDurable(ctx context.Context, jobID, fileID, objectKey string, data []byte, logger zerolog.Logger) {
	uploaded, err := e.store.Upload(ctx, objectKey, data, "application/pdf")
	if err != nil {
		logger.Warn().Err(err).Msg("worker: durable upload failed, result stays inline")
		warning := fmt.Sprintf("result generated but durable storage upload failed: %v", err)
		if werr := e.jobs.SetWarning(ctx, jobID, warning); werr != nil {
			logger.Error().Err(werr).Msg("worker: record upload warning failed")
		}
		return
	}

	loc := domain.StoredLocation(uploaded.Key, uploaded.URL)
	if err := e.files.SetLocation(ctx, fileID, loc, uploaded.Size); err != nil {
		logger.Warn().Err(err).Msg("worker: file location update failed, result stays inline")
		warning := fmt.Sprintf("result generated but durable location update failed: %v", err)
		if werr := e.jobs.SetWarning(ctx, jobID, warning); werr != nil {
			logger.Error().Err(werr).Msg("worker: record upload warning failed")
		}
	}
}

// recordFailure spends the attempt: back to the queue while budget remains,
// terminally failed on the last one.
func (e *Engine) recordFailure(ctx context.Context, job domain.Job, logger zerolog.Logger, cause error) {
	logger.Error().Err(cause).Msg("worker: job failed")

	if job.Attempts >= domain.MaxAttempts {
		if err := e.jobs.Fail(ctx, job.ID, cause.Error()); err != nil {
			logger.Error().Err(err).Msg("worker: mark job failed errored")
		}
		return
	}
	if err := e.jobs.Requeue(ctx, job.ID, cause.Error()); err != nil {
		logger.Error().Err(err).Msg("worker: requeue job errored")
	}
}
