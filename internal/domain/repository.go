package domain

import (
	"context"
	"time"
)

// JobRepository defines persistence for job entities. ClaimBatch and
// ClaimOne are the only mutations that race across workers; both must be
// atomic with respect to concurrent callers.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, jobID string) (*Job, error)

	// ClaimBatch atomically selects up to limit queued jobs with spare
	// attempts, oldest first, flips them to processing and increments
	// their attempts counter. Two concurrent callers never receive the
	// same job.
	ClaimBatch(ctx context.Context, limit int) ([]Job, error)

	// ClaimOne conditionally claims a specific queued job. It returns
	// ErrAlreadyClaimed when the job is no longer queued, which callers
	// treat as a silent skip.
	ClaimOne(ctx context.Context, jobID string) (*Job, error)

	// Complete flips a processing job to completed and records its result
	// file, clearing any error message from earlier attempts.
	Complete(ctx context.Context, jobID, resultFileID string) error

	// Fail records a terminal failure.
	Fail(ctx context.Context, jobID, errMsg string) error

	// Requeue returns a processing job to the queue after a retriable
	// failure, keeping the error message for visibility.
	Requeue(ctx context.Context, jobID, errMsg string) error

	// SetWarning records a non-fatal post-completion warning without
	// touching the job's status.
	SetWarning(ctx context.Context, jobID, warning string) error

	// RequeueStale returns processing jobs whose claim is older than the
	// lease to the queue, so work lost to a hard crash is retried.
	RequeueStale(ctx context.Context, lease time.Duration) (int, error)

	// CountQueued reports how many jobs are currently claimable.
	CountQueued(ctx context.Context) (int, error)
}

// FileRepository handles persistence for rendered files.
type FileRepository interface {
	Create(ctx context.Context, file *File) error
	GetByID(ctx context.Context, fileID string) (*File, error)

	// SetLocation replaces the file's location (and true size) once the
	// durable upload succeeds.
	SetLocation(ctx context.Context, fileID string, loc FileLocation, size int64) error
}
