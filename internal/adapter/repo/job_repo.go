package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"promptpdf/internal/domain"
)

const jobColumns = `id, prompt, user_id, status, attempts, result_file_id, error_message, claimed_at, created_at, updated_at`

// JobRepositoryPG implements domain.JobRepository on PostgreSQL. The claim
// operations lean on row-level locking so any number of workers can race
// safely.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

// Create inserts a new queued job record.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	query := `
INSERT INTO jobs (id, prompt, user_id, status, attempts)
VALUES ($1, $2, $3, $4, $5);
`
	_, err := r.pool.Exec(ctx, query, job.ID, job.Prompt, job.UserID, job.Status, job.Attempts)
	return err
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1;`
	job, err := scanJob(r.pool.QueryRow(ctx, query, jobID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// ClaimBatch atomically claims up to limit queued jobs, oldest first. The
// FOR UPDATE SKIP LOCKED select guarantees two concurrent callers never
// receive the same row, and the single statement both flips status and
// spends an attempt.
func (r *JobRepositoryPG) ClaimBatch(ctx context.Context, limit int) ([]domain.Job, error) {
	query := `
WITH next_jobs AS (
    SELECT id
    FROM jobs
    WHERE status = 'queued' AND attempts < $2
    ORDER BY created_at ASC
    FOR UPDATE SKIP LOCKED
    LIMIT $1
)
UPDATE jobs
SET status = 'processing',
    attempts = attempts + 1,
    claimed_at = now(),
    updated_at = now()
WHERE id IN (SELECT id FROM next_jobs)
RETURNING ` + jobColumns + `;
`
	rows, err := r.pool.Query(ctx, query, limit, domain.MaxAttempts)
	if err != nil {
		return nil, fmt.Errorf("claim batch: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claimed job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// ClaimOne conditionally claims a single queued job. Zero rows affected
// means another worker got there first and maps to ErrAlreadyClaimed.
func (r *JobRepositoryPG) ClaimOne(ctx context.Context, jobID string) (*domain.Job, error) {
	query := `
UPDATE jobs
SET status = 'processing',
    attempts = attempts + 1,
    claimed_at = now(),
    updated_at = now()
WHERE id = $1 AND status = 'queued' AND attempts < $2
RETURNING ` + jobColumns + `;
`
	job, err := scanJob(r.pool.QueryRow(ctx, query, jobID, domain.MaxAttempts))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAlreadyClaimed
		}
		return nil, err
	}
	return job, nil
}

// Complete marks a job successful, clearing any error recorded by earlier
// attempts.
func (r *JobRepositoryPG) Complete(ctx context.Context, jobID, resultFileID string) error {
	query := `
UPDATE jobs
SET status = 'completed',
    result_file_id = $2,
    error_message = NULL,
    updated_at = now()
WHERE id = $1;
`
	_, err := r.pool.Exec(ctx, query, jobID, resultFileID)
	return err
}

// Fail records a terminal failure.
func (r *JobRepositoryPG) Fail(ctx context.Context, jobID, errMsg string) error {
	query := `
UPDATE jobs
SET status = 'failed',
    error_message = $2,
    updated_at = now()
WHERE id = $1;
`
	_, err := r.pool.Exec(ctx, query, jobID, errMsg)
	return err
}

// Requeue returns a processing job to the queue for another attempt.
func (r *JobRepositoryPG) Requeue(ctx context.Context, jobID, errMsg string) error {
	query := `
UPDATE jobs
SET status = 'queued',
    error_message = $2,
    claimed_at = NULL,
    updated_at = now()
WHERE id = $1;
`
	_, err := r.pool.Exec(ctx, query, jobID, errMsg)
	return err
}

// SetWarning records a non-fatal warning without touching job status.
func (r *JobRepositoryPG) SetWarning(ctx context.Context, jobID, warning string) error {
	query := `
UPDATE jobs
SET error_message = $2,
    updated_at = now()
WHERE id = $1;
`
	_, err := r.pool.Exec(ctx, query, jobID, warning)
	return err
}

// RequeueStale returns processing jobs whose claim outlived the lease, so
// work orphaned by a crashed worker is retried.
func (r *JobRepositoryPG) RequeueStale(ctx context.Context, lease time.Duration) (int, error) {
	query := `
UPDATE jobs
SET status = 'queued',
    claimed_at = NULL,
    updated_at = now()
WHERE status = 'processing' AND claimed_at < now() - $1::interval;
`
	tag, err := r.pool.Exec(ctx, query, lease)
	if err != nil {
		return 0, fmt.Errorf("requeue stale: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// CountQueued reports how many jobs are currently claimable. The partial
// index on (created_at) WHERE status='queued' keeps this cheap.
func (r *JobRepositoryPG) CountQueued(ctx context.Context) (int, error) {
	query := `SELECT count(*) FROM jobs WHERE status = 'queued' AND attempts < $1;`
	var n int
	if err := r.pool.QueryRow(ctx, query, domain.MaxAttempts).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var job domain.Job
	if err := row.Scan(
		&job.ID,
		&job.Prompt,
		&job.UserID,
		&job.Status,
		&job.Attempts,
		&job.ResultFileID,
		&job.ErrorMessage,
		&job.ClaimedAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &job, nil
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
