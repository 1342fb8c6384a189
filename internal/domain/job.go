package domain

import "time"

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// MaxAttempts bounds how many times a job may be claimed before it is
// considered permanently failed.
const MaxAttempts = 3

// Job encapsulates the lifecycle of one prompt-to-PDF generation request.
// A job is created queued with zero attempts, claimed by a worker
// (processing, attempts incremented), and terminates completed or failed.
type Job struct {
	ID           string
	Prompt       string
	UserID       *string
	Status       JobStatus
	Attempts     int
	ResultFileID *string
	ErrorMessage *string
	ClaimedAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Terminal reports whether the job can no longer change state.
func (j *Job) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// AttemptsExhausted reports whether the job has consumed its retry budget.
func (j *Job) AttemptsExhausted() bool {
	return j.Attempts >= MaxAttempts
}
