package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"promptpdf/internal/domain"
)

// FileRepositoryPG implements domain.FileRepository on PostgreSQL. The
// FileLocation sum type is flattened into the file_key/file_url columns at
// this boundary.
type FileRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewFileRepository creates a new file repository backed by PostgreSQL.
func NewFileRepository(pool *pgxpool.Pool) *FileRepositoryPG {
	return &FileRepositoryPG{pool: pool}
}

// Create inserts a new file record.
func (r *FileRepositoryPG) Create(ctx context.Context, file *domain.File) error {
	fileKey, fileURL := file.Location.EncodeColumns(file.ID)
	query := `
INSERT INTO files (id, job_id, user_id, file_key, file_url, mime_type, size)
VALUES ($1, $2, $3, $4, $5, $6, $7);
`
	_, err := r.pool.Exec(ctx, query,
		file.ID,
		file.JobID,
		file.UserID,
		fileKey,
		fileURL,
		file.MimeType,
		file.Size,
	)
	return err
}

// GetByID fetches a file by its identifier.
func (r *FileRepositoryPG) GetByID(ctx context.Context, fileID string) (*domain.File, error) {
	query := `
SELECT id, job_id, user_id, file_key, file_url, mime_type, size, created_at
FROM files
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, query, fileID)
	var (
		file             domain.File
		fileKey, fileURL string
	)
	if err := row.Scan(
		&file.ID,
		&file.JobID,
		&file.UserID,
		&fileKey,
		&fileURL,
		&file.MimeType,
		&file.Size,
		&file.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	loc, err := domain.DecodeLocation(fileKey, fileURL)
	if err != nil {
		return nil, err
	}
	file.Location = loc
	return &file, nil
}

// SetLocation replaces the file's location and true size once the durable
// upload succeeds.
func (r *FileRepositoryPG) SetLocation(ctx context.Context, fileID string, loc domain.FileLocation, size int64) error {
	fileKey, fileURL := loc.EncodeColumns(fileID)
	query := `
UPDATE files
SET file_key = $2,
    file_url = $3,
    size = $4
WHERE id = $1;
`
	_, err := r.pool.Exec(ctx, query, fileID, fileKey, fileURL, size)
	return err
}

var _ domain.FileRepository = (*FileRepositoryPG)(nil)
