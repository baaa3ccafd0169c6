package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aakash-taneja/miles/internal/domain"
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

// Create inserts a new job record in its initial status.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	query := `
INSERT INTO jobs (id, image_id, recipe, status)
VALUES ($1, $2, $3, $4);
`
	_, err := r.pool.Exec(ctx, query, job.ID, job.ImageID, job.Recipe, job.Status)
	return err
}

// GetWithOwner fetches a job and the wallet address owning it through the
// image -> dataset -> user chain.
func (r *JobRepositoryPG) GetWithOwner(ctx context.Context, jobID string) (*domain.Job, string, error) {
	query := `
SELECT j.id, j.image_id, j.recipe, j.status, COALESCE(j.outputs, '[]'::jsonb), COALESCE(j.error_message, ''), j.created_at, j.updated_at, u.address
FROM jobs j
JOIN images i ON i.id = j.image_id
JOIN datasets d ON d.id = i.dataset_id
JOIN users u ON u.id = d.owner_id
WHERE j.id = $1;
`
	row := r.pool.QueryRow(ctx, query, jobID)
	var job domain.Job
	var owner string
	if err := row.Scan(
		&job.ID,
		&job.ImageID,
		&job.Recipe,
		&job.Status,
		&job.Outputs,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
		&owner,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", domain.ErrNotFound
		}
		return nil, "", err
	}
	return &job, owner, nil
}

// Complete sets status and outputs in one write so a concurrent completion
// can never observe the status without the outputs.
func (r *JobRepositoryPG) Complete(ctx context.Context, jobID string, outputs []domain.Variant) error {
	query := `
UPDATE jobs
SET status = $2,
    outputs = $3,
    updated_at = NOW()
WHERE id = $1;
`
	tag, err := r.pool.Exec(ctx, query, jobID, domain.JobStatusDone, outputs)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkFailed moves the job to its terminal failure state, keeping the
// upstream error text for operators.
func (r *JobRepositoryPG) MarkFailed(ctx context.Context, jobID, errMsg string) error {
	query := `
UPDATE jobs
SET status = $2,
    error_message = $3,
    updated_at = NOW()
WHERE id = $1;
`
	_, err := r.pool.Exec(ctx, query, jobID, domain.JobStatusFailed, errMsg)
	return err
}

// ListRecentByOwner returns the caller's jobs across all of their datasets,
// newest first.
func (r *JobRepositoryPG) ListRecentByOwner(ctx context.Context, address string, limit int) ([]domain.Job, error) {
	query := `
SELECT j.id, j.image_id, j.recipe, j.status, COALESCE(j.outputs, '[]'::jsonb), COALESCE(j.error_message, ''), j.created_at, j.updated_at
FROM jobs j
JOIN images i ON i.id = j.image_id
JOIN datasets d ON d.id = i.dataset_id
JOIN users u ON u.id = d.owner_id
WHERE u.address = $1
ORDER BY j.created_at DESC
LIMIT $2;
`
	rows, err := r.pool.Query(ctx, query, address, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Job
	for rows.Next() {
		var job domain.Job
		if err := rows.Scan(
			&job.ID,
			&job.ImageID,
			&job.Recipe,
			&job.Status,
			&job.Outputs,
			&job.ErrorMessage,
			&job.CreatedAt,
			&job.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}
