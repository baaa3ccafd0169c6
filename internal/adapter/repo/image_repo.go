package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aakash-taneja/miles/internal/domain"
)

// ImageRepositoryPG implements domain.ImageRepository.
type ImageRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewImageRepository creates a new image repository backed by PostgreSQL.
func NewImageRepository(pool *pgxpool.Pool) *ImageRepositoryPG {
	return &ImageRepositoryPG{pool: pool}
}

// Create inserts a new image record. Images are immutable after creation.
func (r *ImageRepositoryPG) Create(ctx context.Context, image *domain.Image) error {
	query := `
INSERT INTO images (id, dataset_id, key, meta)
VALUES ($1, $2, $3, $4);
`
	_, err := r.pool.Exec(ctx, query, image.ID, image.DatasetID, image.Key, image.Meta)
	return err
}
