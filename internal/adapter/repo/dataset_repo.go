package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aakash-taneja/miles/internal/domain"
)

// DatasetRepositoryPG implements domain.DatasetRepository.
type DatasetRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewDatasetRepository creates a new dataset repository backed by PostgreSQL.
func NewDatasetRepository(pool *pgxpool.Pool) *DatasetRepositoryPG {
	return &DatasetRepositoryPG{pool: pool}
}

// Upsert creates the dataset when absent. An existing row with the same id is
// returned untouched so repeated uploads never duplicate or rename it.
func (r *DatasetRepositoryPG) Upsert(ctx context.Context, dataset *domain.Dataset) (*domain.Dataset, error) {
	query := `
INSERT INTO datasets (id, owner_id, name, description, region)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE
SET id = EXCLUDED.id
RETURNING id, owner_id, name, description, region, created_at;
`
	row := r.pool.QueryRow(ctx, query,
		dataset.ID,
		dataset.OwnerID,
		dataset.Name,
		dataset.Description,
		dataset.Region,
	)
	var out domain.Dataset
	if err := row.Scan(&out.ID, &out.OwnerID, &out.Name, &out.Description, &out.Region, &out.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

// ListPublished returns datasets having at least one done job, flattening the
// outputs of every done job into each row, newest datasets first.
func (r *DatasetRepositoryPG) ListPublished(ctx context.Context) ([]domain.PublishedDataset, error) {
	query := `
SELECT d.id, u.address, d.name, d.description, d.region, d.created_at,
       COALESCE(jsonb_agg(o.elem ORDER BY j.created_at DESC) FILTER (WHERE o.elem IS NOT NULL), '[]'::jsonb)
FROM datasets d
JOIN users u ON u.id = d.owner_id
JOIN images i ON i.dataset_id = d.id
JOIN jobs j ON j.image_id = i.id AND j.status = 'done'
LEFT JOIN LATERAL jsonb_array_elements(j.outputs) AS o(elem) ON TRUE
GROUP BY d.id, u.address, d.name, d.description, d.region, d.created_at
HAVING COUNT(o.elem) > 0
ORDER BY d.created_at DESC;
`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PublishedDataset
	for rows.Next() {
		var ds domain.PublishedDataset
		if err := rows.Scan(&ds.ID, &ds.OwnerAddress, &ds.Name, &ds.Description, &ds.Region, &ds.CreatedAt, &ds.Outputs); err != nil {
			return nil, err
		}
		out = append(out, ds)
	}
	return out, rows.Err()
}
