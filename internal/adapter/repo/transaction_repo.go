package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aakash-taneja/miles/internal/domain"
)

// TransactionRepositoryPG implements domain.TransactionRepository. The table
// carries a partial unique index on job_id so the pipeline can never record
// two rewards for the same job even under concurrent duplicate completions.
type TransactionRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new transaction repository backed by PostgreSQL.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepositoryPG {
	return &TransactionRepositoryPG{pool: pool}
}

// Create appends a ledger entry. A job_id collision maps to
// domain.ErrDuplicateOperation.
func (r *TransactionRepositoryPG) Create(ctx context.Context, tx *domain.Transaction) error {
	query := `
INSERT INTO transactions (id, user_id, job_id, type, amount, tx_hash, status, description)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
`
	_, err := r.pool.Exec(ctx, query,
		tx.ID,
		tx.UserID,
		tx.JobID,
		tx.Type,
		tx.Amount,
		tx.TxHash,
		tx.Status,
		tx.Description,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return domain.ErrDuplicateOperation
	}
	return err
}

// ExistsForJob reports whether a reward has already been recorded for the job.
func (r *TransactionRepositoryPG) ExistsForJob(ctx context.Context, jobID string) (bool, error) {
	row := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM transactions WHERE job_id = $1)`, jobID)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListRecentByUser returns the user's ledger entries, newest first.
func (r *TransactionRepositoryPG) ListRecentByUser(ctx context.Context, userID string, limit int) ([]domain.Transaction, error) {
	query := `
SELECT id, user_id, job_id, type, amount, tx_hash, status, description, created_at
FROM transactions
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2;
`
	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		if err := rows.Scan(
			&tx.ID,
			&tx.UserID,
			&tx.JobID,
			&tx.Type,
			&tx.Amount,
			&tx.TxHash,
			&tx.Status,
			&tx.Description,
			&tx.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}
