package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aakash-taneja/miles/internal/domain"
)

// UserRepositoryPG implements domain.UserRepository backed by PostgreSQL.
type UserRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepositoryPG.
func NewUserRepository(pool *pgxpool.Pool) *UserRepositoryPG {
	return &UserRepositoryPG{pool: pool}
}

// UpsertByAddress inserts the user when the wallet address is new and returns
// the existing row otherwise.
func (r *UserRepositoryPG) UpsertByAddress(ctx context.Context, address string) (*domain.User, error) {
	query := `
INSERT INTO users (id, address)
VALUES ($1, $2)
ON CONFLICT (address) DO UPDATE
SET address = EXCLUDED.address
RETURNING id, address, created_at;
`
	row := r.pool.QueryRow(ctx, query, uuid.NewString(), address)
	return scanUser(row)
}

// GetByAddress fetches a user by wallet address.
func (r *UserRepositoryPG) GetByAddress(ctx context.Context, address string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, address, created_at FROM users WHERE address = $1`, address)
	return scanUser(row)
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(&user.ID, &user.Address, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}
