package domain

import "context"

// UserRepository defines access methods for wallet users.
type UserRepository interface {
	UpsertByAddress(ctx context.Context, address string) (*User, error)
	GetByAddress(ctx context.Context, address string) (*User, error)
}

// DatasetRepository defines persistence for datasets.
type DatasetRepository interface {
	// Upsert creates the dataset when absent and leaves an existing row with
	// the same id untouched.
	Upsert(ctx context.Context, dataset *Dataset) (*Dataset, error)
	// ListPublished returns datasets that have at least one done job, each
	// with the flattened outputs of all its done jobs.
	ListPublished(ctx context.Context) ([]PublishedDataset, error)
}

// ImageRepository handles persistence for uploaded source images.
type ImageRepository interface {
	Create(ctx context.Context, image *Image) error
}

// JobRepository defines persistence for job entities.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	// GetWithOwner resolves the job together with the wallet address that
	// owns it through the job -> image -> dataset -> user chain.
	GetWithOwner(ctx context.Context, jobID string) (*Job, string, error)
	// Complete atomically sets status to done and stores the outputs in the
	// same write.
	Complete(ctx context.Context, jobID string, outputs []Variant) error
	MarkFailed(ctx context.Context, jobID, errMsg string) error
	// ListRecentByOwner returns the caller's most recent jobs across all of
	// their datasets, newest first.
	ListRecentByOwner(ctx context.Context, address string, limit int) ([]Job, error)
}

// TransactionRepository handles the append-only reward ledger.
type TransactionRepository interface {
	Create(ctx context.Context, tx *Transaction) error
	ExistsForJob(ctx context.Context, jobID string) (bool, error)
	ListRecentByUser(ctx context.Context, userID string, limit int) ([]Transaction, error)
}
