package domain

import "time"

// TransactionType enumerates ledger entry kinds. Only minting exists today.
type TransactionType string

const TransactionTypeMint TransactionType = "mint"

// TransactionStatus enumerates ledger entry states.
type TransactionStatus string

const TransactionStatusConfirmed TransactionStatus = "confirmed"

// Transaction is one append-only reward ledger entry. Records are created
// exactly once per successful mint and never mutated or deleted. JobID links
// the entry to the job that earned it when the reward was issued by the
// pipeline; explicit mints carry no job reference.
type Transaction struct {
	ID          string
	UserID      string
	JobID       *string
	Type        TransactionType
	Amount      string
	TxHash      string
	Status      TransactionStatus
	Description string
	CreatedAt   time.Time
}
