package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/aakash-taneja/miles/internal/domain"
)

// IssueRewardForJob mints the configured reward for a completed job and
// appends the ledger entry, keyed on the job so a duplicate completion cannot
// double-mint. The call is decoupled from job success: failures here are
// reported to the caller but never touch the job's terminal state.
func (o *Orchestrator) IssueRewardForJob(ctx context.Context, caller, jobID string) (string, error) {
	job, owner, err := o.jobs.GetWithOwner(ctx, jobID)
	if err != nil {
		return "", err
	}
	if owner != caller {
		return "", domain.ErrNotAuthorized
	}
	if job.Status != domain.JobStatusDone {
		return "", fmt.Errorf("job %s is %s, reward requires completion", jobID, job.Status)
	}

	exists, err := o.transactions.ExistsForJob(ctx, jobID)
	if err != nil {
		return "", fmt.Errorf("check reward ledger: %w", err)
	}
	if exists {
		return "", domain.ErrDuplicateOperation
	}

	description := fmt.Sprintf("Earned %d DataCoin for %s augmentation", o.rewardAmount, domain.RecipeLabel(job.Recipe))
	return o.mintAndRecord(ctx, caller, o.rewardAmount, &jobID, description)
}

// MintReward mints an explicit, job-independent reward to the caller. The
// original upload flow drives this endpoint directly; it carries no per-job
// deduplication.
func (o *Orchestrator) MintReward(ctx context.Context, caller string, amount int64) (string, error) {
	if amount <= 0 {
		amount = o.rewardAmount
	}
	description := fmt.Sprintf("Earned %d DataCoin for uploading image", amount)
	return o.mintAndRecord(ctx, caller, amount, nil, description)
}

func (o *Orchestrator) mintAndRecord(ctx context.Context, caller string, amount int64, jobID *string, description string) (string, error) {
	if o.minter == nil {
		return "", errors.New("minting is not configured")
	}
	user, err := o.users.UpsertByAddress(ctx, caller)
	if err != nil {
		return "", fmt.Errorf("upsert user: %w", err)
	}

	txHash, err := o.minter.Mint(ctx, caller, amount)
	if err != nil {
		o.logger.Warn().Err(err).Str("address", caller).Msg("mint failed")
		return "", fmt.Errorf("%w: %v", domain.ErrUpstreamFailure, err)
	}

	record := &domain.Transaction{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		JobID:       jobID,
		Type:        domain.TransactionTypeMint,
		Amount:      strconv.FormatInt(amount, 10),
		TxHash:      txHash,
		Status:      domain.TransactionStatusConfirmed,
		Description: description,
	}
	if err := o.transactions.Create(ctx, record); err != nil {
		// The mint already happened; surface the bookkeeping failure with
		// the hash so the caller is not told the reward was lost.
		o.logger.Error().Err(err).Str("tx_hash", txHash).Msg("record reward transaction")
		return txHash, fmt.Errorf("record reward: %w", err)
	}

	o.logger.Info().Str("address", caller).Str("tx_hash", txHash).Int64("amount", amount).Msg("reward minted")
	return txHash, nil
}

// Balance returns the caller's token balance. A chain failure yields the
// documented default of "0" rather than an error; callers should treat a
// zero after an upstream problem as unknown, not confirmed.
func (o *Orchestrator) Balance(ctx context.Context, caller string) string {
	if o.minter == nil {
		return "0"
	}
	balance, err := o.minter.BalanceOf(ctx, caller)
	if err != nil {
		o.logger.Warn().Err(err).Str("address", caller).Msg("balance query failed")
		return "0"
	}
	return balance
}
