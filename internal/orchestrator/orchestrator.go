package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aakash-taneja/miles/internal/domain"
	"github.com/aakash-taneja/miles/internal/providers/augment"
	"github.com/aakash-taneja/miles/internal/publish"
)

// seedRange bounds auto-generated seeds, matching the compute service's
// expectations.
const seedRange = 1_000_000_000

// Augmentor is the compute service boundary: one blocking call that either
// returns the generated payloads or fails.
type Augmentor interface {
	Generate(ctx context.Context, req augment.Request) ([][]byte, error)
}

// Minter is the ledger boundary: mint against the pre-configured contract and
// read holdings from it.
type Minter interface {
	Mint(ctx context.Context, to string, amount int64) (string, error)
	BalanceOf(ctx context.Context, address string) (string, error)
}

// Orchestrator drives the job lifecycle: accept request, persist image and
// job, call the compute service, publish the batch, finalize the job, and
// trigger the reward. It owns every job state transition.
type Orchestrator struct {
	users        domain.UserRepository
	datasets     domain.DatasetRepository
	images       domain.ImageRepository
	jobs         domain.JobRepository
	transactions domain.TransactionRepository

	augmentor Augmentor
	publisher *publish.Publisher
	minter    Minter

	rewardAmount int64
	logger       zerolog.Logger
}

// Deps carries the orchestrator's collaborators. External clients are
// injected, never constructed here, so tests can substitute fakes.
type Deps struct {
	Users        domain.UserRepository
	Datasets     domain.DatasetRepository
	Images       domain.ImageRepository
	Jobs         domain.JobRepository
	Transactions domain.TransactionRepository
	Augmentor    Augmentor
	Publisher    *publish.Publisher
	Minter       Minter
	RewardAmount int64
	Logger       zerolog.Logger
}

// New wires an Orchestrator from its dependencies.
func New(deps Deps) *Orchestrator {
	amount := deps.RewardAmount
	if amount <= 0 {
		amount = 1
	}
	return &Orchestrator{
		users:        deps.Users,
		datasets:     deps.Datasets,
		images:       deps.Images,
		jobs:         deps.Jobs,
		transactions: deps.Transactions,
		augmentor:    deps.Augmentor,
		publisher:    deps.Publisher,
		minter:       deps.Minter,
		rewardAmount: amount,
		logger:       deps.Logger,
	}
}

// CreateJobInput describes a job request for an already-stored original.
type CreateJobInput struct {
	DatasetID string
	SourceCID string
	SourceURL string
	Filename  string
	Recipe    string
	Count     int
	Seed      *uint64
	Region    string
}

// CreateJobResult carries the job identifier, the effective seed, and the
// generated payloads. The payloads exist only in memory at this point; they
// become durable once published and the job completed.
type CreateJobResult struct {
	JobID    string
	Seed     uint64
	Previews [][]byte
}

// CreateJob accepts a request, persists the image and a processing job, and
// runs the compute stage synchronously. A compute failure durably marks the
// job failed; no retry is attempted.
func (o *Orchestrator) CreateJob(ctx context.Context, caller string, in CreateJobInput) (*CreateJobResult, error) {
	user, err := o.users.UpsertByAddress(ctx, caller)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	dataset := domain.NewPersonalDataset(in.DatasetID, user.ID, caller, in.Region)
	if _, err := o.datasets.Upsert(ctx, dataset); err != nil {
		return nil, fmt.Errorf("upsert dataset: %w", err)
	}

	image := &domain.Image{
		ID:        uuid.NewString(),
		DatasetID: in.DatasetID,
		Key:       in.SourceCID,
		Meta:      domain.ImageMeta{Filename: in.Filename, SourceURL: in.SourceURL},
	}
	if err := o.images.Create(ctx, image); err != nil {
		return nil, fmt.Errorf("create image: %w", err)
	}

	job := &domain.Job{
		ID:      uuid.NewString(),
		ImageID: image.ID,
		Recipe:  in.Recipe,
		Status:  domain.JobStatusProcessing,
	}
	if err := o.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	seed := rand.Uint64N(seedRange)
	if in.Seed != nil {
		seed = *in.Seed
	}
	count := domain.ClampVariantCount(in.Count)

	previews, err := o.augmentor.Generate(ctx, augment.Request{
		SourceURL: in.SourceURL,
		Recipe:    in.Recipe,
		Count:     count,
		Seed:      seed,
	})
	if err != nil {
		if failErr := o.jobs.MarkFailed(ctx, job.ID, err.Error()); failErr != nil {
			o.logger.Error().Err(failErr).Str("job_id", job.ID).Msg("mark job failed")
		}
		o.logger.Warn().Err(err).Str("job_id", job.ID).Str("recipe", in.Recipe).Msg("augmentation failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamFailure, err)
	}

	o.logger.Info().
		Str("job_id", job.ID).
		Str("recipe", in.Recipe).
		Int("count", len(previews)).
		Uint64("seed", seed).
		Msg("job created")
	return &CreateJobResult{JobID: job.ID, Seed: seed, Previews: previews}, nil
}

// CompleteJob atomically finalizes a job with its published outputs. Only the
// owner of the job's dataset may complete it; precondition failures leave the
// job unchanged. A repeated completion overwrites the outputs.
func (o *Orchestrator) CompleteJob(ctx context.Context, caller, jobID string, variants []domain.Variant) error {
	_, owner, err := o.jobs.GetWithOwner(ctx, jobID)
	if err != nil {
		return err
	}
	if owner != caller {
		return domain.ErrNotAuthorized
	}
	if err := o.jobs.Complete(ctx, jobID, variants); err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	o.logger.Info().Str("job_id", jobID).Int("outputs", len(variants)).Msg("job completed")
	return nil
}

// CompletionResult is the outcome of the server-side publish path. A reward
// failure is carried separately from the pipeline outcome: the job is done
// even when RewardErr is set.
type CompletionResult struct {
	Outputs      []domain.Variant
	RewardTxHash string
	RewardErr    error
}

// PublishAndComplete runs stages three and four server-side: publish the
// payload batch, finalize the job, then issue the reward. A publish failure
// marks the job failed; a reward failure never reverts the completed job.
func (o *Orchestrator) PublishAndComplete(ctx context.Context, caller, jobID string, payloads [][]byte, progress publish.ProgressFunc) (*CompletionResult, error) {
	_, owner, err := o.jobs.GetWithOwner(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if owner != caller {
		return nil, domain.ErrNotAuthorized
	}

	variants, err := o.publisher.Publish(ctx, "miles_"+jobID, payloads, progress)
	if err != nil {
		if failErr := o.jobs.MarkFailed(ctx, jobID, err.Error()); failErr != nil {
			o.logger.Error().Err(failErr).Str("job_id", jobID).Msg("mark job failed")
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamFailure, err)
	}

	if err := o.jobs.Complete(ctx, jobID, variants); err != nil {
		return nil, fmt.Errorf("complete job: %w", err)
	}
	o.logger.Info().Str("job_id", jobID).Int("outputs", len(variants)).Msg("job published and completed")

	result := &CompletionResult{Outputs: variants}
	result.RewardTxHash, result.RewardErr = o.IssueRewardForJob(ctx, caller, jobID)
	return result, nil
}

// ListJobs returns the caller's 20 most recent jobs.
func (o *Orchestrator) ListJobs(ctx context.Context, caller string) ([]domain.Job, error) {
	return o.jobs.ListRecentByOwner(ctx, caller, 20)
}

// ListTransactions returns the caller's 50 most recent ledger entries. An
// unknown caller simply has none.
func (o *Orchestrator) ListTransactions(ctx context.Context, caller string) ([]domain.Transaction, error) {
	user, err := o.users.GetByAddress(ctx, caller)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return o.transactions.ListRecentByUser(ctx, user.ID, 50)
}

// ListPublishedDatasets returns every dataset with published outputs.
func (o *Orchestrator) ListPublishedDatasets(ctx context.Context) ([]domain.PublishedDataset, error) {
	return o.datasets.ListPublished(ctx)
}

// Job resolves one of the caller's jobs, enforcing ownership.
func (o *Orchestrator) Job(ctx context.Context, caller, jobID string) (*domain.Job, error) {
	job, owner, err := o.jobs.GetWithOwner(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if owner != caller {
		return nil, domain.ErrNotAuthorized
	}
	return job, nil
}
