package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aakash-taneja/miles/internal/domain"
	"github.com/aakash-taneja/miles/internal/providers/augment"
	"github.com/aakash-taneja/miles/internal/publish"
)

const (
	ownerAddr    = "0x1111111111111111111111111111111111111111"
	strangerAddr = "0x2222222222222222222222222222222222222222"
)

// memStore is an in-memory stand-in for the external record store.
type memStore struct {
	mu           sync.Mutex
	users        map[string]*domain.User // by address
	datasets     map[string]*domain.Dataset
	images       map[string]*domain.Image
	jobs         map[string]*domain.Job
	transactions []*domain.Transaction
	seq          int
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]*domain.User{},
		datasets: map[string]*domain.Dataset{},
		images:   map[string]*domain.Image{},
		jobs:     map[string]*domain.Job{},
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *memStore) UpsertByAddress(_ context.Context, address string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[address]; ok {
		return u, nil
	}
	u := &domain.User{ID: s.nextID("user"), Address: address}
	s.users[address] = u
	return u, nil
}

func (s *memStore) GetByAddress(_ context.Context, address string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[address]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (s *memStore) Upsert(_ context.Context, dataset *domain.Dataset) (*domain.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.datasets[dataset.ID]; ok {
		return existing, nil
	}
	s.datasets[dataset.ID] = dataset
	return dataset, nil
}

func (s *memStore) ListPublished(_ context.Context) ([]domain.PublishedDataset, error) {
	return nil, nil
}

func (s *memStore) Create(_ context.Context, image *domain.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images[image.ID] = image
	return nil
}

type memJobs struct{ store *memStore }

func (s *memJobs) Create(_ context.Context, job *domain.Job) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	copied := *job
	s.store.jobs[job.ID] = &copied
	return nil
}

func (s *memJobs) GetWithOwner(_ context.Context, jobID string) (*domain.Job, string, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	job, ok := s.store.jobs[jobID]
	if !ok {
		return nil, "", domain.ErrNotFound
	}
	image := s.store.images[job.ImageID]
	dataset := s.store.datasets[image.DatasetID]
	for _, u := range s.store.users {
		if u.ID == dataset.OwnerID {
			copied := *job
			return &copied, u.Address, nil
		}
	}
	return nil, "", domain.ErrNotFound
}

func (s *memJobs) Complete(_ context.Context, jobID string, outputs []domain.Variant) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	job, ok := s.store.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	job.Status = domain.JobStatusDone
	job.Outputs = outputs
	return nil
}

func (s *memJobs) MarkFailed(_ context.Context, jobID, errMsg string) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	job, ok := s.store.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	job.Status = domain.JobStatusFailed
	job.ErrorMessage = errMsg
	return nil
}

func (s *memJobs) ListRecentByOwner(_ context.Context, address string, limit int) ([]domain.Job, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	var out []domain.Job
	for _, job := range s.store.jobs {
		out = append(out, *job)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type memTransactions struct{ store *memStore }

func (s *memTransactions) Create(_ context.Context, tx *domain.Transaction) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if tx.JobID != nil {
		for _, existing := range s.store.transactions {
			if existing.JobID != nil && *existing.JobID == *tx.JobID {
				return domain.ErrDuplicateOperation
			}
		}
	}
	s.store.transactions = append(s.store.transactions, tx)
	return nil
}

func (s *memTransactions) ExistsForJob(_ context.Context, jobID string) (bool, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	for _, tx := range s.store.transactions {
		if tx.JobID != nil && *tx.JobID == jobID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memTransactions) ListRecentByUser(_ context.Context, userID string, limit int) ([]domain.Transaction, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	var out []domain.Transaction
	for _, tx := range s.store.transactions {
		if tx.UserID == userID {
			out = append(out, *tx)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// fakeAugmentor returns count deterministic payloads and records the request.
type fakeAugmentor struct {
	lastReq augment.Request
	err     error
}

func (f *fakeAugmentor) Generate(_ context.Context, req augment.Request) ([][]byte, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]byte, req.Count)
	for i := range out {
		out[i] = []byte(fmt.Sprintf("variant-%d", i+1))
	}
	return out, nil
}

type fakeMinter struct {
	mu     sync.Mutex
	mints  int
	err    error
	balErr error
}

func (f *fakeMinter) Mint(_ context.Context, to string, amount int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.mints++
	return fmt.Sprintf("0xtx%d", f.mints), nil
}

func (f *fakeMinter) BalanceOf(_ context.Context, address string) (string, error) {
	if f.balErr != nil {
		return "", f.balErr
	}
	return "5", nil
}

type memUploader struct{}

func (memUploader) Upload(_ context.Context, name string, data []byte) (domain.Variant, error) {
	cid := "cid-" + string(data)
	return domain.Variant{CID: cid, URL: "https://gateway.test/ipfs/" + cid}, nil
}

type fixture struct {
	store     *memStore
	augmentor *fakeAugmentor
	minter    *fakeMinter
	core      *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	augmentor := &fakeAugmentor{}
	minter := &fakeMinter{}
	core := New(Deps{
		Users:        store,
		Datasets:     store,
		Images:       store,
		Jobs:         &memJobs{store: store},
		Transactions: &memTransactions{store: store},
		Augmentor:    augmentor,
		Publisher:    publish.NewPublisher(memUploader{}),
		Minter:       minter,
		RewardAmount: 1,
		Logger:       zerolog.Nop(),
	})
	return &fixture{store: store, augmentor: augmentor, minter: minter, core: core}
}

func createInput() CreateJobInput {
	return CreateJobInput{
		DatasetID: "d1",
		SourceCID: "cidX",
		SourceURL: "https://gateway.test/ipfs/cidX",
		Filename:  "street.jpg",
		Recipe:    "rain_heavy",
		Count:     5,
	}
}

func TestCreateJobClampsCount(t *testing.T) {
	cases := []struct {
		name  string
		count int
		want  int
	}{
		{"below range", 0, 1},
		{"above range", 50, 12},
		{"in range", 5, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			in := createInput()
			in.Count = tc.count
			result, err := f.core.CreateJob(context.Background(), ownerAddr, in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, f.augmentor.lastReq.Count)
			assert.Len(t, result.Previews, tc.want)
		})
	}
}

func TestCreateJobEchoesExplicitSeed(t *testing.T) {
	f := newFixture(t)
	in := createInput()
	seed := uint64(42)
	in.Seed = &seed

	result, err := f.core.CreateJob(context.Background(), ownerAddr, in)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), result.Seed)
	assert.Equal(t, uint64(42), f.augmentor.lastReq.Seed)
}

func TestCreateJobGeneratesSeedWhenAbsent(t *testing.T) {
	f := newFixture(t)
	result, err := f.core.CreateJob(context.Background(), ownerAddr, createInput())
	require.NoError(t, err)
	assert.Equal(t, f.augmentor.lastReq.Seed, result.Seed)
	assert.Less(t, result.Seed, uint64(seedRange))
}

func TestCreateJobDoesNotDuplicateDataset(t *testing.T) {
	f := newFixture(t)
	_, err := f.core.CreateJob(context.Background(), ownerAddr, createInput())
	require.NoError(t, err)
	_, err = f.core.CreateJob(context.Background(), ownerAddr, createInput())
	require.NoError(t, err)

	assert.Len(t, f.store.datasets, 1)
	assert.Equal(t, "Dataset by 0x1111...1111", f.store.datasets["d1"].Name)
	assert.Equal(t, domain.DefaultDatasetRegion, f.store.datasets["d1"].Region)
}

func TestCreateJobMarksJobFailedOnComputeError(t *testing.T) {
	f := newFixture(t)
	f.augmentor.err = errors.New("augmentor exploded: recipe unknown")

	_, err := f.core.CreateJob(context.Background(), ownerAddr, createInput())
	require.ErrorIs(t, err, domain.ErrUpstreamFailure)
	assert.Contains(t, err.Error(), "augmentor exploded: recipe unknown")

	require.Len(t, f.store.jobs, 1)
	for _, job := range f.store.jobs {
		assert.Equal(t, domain.JobStatusFailed, job.Status)
		assert.Empty(t, job.Outputs)
	}
	assert.Empty(t, f.store.transactions)
}

func completedJob(t *testing.T, f *fixture) string {
	t.Helper()
	result, err := f.core.CreateJob(context.Background(), ownerAddr, createInput())
	require.NoError(t, err)
	return result.JobID
}

func TestCompleteJobRejectsStranger(t *testing.T) {
	f := newFixture(t)
	jobID := completedJob(t, f)
	// The stranger has to exist as a user for the check to be about
	// ownership, not existence.
	_, err := f.store.UpsertByAddress(context.Background(), strangerAddr)
	require.NoError(t, err)

	err = f.core.CompleteJob(context.Background(), strangerAddr, jobID, []domain.Variant{{CID: "c", URL: "u"}})
	require.ErrorIs(t, err, domain.ErrNotAuthorized)
	assert.Equal(t, domain.JobStatusProcessing, f.store.jobs[jobID].Status)
}

func TestCompleteJobUnknownJob(t *testing.T) {
	f := newFixture(t)
	err := f.core.CompleteJob(context.Background(), ownerAddr, "missing", nil)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCompleteJobSetsStatusAndOutputsTogether(t *testing.T) {
	f := newFixture(t)
	jobID := completedJob(t, f)
	variants := []domain.Variant{{CID: "c1", URL: "u1"}, {CID: "c2", URL: "u2"}}

	require.NoError(t, f.core.CompleteJob(context.Background(), ownerAddr, jobID, variants))
	job := f.store.jobs[jobID]
	assert.Equal(t, domain.JobStatusDone, job.Status)
	assert.Equal(t, variants, job.Outputs)
}

func TestIssueRewardForJobRequiresCompletion(t *testing.T) {
	f := newFixture(t)
	jobID := completedJob(t, f)

	_, err := f.core.IssueRewardForJob(context.Background(), ownerAddr, jobID)
	require.Error(t, err)
	assert.Zero(t, f.minter.mints)
}

func TestIssueRewardForJobDeduplicates(t *testing.T) {
	f := newFixture(t)
	jobID := completedJob(t, f)
	require.NoError(t, f.core.CompleteJob(context.Background(), ownerAddr, jobID, []domain.Variant{{CID: "c", URL: "u"}}))

	txHash, err := f.core.IssueRewardForJob(context.Background(), ownerAddr, jobID)
	require.NoError(t, err)
	assert.NotEmpty(t, txHash)

	_, err = f.core.IssueRewardForJob(context.Background(), ownerAddr, jobID)
	require.ErrorIs(t, err, domain.ErrDuplicateOperation)
	assert.Equal(t, 1, f.minter.mints)
}

func TestRewardFailureDoesNotRevertCompletion(t *testing.T) {
	f := newFixture(t)
	jobID := completedJob(t, f)
	require.NoError(t, f.core.CompleteJob(context.Background(), ownerAddr, jobID, []domain.Variant{{CID: "c", URL: "u"}}))

	f.minter.err = errors.New("rpc unreachable")
	_, err := f.core.IssueRewardForJob(context.Background(), ownerAddr, jobID)
	require.ErrorIs(t, err, domain.ErrUpstreamFailure)

	assert.Equal(t, domain.JobStatusDone, f.store.jobs[jobID].Status)
	assert.Empty(t, f.store.transactions)
}

func TestRewardDescriptionUsesRecipeLabel(t *testing.T) {
	f := newFixture(t)
	jobID := completedJob(t, f)
	require.NoError(t, f.core.CompleteJob(context.Background(), ownerAddr, jobID, []domain.Variant{{CID: "c", URL: "u"}}))

	_, err := f.core.IssueRewardForJob(context.Background(), ownerAddr, jobID)
	require.NoError(t, err)
	require.Len(t, f.store.transactions, 1)
	tx := f.store.transactions[0]
	assert.Equal(t, "Earned 1 DataCoin for Rain Heavy augmentation", tx.Description)
	assert.Equal(t, "1", tx.Amount)
	require.NotNil(t, tx.JobID)
	assert.Equal(t, jobID, *tx.JobID)
}

func TestPublishAndCompleteEndToEnd(t *testing.T) {
	f := newFixture(t)
	seed := uint64(42)
	in := createInput()
	in.Seed = &seed

	created, err := f.core.CreateJob(context.Background(), ownerAddr, in)
	require.NoError(t, err)
	require.Len(t, created.Previews, 5)

	var reports []int
	result, err := f.core.PublishAndComplete(context.Background(), ownerAddr, created.JobID, created.Previews, func(done, total int) {
		reports = append(reports, done)
	})
	require.NoError(t, err)
	require.NoError(t, result.RewardErr)
	assert.NotEmpty(t, result.RewardTxHash)
	assert.Equal(t, []int{3, 5}, reports)

	job := f.store.jobs[created.JobID]
	assert.Equal(t, domain.JobStatusDone, job.Status)
	require.Len(t, job.Outputs, 5)
	for i, output := range job.Outputs {
		assert.Equal(t, fmt.Sprintf("cid-variant-%d", i+1), output.CID)
	}
	require.Len(t, f.store.transactions, 1)
}

func TestPublishAndCompleteRewardFailureIsNonFatal(t *testing.T) {
	f := newFixture(t)
	created, err := f.core.CreateJob(context.Background(), ownerAddr, createInput())
	require.NoError(t, err)

	f.minter.err = errors.New("nonce too low")
	result, err := f.core.PublishAndComplete(context.Background(), ownerAddr, created.JobID, created.Previews, nil)
	require.NoError(t, err)
	require.Error(t, result.RewardErr)
	assert.Equal(t, domain.JobStatusDone, f.store.jobs[created.JobID].Status)
}

func TestBalanceDefaultsToZeroOnChainError(t *testing.T) {
	f := newFixture(t)
	f.minter.balErr = errors.New("rpc down")
	assert.Equal(t, "0", f.core.Balance(context.Background(), ownerAddr))

	f.minter.balErr = nil
	assert.Equal(t, "5", f.core.Balance(context.Background(), ownerAddr))
}
