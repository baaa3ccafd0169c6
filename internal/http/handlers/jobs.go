package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aakash-taneja/miles/internal/domain"
	"github.com/aakash-taneja/miles/internal/providers/augment"
	"github.com/aakash-taneja/miles/internal/orchestrator"
	"github.com/aakash-taneja/miles/pkg/zip"
)

type jobCreateRequest struct {
	DatasetID string  `json:"datasetId"`
	SourceCID string  `json:"sourceCid"`
	SourceURL string  `json:"sourceUrl"`
	Filename  string  `json:"filename"`
	Recipe    string  `json:"recipe"`
	Count     *int    `json:"count"`
	Seed      *uint64 `json:"seed"`
}

type jobCreateResponse struct {
	JobID         string   `json:"jobId"`
	Seed          uint64   `json:"seed"`
	OutputsBase64 []string `json:"outputsBase64"`
}

// JobsCreate accepts a job for an already-stored original, runs the compute
// stage synchronously, and returns the generated variants as an in-memory
// preview. Publication and completion happen in a second call.
func (a *App) JobsCreate(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	var req jobCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.DatasetID == "" || req.SourceCID == "" || req.SourceURL == "" || req.Recipe == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "datasetId, sourceCid, sourceUrl and recipe are required")
		return
	}

	count := domain.DefaultVariantCount
	if req.Count != nil {
		count = *req.Count
	}

	result, err := a.Core.CreateJob(r.Context(), caller, orchestrator.CreateJobInput{
		DatasetID: req.DatasetID,
		SourceCID: req.SourceCID,
		SourceURL: req.SourceURL,
		Filename:  req.Filename,
		Recipe:    req.Recipe,
		Count:     count,
		Seed:      req.Seed,
		Region:    a.callerRegion(r),
	})
	if err != nil {
		a.domainError(w, err)
		return
	}

	previews := make([]string, len(result.Previews))
	for i, payload := range result.Previews {
		previews[i] = augment.EncodeDataURL(payload)
	}
	a.json(w, http.StatusOK, jobCreateResponse{JobID: result.JobID, Seed: result.Seed, OutputsBase64: previews})
}

type jobCompleteRequest struct {
	Variants []domain.Variant `json:"variants"`
}

type rewardOutcome struct {
	TxHash string `json:"txHash,omitempty"`
	Error  string `json:"error,omitempty"`
}

type jobCompleteResponse struct {
	OK     bool           `json:"ok"`
	Reward *rewardOutcome `json:"reward,omitempty"`
}

// JobsComplete finalizes a job whose variants the caller published
// client-side, then issues the reward. The reward outcome travels in its own
// field: a mint failure does not fail the completion.
func (a *App) JobsComplete(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	var req jobCompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if len(req.Variants) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "variants required")
		return
	}

	if err := a.Core.CompleteJob(r.Context(), caller, jobID, req.Variants); err != nil {
		a.domainError(w, err)
		return
	}

	resp := jobCompleteResponse{OK: true, Reward: &rewardOutcome{}}
	txHash, err := a.Core.IssueRewardForJob(r.Context(), caller, jobID)
	if err != nil {
		resp.Reward.Error = err.Error()
	}
	resp.Reward.TxHash = txHash
	a.json(w, http.StatusOK, resp)
}

type jobPublishRequest struct {
	OutputsBase64 []string `json:"outputsBase64"`
}

type jobPublishResponse struct {
	OK      bool             `json:"ok"`
	Outputs []domain.Variant `json:"outputs"`
	Reward  *rewardOutcome   `json:"reward,omitempty"`
}

// JobsPublish is the server-side alternative to the split flow: the caller
// hands back the generated payloads, the server publishes the batch,
// finalizes the job, and issues the reward in one request.
func (a *App) JobsPublish(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	var req jobPublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if len(req.OutputsBase64) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "outputsBase64 required")
		return
	}

	payloads := make([][]byte, len(req.OutputsBase64))
	for i, encoded := range req.OutputsBase64 {
		data, err := augment.DecodeDataURL(encoded)
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("payload %d is not valid base64", i+1))
			return
		}
		payloads[i] = data
	}

	result, err := a.Core.PublishAndComplete(r.Context(), caller, jobID, payloads, func(done, total int) {
		a.Logger.Debug().Str("job_id", jobID).Int("done", done).Int("total", total).Msg("publish progress")
	})
	if err != nil {
		a.domainError(w, err)
		return
	}

	resp := jobPublishResponse{OK: true, Outputs: result.Outputs, Reward: &rewardOutcome{TxHash: result.RewardTxHash}}
	if result.RewardErr != nil {
		resp.Reward.Error = result.RewardErr.Error()
	}
	a.json(w, http.StatusOK, resp)
}

type jobDTO struct {
	ID           string           `json:"id"`
	ImageID      string           `json:"imageId"`
	Recipe       string           `json:"recipe"`
	Status       string           `json:"status"`
	Outputs      []domain.Variant `json:"outputs"`
	ErrorMessage string           `json:"errorMessage,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

func toJobDTO(job domain.Job) jobDTO {
	outputs := job.Outputs
	if outputs == nil {
		outputs = []domain.Variant{}
	}
	return jobDTO{
		ID:           job.ID,
		ImageID:      job.ImageID,
		Recipe:       job.Recipe,
		Status:       string(job.Status),
		Outputs:      outputs,
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
	}
}

// JobsList returns the caller's most recent jobs, newest first.
func (a *App) JobsList(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	jobs, err := a.Core.ListJobs(r.Context(), caller)
	if err != nil {
		a.domainError(w, err)
		return
	}
	out := make([]jobDTO, len(jobs))
	for i, job := range jobs {
		out[i] = toJobDTO(job)
	}
	a.json(w, http.StatusOK, out)
}

// JobsArchive exports a completed job's published outputs as a zip, fetching
// each payload back from the content-addressed store.
func (a *App) JobsArchive(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	job, err := a.Core.Job(r.Context(), caller, jobID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	if job.Status != domain.JobStatusDone || len(job.Outputs) == 0 {
		a.error(w, http.StatusConflict, "not_completed", "job has no published outputs")
		return
	}

	entries := make([]zip.Entry, 0, len(job.Outputs))
	for i, output := range job.Outputs {
		data, err := a.Store.Fetch(r.Context(), output.CID)
		if err != nil {
			a.Logger.Warn().Err(err).Str("cid", output.CID).Msg("archive fetch failed")
			continue
		}
		entries = append(entries, zip.Entry{Filename: fmt.Sprintf("miles_%s_%d.jpg", jobID, i+1), Data: data})
	}
	archive := zip.Archive(entries)
	if len(archive) == 0 {
		a.error(w, http.StatusBadGateway, "upstream_failure", "no outputs could be fetched")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=job-%s.zip", jobID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}
