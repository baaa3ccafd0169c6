package domain

import "time"

// JobStatus enumerates job lifecycle states. The graph is strictly
// processing -> done or processing -> failed; no transition leaves a
// terminal state.
type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusDone       JobStatus = "done"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status admits no further transition.
func (s JobStatus) Terminal() bool {
	return s == JobStatusDone || s == JobStatusFailed
}

// Variant is a single published artifact: content identifier plus a
// resolvable gateway URL.
type Variant struct {
	CID string `json:"cid"`
	URL string `json:"url"`
}

// Job is the unit of work for one source image and one recipe. Outputs stays
// empty until the job reaches done and is written atomically with that
// transition.
type Job struct {
	ID           string
	ImageID      string
	Recipe       string
	Status       JobStatus
	Outputs      []Variant
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const (
	// MinVariantCount and MaxVariantCount bound how many variants one job may
	// request; out-of-range values are clamped, not rejected.
	MinVariantCount = 1
	MaxVariantCount = 12

	// DefaultVariantCount applies when the caller does not ask for a count.
	DefaultVariantCount = 10
)

// ClampVariantCount folds a requested count into the supported range. The
// default for an absent count is applied by the caller, not here; an explicit
// zero clamps to the minimum.
func ClampVariantCount(count int) int {
	if count < MinVariantCount {
		return MinVariantCount
	}
	if count > MaxVariantCount {
		return MaxVariantCount
	}
	return count
}
