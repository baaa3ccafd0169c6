package domain

import (
	"fmt"
	"time"
)

// DefaultDatasetRegion is used when no region can be resolved for the caller.
const DefaultDatasetRegion = "Global"

// Dataset is a named collection of images owned by one user. Datasets are
// auto-created on first upload with upsert semantics, never duplicated for
// the same identifier.
type Dataset struct {
	ID          string
	OwnerID     string
	Name        string
	Description string
	Region      string
	CreatedAt   time.Time
}

// NewPersonalDataset builds the auto-created dataset for a wallet address.
func NewPersonalDataset(id, ownerID, address, region string) *Dataset {
	if region == "" {
		region = DefaultDatasetRegion
	}
	return &Dataset{
		ID:          id,
		OwnerID:     ownerID,
		Name:        fmt.Sprintf("Dataset by %s", ShortAddress(address)),
		Description: fmt.Sprintf("Personal dataset for %s", address),
		Region:      region,
	}
}

// PublishedDataset is the public listing projection: a dataset together with
// every output of its completed jobs.
type PublishedDataset struct {
	ID           string
	OwnerAddress string
	Name         string
	Description  string
	Region       string
	CreatedAt    time.Time
	Outputs      []Variant
}
