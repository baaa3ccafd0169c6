package handlers

import (
	"net/http"
	"time"

	"github.com/aakash-taneja/miles/internal/domain"
)

type datasetDTO struct {
	ID          string           `json:"id"`
	UserID      string           `json:"userId"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Region      string           `json:"region"`
	CreatedAt   time.Time        `json:"createdAt"`
	Status      string           `json:"status"`
	Outputs     []domain.Variant `json:"outputs"`
}

// DatasetsList is the public catalogue: every dataset with at least one
// completed job, carrying the flattened outputs of all its done jobs.
func (a *App) DatasetsList(w http.ResponseWriter, r *http.Request) {
	datasets, err := a.Core.ListPublishedDatasets(r.Context())
	if err != nil {
		a.domainError(w, err)
		return
	}
	out := make([]datasetDTO, len(datasets))
	for i, ds := range datasets {
		outputs := ds.Outputs
		if outputs == nil {
			outputs = []domain.Variant{}
		}
		out[i] = datasetDTO{
			ID:          ds.ID,
			UserID:      ds.OwnerAddress,
			Name:        ds.Name,
			Description: ds.Description,
			Region:      ds.Region,
			CreatedAt:   ds.CreatedAt,
			Status:      "completed",
			Outputs:     outputs,
		}
	}
	a.json(w, http.StatusOK, out)
}
