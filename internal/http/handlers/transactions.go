package handlers

import (
	"net/http"
	"time"
)

type transactionDTO struct {
	ID          string    `json:"id"`
	JobID       *string   `json:"jobId,omitempty"`
	Type        string    `json:"type"`
	Amount      string    `json:"amount"`
	TxHash      string    `json:"txHash"`
	Status      string    `json:"status"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TransactionsList returns the caller's reward ledger, newest first.
func (a *App) TransactionsList(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	transactions, err := a.Core.ListTransactions(r.Context(), caller)
	if err != nil {
		a.domainError(w, err)
		return
	}
	out := make([]transactionDTO, len(transactions))
	for i, tx := range transactions {
		out[i] = transactionDTO{
			ID:          tx.ID,
			JobID:       tx.JobID,
			Type:        string(tx.Type),
			Amount:      tx.Amount,
			TxHash:      tx.TxHash,
			Status:      string(tx.Status),
			Description: tx.Description,
			CreatedAt:   tx.CreatedAt,
		}
	}
	a.json(w, http.StatusOK, out)
}
