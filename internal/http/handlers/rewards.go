package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
)

type mintRequest struct {
	Amount int64 `json:"amount"`
}

// RewardsMint mints an explicit reward to the caller and records the ledger
// entry. The amount defaults to one token.
func (a *App) RewardsMint(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	var req mintRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	txHash, err := a.Core.MintReward(r.Context(), caller, req.Amount)
	if err != nil {
		a.json(w, http.StatusInternalServerError, map[string]any{"success": false, "error": err.Error()})
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"success": true,
		"txHash":  txHash,
		"message": fmt.Sprintf("Successfully minted DataCoin tokens to %s", caller),
	})
}

// RewardsBalance reads the caller's token balance. Chain failures degrade to
// "0" inside the orchestrator, keeping the read path available.
func (a *App) RewardsBalance(w http.ResponseWriter, r *http.Request) {
	caller, ok := a.caller(w, r)
	if !ok {
		return
	}
	balance := a.Core.Balance(r.Context(), caller)
	a.json(w, http.StatusOK, map[string]any{
		"success": true,
		"balance": balance,
		"address": caller,
	})
}
