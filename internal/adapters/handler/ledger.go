package handler

import (
	"net/http"

	"github.com/DanielPopoola/coinpay-gateway/internal/core/domain"
)

type ledgerMutationResponse struct {
	Account *domain.LedgerAccount `json:"account"`
	Entry   *domain.LedgerEntry   `json:"entry"`
}

// HandleBalance returns a user's coin balance
// @Summary   Get a user's coin balance
// @Tags      ledger
// @Produce   json
// @Param     userID  path      string       true  "User id"
// @Success   200     {object}  APIResponse
// @Router    /api/v1/users/{userID}/balance [get]
func (h *PaymentHandler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		respondWithError(w, err)
		return
	}

	acct, err := h.svc.Ledger.Balance(r.Context(), userID)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, acct)
}

// HandleLedgerEntries lists a user's ledger entries, newest first
// @Summary   List a user's ledger entries
// @Tags      ledger
// @Produce   json
// @Param     userID  path      string       true   "User id"
// @Param     limit   query     int          false  "Page size"
// @Param     offset  query     int          false  "Page offset"
// @Success   200     {object}  APIResponse
// @Router    /api/v1/users/{userID}/ledger [get]
func (h *PaymentHandler) HandleLedgerEntries(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		respondWithError(w, err)
		return
	}
	limit, offset, err := pageParams(r)
	if err != nil {
		respondWithError(w, err)
		return
	}

	entries, err := h.svc.Ledger.Entries(r.Context(), userID, limit, offset)
	if err != nil {
		respondWithError(w, err)
		return
	}
	if entries == nil {
		entries = []*domain.LedgerEntry{}
	}

	respondWithJSON(w, http.StatusOK, entries)
}

// HandleAdjust applies an administrative balance correction
// @Summary   Adjust a user's balance
// @Tags      admin
// @Accept    json
// @Produce   json
// @Security  BearerAuth
// @Param     userID   path      string             true  "User id"
// @Param     request  body      AdjustmentRequest  true  "Adjustment"
// @Success   200      {object}  APIResponse
// @Failure   422      {object}  APIResponse
// @Router    /api/v1/admin/users/{userID}/adjustments [post]
func (h *PaymentHandler) HandleAdjust(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		respondWithError(w, err)
		return
	}
	var req AdjustmentRequest
	if err := h.decode(r, &req); err != nil {
		respondWithError(w, err)
		return
	}

	actor := actorFrom(r.Context())
	acct, entry, err := h.svc.Ledger.Adjust(r.Context(), userID, req.Delta, req.Note, actor)
	if err != nil {
		respondWithError(w, err)
		return
	}

	h.logger.Info("ledger adjusted",
		"user_id", userID,
		"delta", req.Delta,
		"actor", actor,
	)
	respondWithJSON(w, http.StatusOK, ledgerMutationResponse{Account: acct, Entry: entry})
}

// HandleUsage debits coins the user spent
// @Summary   Spend coins
// @Tags      ledger
// @Accept    json
// @Produce   json
// @Param     userID   path      string        true  "User id"
// @Param     request  body      UsageRequest  true  "Usage"
// @Success   200      {object}  APIResponse
// @Failure   422      {object}  APIResponse
// @Router    /api/v1/users/{userID}/usage [post]
func (h *PaymentHandler) HandleUsage(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		respondWithError(w, err)
		return
	}
	var req UsageRequest
	if err := h.decode(r, &req); err != nil {
		respondWithError(w, err)
		return
	}

	acct, entry, err := h.svc.Ledger.Spend(r.Context(), userID, req.Coins, req.Note)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, ledgerMutationResponse{Account: acct, Entry: entry})
}
