package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/poolbet/poolbet/internal/domain"
)

// ClaimService is the slice of the claim service the handler needs.
type ClaimService interface {
	ClaimWinnings(ctx context.Context, userID, betID int64) (decimal.Decimal, error)
	GetUnclaimedWinnings(ctx context.Context, userID int64) (domain.UnclaimedWinnings, error)
}

// ClaimHandler serves winnings retrieval.
type ClaimHandler struct {
	claims ClaimService
	logger *slog.Logger
}

// NewClaimHandler creates a ClaimHandler.
func NewClaimHandler(claims ClaimService, logger *slog.Logger) *ClaimHandler {
	return &ClaimHandler{claims: claims, logger: logger}
}

// ClaimWinnings credits the payout of a winning bet to the caller's
// balance. Repeat claims for the same bet return 409.
// POST /api/bets/{id}/claim
func (h *ClaimHandler) ClaimWinnings(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	betID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	balance, err := h.claims.ClaimWinnings(r.Context(), userID, betID)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"bet_id":  betID,
		"balance": balance,
	})
}

// GetUnclaimed returns the caller's resolved, unclaimed, positive payouts.
// GET /api/claims/unclaimed
func (h *ClaimHandler) GetUnclaimed(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	winnings, err := h.claims.GetUnclaimedWinnings(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, winnings)
}
