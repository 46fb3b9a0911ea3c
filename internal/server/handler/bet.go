package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/poolbet/poolbet/internal/domain"
)

// BetService is the slice of the bet service the handler needs.
type BetService interface {
	PlaceBet(ctx context.Context, userID, marketID int64, side bool, grossAmount decimal.Decimal, feeCfg domain.FeeConfig) (domain.Bet, error)
	ListByMarket(ctx context.Context, marketID int64, opts domain.ListOpts) ([]domain.Bet, error)
}

// BetHandler serves bet placement and listing.
type BetHandler struct {
	bets   BetService
	oracle domain.PriceOracle // nil when token-denominated stakes are disabled
	fees   domain.FeeConfig
	logger *slog.Logger
}

// NewBetHandler creates a BetHandler.
func NewBetHandler(bets BetService, oracle domain.PriceOracle, fees domain.FeeConfig, logger *slog.Logger) *BetHandler {
	return &BetHandler{
		bets:   bets,
		oracle: oracle,
		fees:   fees,
		logger: logger,
	}
}

// placeBetRequest stakes either a USD amount or a token amount. When Token
// is set the oracle converts the token stake to USD at the current price.
type placeBetRequest struct {
	Side        string `json:"side"` // "yes" or "no"
	Amount      string `json:"amount,omitempty"`
	Token       string `json:"token,omitempty"`
	TokenAmount string `json:"token_amount,omitempty"`
}

// PlaceBet places a stake on one side of a market.
// POST /api/markets/{id}/bets
func (h *BetHandler) PlaceBet(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	marketID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req placeBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var side bool
	switch req.Side {
	case "yes":
		side = domain.SideYes
	case "no":
		side = domain.SideNo
	default:
		writeError(w, http.StatusBadRequest, `side must be "yes" or "no"`)
		return
	}

	gross, err := h.grossAmount(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bet, err := h.bets.PlaceBet(r.Context(), userID, marketID, side, gross, h.fees)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, bet)
}

// grossAmount resolves the USD stake from the request, converting token
// stakes through the price oracle.
func (h *BetHandler) grossAmount(ctx context.Context, req placeBetRequest) (decimal.Decimal, error) {
	if req.Token != "" {
		if h.oracle == nil {
			return decimal.Zero, errBadRequest("token-denominated stakes are not enabled")
		}
		tokenAmount, err := decimal.NewFromString(req.TokenAmount)
		if err != nil {
			return decimal.Zero, errBadRequest("invalid token_amount")
		}
		price, err := h.oracle.USDPrice(ctx, req.Token)
		if err != nil {
			return decimal.Zero, errBadRequest("token price unavailable")
		}
		return tokenAmount.Mul(price).Round(domain.CurrencyScale), nil
	}

	gross, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return decimal.Zero, errBadRequest("invalid amount")
	}
	return gross, nil
}

type errBadRequest string

func (e errBadRequest) Error() string { return string(e) }

// listBetsResponse wraps the list endpoint output.
type listBetsResponse struct {
	Bets   []domain.Bet `json:"bets"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

// ListBets returns the bets on a market, newest first.
// GET /api/markets/{id}/bets?limit=50&offset=0
func (h *BetHandler) ListBets(w http.ResponseWriter, r *http.Request) {
	marketID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := parseListOpts(r)
	bets, err := h.bets.ListByMarket(r.Context(), marketID, opts)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	if bets == nil {
		bets = []domain.Bet{}
	}
	writeJSON(w, http.StatusOK, listBetsResponse{
		Bets:   bets,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
}
