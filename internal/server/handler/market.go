package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/poolbet/poolbet/internal/domain"
)

// MarketService is the slice of the market service the handler needs.
type MarketService interface {
	CreateMarket(ctx context.Context, question string, creatorID int64, endsAt time.Time) (domain.Market, error)
	GetMarket(ctx context.Context, id int64) (domain.Market, error)
	ListOpen(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error)
	Count(ctx context.Context) (int64, error)
}

// SettlementService resolves markets.
type SettlementService interface {
	ResolveMarket(ctx context.Context, marketID int64, outcome bool) error
}

// MarketHandler serves market endpoints.
type MarketHandler struct {
	markets    MarketService
	settlement SettlementService
	archive    domain.BlobReader // nil when archival is not configured
	logger     *slog.Logger
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(markets MarketService, settlement SettlementService, archive domain.BlobReader, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets:    markets,
		settlement: settlement,
		archive:    archive,
		logger:     logger,
	}
}

type createMarketRequest struct {
	Question string    `json:"question"`
	EndsAt   time.Time `json:"ends_at"`
}

// CreateMarket opens a new market seeded with baseline liquidity.
// POST /api/markets
func (h *MarketHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	creatorID, err := callerID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req createMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	market, err := h.markets.CreateMarket(r.Context(), req.Question, creatorID, req.EndsAt)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, market)
}

// listMarketsResponse wraps the list endpoint output with metadata.
type listMarketsResponse struct {
	Markets []domain.Market `json:"markets"`
	Total   int64           `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// ListMarkets returns open markets with pagination.
// GET /api/markets?limit=50&offset=0
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	markets, err := h.markets.ListOpen(r.Context(), opts)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	total, err := h.markets.Count(r.Context())
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	if markets == nil {
		markets = []domain.Market{}
	}
	writeJSON(w, http.StatusOK, listMarketsResponse{
		Markets: markets,
		Total:   total,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	})
}

// GetMarket returns a single market with its current pools and prices.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	market, err := h.markets.GetMarket(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, market)
}

type resolveMarketRequest struct {
	Outcome *bool `json:"outcome"`
}

// ResolveMarket declares the market's outcome and settles every bet on it.
// Repeat calls for the same market return 409.
// POST /api/markets/{id}/resolve
func (h *MarketHandler) ResolveMarket(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req resolveMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Outcome == nil {
		writeError(w, http.StatusBadRequest, "outcome (true/false) is required")
		return
	}

	if err := h.settlement.ResolveMarket(r.Context(), id, *req.Outcome); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"market_id": id,
		"outcome":   *req.Outcome,
		"resolved":  true,
	})
}

// GetArchive streams the JSONL settlement archive for a resolved market.
// GET /api/markets/{id}/archive?month=2026-08
func (h *MarketHandler) GetArchive(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		writeError(w, http.StatusNotImplemented, "archival is not configured")
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	month := r.URL.Query().Get("month")
	at := time.Now().UTC()
	if month != "" {
		at, err = time.Parse("2006-01", month)
		if err != nil {
			writeError(w, http.StatusBadRequest, "month must be YYYY-MM")
			return
		}
	}

	body, err := h.archive.Get(r.Context(), domain.SettlementArchivePath(id, at))
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/x-ndjson")
	if _, err := io.Copy(w, body); err != nil {
		h.logger.ErrorContext(r.Context(), "handler: stream archive failed",
			slog.Int64("market_id", id),
			slog.String("error", err.Error()),
		)
	}
}
