package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/poolbet/poolbet/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testFees() domain.FeeConfig {
	return domain.FeeConfig{
		PlatformFeeRate: dec("0.025"),
		CreatorFeeRate:  dec("0.01"),
	}
}

// fakeMarketStore serves markets from a map and settles in memory.
type fakeMarketStore struct {
	markets map[int64]domain.Market
	bets    *fakeBetStore

	getCalls int
	getErr   error
}

func newFakeMarketStore(bets *fakeBetStore, markets ...domain.Market) *fakeMarketStore {
	s := &fakeMarketStore{
		markets: make(map[int64]domain.Market),
		bets:    bets,
	}
	for _, m := range markets {
		s.markets[m.ID] = m
	}
	return s
}

func (s *fakeMarketStore) Create(ctx context.Context, m domain.Market) (domain.Market, error) {
	m.ID = int64(len(s.markets) + 1)
	m.CreatedAt = time.Now()
	s.markets[m.ID] = m
	return m, nil
}

func (s *fakeMarketStore) GetByID(ctx context.Context, id int64) (domain.Market, error) {
	s.getCalls++
	if s.getErr != nil {
		return domain.Market{}, s.getErr
	}
	m, ok := s.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrMarketNotFound
	}
	return m, nil
}

func (s *fakeMarketStore) ListOpen(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	var out []domain.Market
	for _, m := range s.markets {
		if !m.Resolved {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeMarketStore) Count(ctx context.Context) (int64, error) {
	return int64(len(s.markets)), nil
}

func (s *fakeMarketStore) Resolve(ctx context.Context, marketID int64, outcome bool, settle domain.SettleFunc) ([]domain.BetResolution, error) {
	m, ok := s.markets[marketID]
	if !ok {
		return nil, domain.ErrMarketNotFound
	}
	if m.Resolved {
		return nil, domain.ErrAlreadyResolved
	}

	var marketBets []domain.Bet
	if s.bets != nil {
		for _, b := range s.bets.bets {
			if b.MarketID == marketID {
				marketBets = append(marketBets, b)
			}
		}
	}

	resolutions := settle(marketBets)

	m.Resolved = true
	m.Outcome = &outcome
	s.markets[marketID] = m

	if s.bets != nil {
		now := time.Now()
		for _, r := range resolutions {
			b := s.bets.bets[r.BetID]
			b.Resolved = true
			b.Payout = decimal.NewNullDecimal(r.Payout)
			b.Claimed = r.Claimed
			b.ResolvedAt = &now
			s.bets.bets[r.BetID] = b
		}
	}
	return resolutions, nil
}

// fakeBetStore persists bets in a map. conflictsLeft makes Place fail with
// ErrConcurrencyConflict that many times before succeeding.
type fakeBetStore struct {
	bets   map[int64]domain.Bet
	nextID int64

	conflictsLeft int
	placeErr      error
	placeCalls    int
	lastUpdate    domain.MarketUpdate

	claimErr   error
	claimCalls int
	balance    decimal.Decimal

	unclaimed    []domain.Bet
	unclaimedErr error
}

func newFakeBetStore() *fakeBetStore {
	return &fakeBetStore{
		bets:    make(map[int64]domain.Bet),
		balance: dec("500.00"),
	}
}

func (s *fakeBetStore) Place(ctx context.Context, bet domain.Bet, update domain.MarketUpdate) (domain.Bet, error) {
	s.placeCalls++
	if s.placeErr != nil {
		return domain.Bet{}, s.placeErr
	}
	if s.conflictsLeft > 0 {
		s.conflictsLeft--
		return domain.Bet{}, domain.ErrConcurrencyConflict
	}

	s.nextID++
	bet.ID = s.nextID
	bet.CreatedAt = time.Now()
	s.bets[bet.ID] = bet
	s.lastUpdate = update
	return bet, nil
}

func (s *fakeBetStore) GetByID(ctx context.Context, id int64) (domain.Bet, error) {
	b, ok := s.bets[id]
	if !ok {
		return domain.Bet{}, domain.ErrBetNotFound
	}
	return b, nil
}

func (s *fakeBetStore) ListByMarket(ctx context.Context, marketID int64, opts domain.ListOpts) ([]domain.Bet, error) {
	var out []domain.Bet
	for _, b := range s.bets {
		if b.MarketID == marketID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *fakeBetStore) ListUnclaimed(ctx context.Context, userID int64) ([]domain.Bet, error) {
	if s.unclaimedErr != nil {
		return nil, s.unclaimedErr
	}
	return s.unclaimed, nil
}

func (s *fakeBetStore) Claim(ctx context.Context, betID, userID int64) (decimal.Decimal, error) {
	s.claimCalls++
	if s.claimErr != nil {
		return decimal.Zero, s.claimErr
	}
	b, ok := s.bets[betID]
	if !ok {
		return decimal.Zero, domain.ErrBetNotFound
	}
	if b.UserID != userID {
		return decimal.Zero, domain.ErrUnauthorized
	}
	if b.Claimed {
		return decimal.Zero, domain.ErrAlreadyClaimed
	}
	b.Claimed = true
	s.bets[betID] = b
	s.balance = s.balance.Add(b.Payout.Decimal)
	return s.balance, nil
}

// fakeCache records invalidations and serves at most one snapshot.
type fakeCache struct {
	snapshot    *domain.Market
	sets        int
	invalidated []int64
}

func (c *fakeCache) Get(ctx context.Context, id int64) (domain.Market, error) {
	if c.snapshot != nil && c.snapshot.ID == id {
		return *c.snapshot, nil
	}
	return domain.Market{}, domain.ErrMarketNotFound
}

func (c *fakeCache) Set(ctx context.Context, m domain.Market) error {
	c.sets++
	c.snapshot = &m
	return nil
}

func (c *fakeCache) Invalidate(ctx context.Context, id int64) error {
	c.invalidated = append(c.invalidated, id)
	c.snapshot = nil
	return nil
}

// fakeBus records published events per channel.
type fakeBus struct {
	published map[string][][]byte
	streamed  map[string][][]byte
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		published: make(map[string][][]byte),
		streamed:  make(map[string][][]byte),
	}
}

func (b *fakeBus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.published[channel] = append(b.published[channel], payload)
	return nil
}

func (b *fakeBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

func (b *fakeBus) StreamAppend(ctx context.Context, stream string, payload []byte) error {
	b.streamed[stream] = append(b.streamed[stream], payload)
	return nil
}

func (b *fakeBus) StreamRead(ctx context.Context, stream string, lastID string, count int) ([]domain.StreamMessage, error) {
	return nil, nil
}

// fakeWallet records custody transfers.
type fakeWallet struct {
	debitErr  error
	debits    []decimal.Decimal
	refunds   []string
	transfers int
}

func (w *fakeWallet) Debit(ctx context.Context, userID int64, amount decimal.Decimal) (string, error) {
	if w.debitErr != nil {
		return "", w.debitErr
	}
	w.transfers++
	w.debits = append(w.debits, amount)
	return fmt.Sprintf("transfer-%d", w.transfers), nil
}

func (w *fakeWallet) Refund(ctx context.Context, userID int64, amount decimal.Decimal, transferRef string) error {
	w.refunds = append(w.refunds, transferRef)
	return nil
}

// fakeLocks hands out locks unless held is set.
type fakeLocks struct {
	held     bool
	acquired []string
	unlocked int
}

func (l *fakeLocks) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if l.held {
		return nil, domain.ErrLockHeld
	}
	l.acquired = append(l.acquired, key)
	return func() { l.unlocked++ }, nil
}

// fakeArchiver records archive calls.
type fakeArchiver struct {
	calls int
	err   error
}

func (a *fakeArchiver) ArchiveSettlement(ctx context.Context, m domain.Market, bets []domain.Bet) (string, error) {
	a.calls++
	if a.err != nil {
		return "", a.err
	}
	return domain.SettlementArchivePath(m.ID, time.Now()), nil
}

// openMarket builds an unresolved market with both pools at the given seed.
func openMarket(id int64, seed string) domain.Market {
	return domain.Market{
		ID:       id,
		Question: "Will the test pass?",
		YesPool:  dec(seed),
		NoPool:   dec(seed),
		YesPrice: dec("0.5"),
		NoPrice:  dec("0.5"),
		Version:  1,
		EndsAt:   time.Now().Add(24 * time.Hour),
	}
}

// Compile-time checks that the fakes satisfy the store interfaces.
var (
	_ domain.MarketStore   = (*fakeMarketStore)(nil)
	_ domain.BetStore      = (*fakeBetStore)(nil)
	_ domain.MarketCache   = (*fakeCache)(nil)
	_ domain.SignalBus     = (*fakeBus)(nil)
	_ domain.WalletService = (*fakeWallet)(nil)
	_ domain.LockManager   = (*fakeLocks)(nil)
	_ domain.Archiver      = (*fakeArchiver)(nil)
)
