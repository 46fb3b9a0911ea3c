package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/poolbet/poolbet/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

const marketCols = `id, question, creator_id, yes_pool, no_pool,
	yes_price, no_price, total_volume, participant_count,
	resolved, outcome, version, ends_at, created_at, updated_at`

// scanMarket scans a single market row into a domain.Market.
func scanMarket(row pgx.Row) (domain.Market, error) {
	var m domain.Market
	err := row.Scan(
		&m.ID, &m.Question, &m.CreatorID, &m.YesPool, &m.NoPool,
		&m.YesPrice, &m.NoPrice, &m.TotalVolume, &m.ParticipantCount,
		&m.Resolved, &m.Outcome, &m.Version, &m.EndsAt, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return domain.Market{}, err
	}
	return m, nil
}

// Create inserts a new market row and returns it with its assigned ID.
func (s *MarketStore) Create(ctx context.Context, m domain.Market) (domain.Market, error) {
	const query = `
		INSERT INTO markets (
			question, creator_id, yes_pool, no_pool,
			yes_price, no_price, total_volume, participant_count, ends_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + marketCols

	row := s.pool.QueryRow(ctx, query,
		m.Question, m.CreatorID, m.YesPool, m.NoPool,
		m.YesPrice, m.NoPrice, m.TotalVolume, m.ParticipantCount, m.EndsAt,
	)
	created, err := scanMarket(row)
	if err != nil {
		return domain.Market{}, fmt.Errorf("postgres: create market: %w", err)
	}
	return created, nil
}

// GetByID retrieves a market by its primary key.
func (s *MarketStore) GetByID(ctx context.Context, id int64) (domain.Market, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE id = $1`, id)
	m, err := scanMarket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Market{}, domain.ErrMarketNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %d: %w", id, err)
	}
	return m, nil
}

// ListOpen returns unresolved markets ordered by closing time.
func (s *MarketStore) ListOpen(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	query := `SELECT ` + marketCols + ` FROM markets WHERE NOT resolved ORDER BY ends_at ASC`
	args := []any{}
	argIdx := 1

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list open markets: %w", err)
	}
	defer rows.Close()

	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan open market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list open markets rows: %w", err)
	}
	return markets, nil
}

// Count returns the total number of markets.
func (s *MarketStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM markets").Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count markets: %w", err)
	}
	return count, nil
}

// Resolve flips the market's resolved flag and settles all of its bets in a
// single transaction. The conditional UPDATE on resolved=false is the sole
// idempotence guard: a concurrent second call finds zero rows affected and
// gets domain.ErrAlreadyResolved without touching any bet.
func (s *MarketStore) Resolve(ctx context.Context, marketID int64, outcome bool, settle domain.SettleFunc) ([]domain.BetResolution, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres: resolve market %d: begin: %w", marketID, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE markets
		SET resolved = TRUE, outcome = $2, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND NOT resolved`,
		marketID, outcome,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: resolve market %d: guard update: %w", marketID, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM markets WHERE id = $1)", marketID,
		).Scan(&exists); err != nil {
			return nil, fmt.Errorf("postgres: resolve market %d: existence check: %w", marketID, err)
		}
		if !exists {
			return nil, domain.ErrMarketNotFound
		}
		return nil, domain.ErrAlreadyResolved
	}

	// Lock the market's bets for the settlement write-back.
	rows, err := tx.Query(ctx,
		`SELECT `+betCols+` FROM bets WHERE market_id = $1 ORDER BY id FOR UPDATE`,
		marketID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: resolve market %d: load bets: %w", marketID, err)
	}

	var bets []domain.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("postgres: resolve market %d: scan bet: %w", marketID, err)
		}
		bets = append(bets, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: resolve market %d: bet rows: %w", marketID, err)
	}

	resolutions := settle(bets)

	batch := &pgx.Batch{}
	const settleQuery = `
		UPDATE bets
		SET resolved = TRUE, payout = $2, claimed = $3, resolved_at = NOW()
		WHERE id = $1`
	for _, r := range resolutions {
		batch.Queue(settleQuery, r.BetID, r.Payout, r.Claimed)
	}

	br := tx.SendBatch(ctx, batch)
	for i := range resolutions {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return nil, fmt.Errorf("postgres: resolve market %d: settle bet %d: %w",
				marketID, resolutions[i].BetID, err)
		}
	}
	if err := br.Close(); err != nil {
		return nil, fmt.Errorf("postgres: resolve market %d: close batch: %w", marketID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("postgres: resolve market %d: commit: %w", marketID, err)
	}
	return resolutions, nil
}

// Compile-time interface check.
var _ domain.MarketStore = (*MarketStore)(nil)
