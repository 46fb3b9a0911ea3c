package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/poolbet/poolbet/internal/domain"
)

// BetStore implements domain.BetStore using PostgreSQL.
type BetStore struct {
	pool *pgxpool.Pool
}

// NewBetStore creates a new BetStore backed by the given connection pool.
func NewBetStore(pool *pgxpool.Pool) *BetStore {
	return &BetStore{pool: pool}
}

const betCols = `id, market_id, user_id, side, gross_amount, platform_fee,
	creator_fee, net_contribution, price, resolved, payout, claimed,
	created_at, resolved_at`

// scanBet scans a single bet row into a domain.Bet.
func scanBet(row pgx.Row) (domain.Bet, error) {
	var b domain.Bet
	err := row.Scan(
		&b.ID, &b.MarketID, &b.UserID, &b.Side, &b.GrossAmount, &b.PlatformFee,
		&b.CreatorFee, &b.NetContribution, &b.Price, &b.Resolved, &b.Payout,
		&b.Claimed, &b.CreatedAt, &b.ResolvedAt,
	)
	if err != nil {
		return domain.Bet{}, err
	}
	return b, nil
}

// Place inserts the bet and applies the market pool update as one
// transaction. The market write is conditional on the version the caller
// observed when pricing the bet; if another bet got there first, zero rows
// match, nothing is written, and domain.ErrConcurrencyConflict tells the
// caller to re-read the market and retry.
func (s *BetStore) Place(ctx context.Context, bet domain.Bet, update domain.MarketUpdate) (domain.Bet, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Bet{}, fmt.Errorf("postgres: place bet: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE markets
		SET yes_pool = $1, no_pool = $2, yes_price = $3, no_price = $4,
		    total_volume = total_volume + $5,
		    participant_count = participant_count + $6,
		    version = version + 1, updated_at = NOW()
		WHERE id = $7 AND version = $8 AND NOT resolved`,
		update.YesPool, update.NoPool, update.YesPrice, update.NoPrice,
		update.VolumeDelta, update.ParticipantDelta,
		update.MarketID, update.ExpectedVersion,
	)
	if err != nil {
		return domain.Bet{}, fmt.Errorf("postgres: place bet: update market %d: %w", update.MarketID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Bet{}, domain.ErrConcurrencyConflict
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO bets (
			market_id, user_id, side, gross_amount, platform_fee,
			creator_fee, net_contribution, price
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+betCols,
		bet.MarketID, bet.UserID, bet.Side, bet.GrossAmount, bet.PlatformFee,
		bet.CreatorFee, bet.NetContribution, bet.Price,
	)
	created, err := scanBet(row)
	if err != nil {
		return domain.Bet{}, fmt.Errorf("postgres: place bet: insert: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Bet{}, fmt.Errorf("postgres: place bet: commit: %w", err)
	}
	return created, nil
}

// GetByID retrieves a bet by its primary key.
func (s *BetStore) GetByID(ctx context.Context, id int64) (domain.Bet, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+betCols+` FROM bets WHERE id = $1`, id)
	b, err := scanBet(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Bet{}, domain.ErrBetNotFound
		}
		return domain.Bet{}, fmt.Errorf("postgres: get bet %d: %w", id, err)
	}
	return b, nil
}

// ListByMarket returns bets for a market with pagination.
func (s *BetStore) ListByMarket(ctx context.Context, marketID int64, opts domain.ListOpts) ([]domain.Bet, error) {
	query := `SELECT ` + betCols + ` FROM bets WHERE market_id = $1 ORDER BY id`
	args := []any{marketID}
	argIdx := 2

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
		return nil, fmt.Errorf("postgres: list bets for market %d: %w", marketID, err)
	}
	defer rows.Close()

	var bets []domain.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan bet: %w", err)
		}
		bets = append(bets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list bets rows: %w", err)
	}
	return bets, nil
}

// ListUnclaimed returns resolved, unclaimed, positive-payout bets for a user.
func (s *BetStore) ListUnclaimed(ctx context.Context, userID int64) ([]domain.Bet, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+betCols+` FROM bets
		WHERE user_id = $1 AND resolved AND NOT claimed AND payout > 0
		ORDER BY resolved_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list unclaimed for user %d: %w", userID, err)
	}
	defer rows.Close()

	var bets []domain.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan unclaimed bet: %w", err)
		}
		bets = append(bets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list unclaimed rows: %w", err)
	}
	return bets, nil
}

// Claim moves a winning bet's payout into the user's balance exactly once.
// The bet row is locked, validated, and conditionally transitioned
// claimed=false→true in the same transaction as the balance credit, so two
// concurrent claims produce one success and one domain.ErrAlreadyClaimed.
func (s *BetStore) Claim(ctx context.Context, betID, userID int64) (decimal.Decimal, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("postgres: claim bet %d: begin: %w", betID, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx,
		`SELECT `+betCols+` FROM bets WHERE id = $1 FOR UPDATE`, betID)
	bet, err := scanBet(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, domain.ErrBetNotFound
		}
		return decimal.Zero, fmt.Errorf("postgres: claim bet %d: load: %w", betID, err)
	}

	switch {
	case bet.UserID != userID:
		return decimal.Zero, domain.ErrUnauthorized
	case !bet.Resolved:
		return decimal.Zero, domain.ErrNotResolved
	case bet.Claimed:
		return decimal.Zero, domain.ErrAlreadyClaimed
	case !bet.Payout.Valid || !bet.Payout.Decimal.IsPositive():
		return decimal.Zero, domain.ErrNoWinnings
	}

	tag, err := tx.Exec(ctx,
		`UPDATE bets SET claimed = TRUE WHERE id = $1 AND NOT claimed`, betID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("postgres: claim bet %d: mark claimed: %w", betID, err)
	}
	if tag.RowsAffected() == 0 {
		return decimal.Zero, domain.ErrAlreadyClaimed
	}

	var newBalance decimal.Decimal
	err = tx.QueryRow(ctx,
		`UPDATE users SET balance = balance + $1 WHERE id = $2 RETURNING balance`,
		bet.Payout.Decimal, userID,
	).Scan(&newBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, domain.ErrUserNotFound
		}
		return decimal.Zero, fmt.Errorf("postgres: claim bet %d: credit user %d: %w", betID, userID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("postgres: claim bet %d: commit: %w", betID, err)
	}
	return newBalance, nil
}

// Compile-time interface check.
var _ domain.BetStore = (*BetStore)(nil)
