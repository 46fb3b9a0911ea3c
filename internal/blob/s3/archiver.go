package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/poolbet/poolbet/internal/domain"
)

// Archiver implements domain.Archiver by serializing a settled market and
// its bets to JSONL and uploading the result to object storage. Archival is
// best-effort and runs outside the resolution transaction, so a re-run for
// an already archived market is a no-op.
type Archiver struct {
	writer *Writer
	reader *Reader

	// now is injectable for tests of key construction.
	now func() time.Time
}

// NewArchiver creates an Archiver over the given S3 client.
func NewArchiver(c *Client) *Archiver {
	return &Archiver{
		writer: NewWriter(c),
		reader: NewReader(c),
		now:    time.Now,
	}
}

// settlementRecord is the header line of a settlement archive.
type settlementRecord struct {
	Kind        string    `json:"kind"`
	MarketID    int64     `json:"market_id"`
	Question    string    `json:"question"`
	Outcome     *bool     `json:"outcome"`
	YesPool     string    `json:"yes_pool"`
	NoPool      string    `json:"no_pool"`
	TotalVolume string    `json:"total_volume"`
	BetCount    int       `json:"bet_count"`
	ArchivedAt  time.Time `json:"archived_at"`
}

// betRecord is one bet line of a settlement archive.
type betRecord struct {
	Kind            string `json:"kind"`
	BetID           int64  `json:"bet_id"`
	UserID          int64  `json:"user_id"`
	Side            string `json:"side"`
	GrossAmount     string `json:"gross_amount"`
	PlatformFee     string `json:"platform_fee"`
	CreatorFee      string `json:"creator_fee"`
	NetContribution string `json:"net_contribution"`
	Price           string `json:"price"`
	Payout          string `json:"payout,omitempty"`
	Claimed         bool   `json:"claimed"`
}

// ArchiveSettlement uploads the settled market and its bets as a JSONL
// object and returns the object key. If the archive already exists the
// existing key is returned without re-uploading.
func (a *Archiver) ArchiveSettlement(ctx context.Context, m domain.Market, bets []domain.Bet) (string, error) {
	if !m.Resolved {
		return "", fmt.Errorf("s3blob: archive market %d: market not resolved", m.ID)
	}

	path := domain.SettlementArchivePath(m.ID, a.now().UTC())

	exists, err := a.reader.Exists(ctx, path)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive market %d: %w", m.ID, err)
	}
	if exists {
		return path, nil
	}

	buf, err := marshalSettlement(m, bets, a.now().UTC())
	if err != nil {
		return "", fmt.Errorf("s3blob: archive market %d: %w", m.ID, err)
	}

	if err := a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize); err != nil {
		return "", fmt.Errorf("s3blob: archive market %d: %w", m.ID, err)
	}
	return path, nil
}

// marshalSettlement renders the archive as newline-delimited JSON: one
// settlement header line followed by one line per bet.
func marshalSettlement(m domain.Market, bets []domain.Bet, archivedAt time.Time) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	header := settlementRecord{
		Kind:        "settlement",
		MarketID:    m.ID,
		Question:    m.Question,
		Outcome:     m.Outcome,
		YesPool:     m.YesPool.String(),
		NoPool:      m.NoPool.String(),
		TotalVolume: m.TotalVolume.String(),
		BetCount:    len(bets),
		ArchivedAt:  archivedAt,
	}
	if err := enc.Encode(header); err != nil {
		return nil, fmt.Errorf("encode settlement header: %w", err)
	}

	for _, b := range bets {
		rec := betRecord{
			Kind:            "bet",
			BetID:           b.ID,
			UserID:          b.UserID,
			Side:            domain.SideLabel(b.Side),
			GrossAmount:     b.GrossAmount.String(),
			PlatformFee:     b.PlatformFee.String(),
			CreatorFee:      b.CreatorFee.String(),
			NetContribution: b.NetContribution.String(),
			Price:           b.Price.String(),
			Claimed:         b.Claimed,
		}
		if b.Payout.Valid {
			rec.Payout = b.Payout.Decimal.String()
		}
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("encode bet %d: %w", b.ID, err)
		}
	}
	return buf.Bytes(), nil
}

var _ domain.Archiver = (*Archiver)(nil)
