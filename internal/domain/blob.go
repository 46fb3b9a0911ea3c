package domain

import (
	"context"
	"fmt"
	"io"
	"time"
)

// SettlementArchivePath is the blob key for a market's settlement archive,
// partitioned by the year-month of archival:
//
//	settlements/2026-08/market-42.jsonl
func SettlementArchivePath(marketID int64, at time.Time) string {
	return fmt.Sprintf("settlements/%s/market-%d.jsonl", at.Format("2006-01"), marketID)
}

// BlobWriter uploads objects to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// BlobReader retrieves objects from blob storage. Get returns
// ErrBlobNotFound when no object exists at the path.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// Archiver writes a durable off-database record of a settled market and its
// bets. Archival is best-effort and never participates in the resolution
// transaction.
type Archiver interface {
	ArchiveSettlement(ctx context.Context, m Market, bets []Bet) (string, error)
}
