package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// User holds the platform-side spendable balance that claimed winnings are
// credited to. Custody transfers in and out of this balance are handled by
// the external wallet service.
type User struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}
