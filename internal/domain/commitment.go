package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Commitment is a hashed order intent backed by stake. A commitment belongs
// to exactly one batch; Revealed flips false to true at most once. An
// unrevealed commitment at reveal-window close is terminal and its stake is
// flagged for slashing.
type Commitment struct {
	ID         string          `json:"id"`
	Hash       [32]byte        `json:"-"`
	HashHex    string          `json:"hash"`
	Trader     string          `json:"trader"`
	Stake      decimal.Decimal `json:"stake"`
	BatchID    uint64          `json:"batch_id"`
	SubmitTime time.Time       `json:"submit_time"`
	Revealed   bool            `json:"revealed"`
	Forfeited  bool            `json:"forfeited"`
	OrderID    string          `json:"order_id,omitempty"`
}
