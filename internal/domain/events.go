package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ForfeitedCommitment is emitted for every commitment left unrevealed at
// reveal-window close. Slashing execution is external.
type ForfeitedCommitment struct {
	Trader  string          `json:"trader"`
	BatchID uint64          `json:"batch_id"`
	Stake   decimal.Decimal `json:"stake_amount"`
}

// FlaggedTrade is an advisory audit record produced by the sandwich guard.
// The flagged trades remain final; dispute handling is external.
type FlaggedTrade struct {
	BatchID     uint64    `json:"batch_id"`
	Trader      string    `json:"trader"`
	BuyTradeID  string    `json:"buy_trade_id"`
	SellTradeID string    `json:"sell_trade_id"`
	Profit      int64     `json:"profit"`
	Reason      string    `json:"reason"`
	DetectedAt  time.Time `json:"detected_at"`
}
