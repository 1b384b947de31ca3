package domain

import "time"

// Trade is the append-only output of the matching engine. Immutable once
// created.
type Trade struct {
	ID         string    `json:"id"`
	BatchID    uint64    `json:"batch_id"`
	BuyOrder   string    `json:"buy_order"`
	SellOrder  string    `json:"sell_order"`
	BuyTrader  string    `json:"buy_trader"`
	SellTrader string    `json:"sell_trader"`
	Price      int64     `json:"price"`
	Quantity   int64     `json:"quantity"`
	Timestamp  time.Time `json:"timestamp"`
}
