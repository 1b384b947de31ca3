package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/types/known/timestamppb"
)

type OrderType string

const (
	GTC OrderType = "GTC"
	IOC OrderType = "IOC"
	FOK OrderType = "FOK"
)

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

type OrderStatus string

const (
	Open      OrderStatus = "OPEN"
	Filled    OrderStatus = "FILLED"
	Cancelled OrderStatus = "CANCELLED"
	Discarded OrderStatus = "DISCARDED"
)

type SubmitCommitmentRequest struct {
	Trader string          `json:"trader" binding:"required"`
	Hash   string          `json:"hash" binding:"required"` // hex, 32 bytes
	Stake  decimal.Decimal `json:"stake" binding:"required"`
}

type SubmitCommitmentResponse struct {
	CommitmentID string    `json:"commitment_id"`
	BatchID      uint64    `json:"batch_id"`
	SubmitTime   time.Time `json:"submit_time"`
	Message      string    `json:"message,omitempty"`
}

type RevealRequest struct {
	Side     Side      `json:"side" binding:"required"`
	Type     OrderType `json:"type" binding:"required"`
	Price    int64     `json:"price"`
	Quantity int64     `json:"quantity"`
	Nonce    string    `json:"nonce" binding:"required"` // hex
}

type RevealResponse struct {
	CommitmentID string `json:"commitment_id"`
	OrderID      string `json:"order_id"`
	BatchID      uint64 `json:"batch_id"`
	Status       string `json:"status"`
	Message      string `json:"message,omitempty"`
}

type SubmitOrderRequest struct {
	Trader   string    `json:"trader" binding:"required"`
	Side     Side      `json:"side" binding:"required"`
	Type     OrderType `json:"type" binding:"required"`
	Price    int64     `json:"price"`
	Quantity int64     `json:"quantity"`
}

type SubmitOrderResponse struct {
	OrderID   string  `json:"order_id"`
	Trades    []Trade `json:"trades"`
	Remaining int64   `json:"remaining"`
	Status    string  `json:"status"`
	Message   string  `json:"message,omitempty"`
}

type CancelOrderRequest struct {
	OrderID string `json:"order_id" binding:"required"`
	Trader  string `json:"trader" binding:"required"`
}

type CancelOrderResponse struct {
	OrderID   string `json:"order_id"`
	Cancelled bool   `json:"cancelled"`
	Message   string `json:"message,omitempty"`
}

type GetOrderResponse struct {
	Order Order `json:"order"`
}

type GetTradesResponse struct {
	Trades []Trade `json:"trades"`
}

type GetOrderbookResponse struct {
	Bids      []Order   `json:"bids"`
	Asks      []Order   `json:"asks"`
	Timestamp time.Time `json:"timestamp"`
}

type GetBatchResponse struct {
	Batch  Batch   `json:"batch"`
	Trades []Trade `json:"trades,omitempty"`
}

type Order struct {
	ID        string    `json:"id"`
	Trader    string    `json:"trader"`
	Side      Side      `json:"side"`
	Type      OrderType `json:"type"`
	Price     int64     `json:"price"`
	Quantity  int64     `json:"quantity"`
	Remaining int64     `json:"remaining"`
	BatchID   uint64    `json:"batch_id,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type Trade struct {
	ID        string                 `json:"id"`
	BatchID   uint64                 `json:"batch_id"`
	BuyOrder  string                 `json:"buy_order"`
	SellOrder string                 `json:"sell_order"`
	Price     int64                  `json:"price"`
	Quantity  int64                  `json:"quantity"`
	Timestamp *timestamppb.Timestamp `json:"timestamp"`
}

type Batch struct {
	ID              uint64    `json:"id"`
	State           string    `json:"state"`
	CommitWindowEnd time.Time `json:"commit_window_end"`
	RevealWindowEnd time.Time `json:"reveal_window_end"`
	ClearingPrice   *int64    `json:"clearing_price,omitempty"`
	MatchedVolume   int64     `json:"matched_volume"`
}
