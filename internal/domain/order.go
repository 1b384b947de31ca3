package domain

import (
	"bytes"
	"encoding/binary"
	"time"
)

type Side string
type OrderType string
type OrderStatus string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"

	GTC OrderType = "GTC"
	IOC OrderType = "IOC"
	FOK OrderType = "FOK"

	Open      OrderStatus = "OPEN"
	Filled    OrderStatus = "FILLED"
	Cancelled OrderStatus = "CANCELLED"
	Discarded OrderStatus = "DISCARDED"
)

// Order is a revealed or directly submitted limit order. Prices and
// quantities are int64 counts of the smallest tradable unit.
type Order struct {
	ID        string      `json:"id"`
	Trader    string      `json:"trader"`
	Side      Side        `json:"side"`
	Type      OrderType   `json:"type"`
	Price     int64       `json:"price"`
	Quantity  int64       `json:"quantity"`
	Remaining int64       `json:"remaining"`
	Seq       uint64      `json:"seq"`
	BatchID   uint64      `json:"batch_id"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}

func (o *Order) PartiallyFilled() bool {
	return o.Remaining > 0 && o.Remaining < o.Quantity
}

func ValidSide(s Side) bool {
	return s == Buy || s == Sell
}

func ValidType(t OrderType) bool {
	return t == GTC || t == IOC || t == FOK
}

// OrderPayload is the order content hidden behind a commitment until reveal.
type OrderPayload struct {
	Side     Side      `json:"side"`
	Type     OrderType `json:"type"`
	Price    int64     `json:"price"`
	Quantity int64     `json:"quantity"`
}

// Encode produces the canonical binary form used for commitment hashing.
// Layout: [side:1][type:1][price:8][quantity:8], integers big-endian.
func (p OrderPayload) Encode() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, 18))
	switch p.Side {
	case Sell:
		buf.WriteByte(1)
	default:
		buf.WriteByte(0)
	}
	switch p.Type {
	case IOC:
		buf.WriteByte(1)
	case FOK:
		buf.WriteByte(2)
	default:
		buf.WriteByte(0)
	}
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(p.Price))
	buf.Write(b[:])
	binary.BigEndian.PutUint64(b[:], uint64(p.Quantity))
	buf.Write(b[:])
	return buf.Bytes()
}
