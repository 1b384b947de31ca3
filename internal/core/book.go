package core

import (
	"sort"
	"time"

	"github.com/fairdex-labs/engine/internal/domain"
)

// OrderBook holds standing GTC liquidity for the continuous pass. It is
// exclusively owned and mutated by the Matcher; readers only ever receive
// snapshots.
type OrderBook struct {
	Bids []*domain.Order // price desc, then arrival seq asc
	Asks []*domain.Order // price asc, then arrival seq asc
}

func NewOrderBook() *OrderBook {
	return &OrderBook{}
}

// Insert rests an order on its side and restores price-time ordering.
func (b *OrderBook) Insert(o *domain.Order) {
	if o.Side == domain.Buy {
		b.Bids = append(b.Bids, o)
		b.sortBids()
	} else {
		b.Asks = append(b.Asks, o)
		b.sortAsks()
	}
}

// Remove unlinks a resting order by id. Returns the order if found.
func (b *OrderBook) Remove(orderID string) *domain.Order {
	if o, rest, ok := removeByID(b.Bids, orderID); ok {
		b.Bids = rest
		return o
	}
	if o, rest, ok := removeByID(b.Asks, orderID); ok {
		b.Asks = rest
		return o
	}
	return nil
}

func (b *OrderBook) BestBid() *domain.Order {
	if len(b.Bids) == 0 {
		return nil
	}
	return b.Bids[0]
}

func (b *OrderBook) BestAsk() *domain.Order {
	if len(b.Asks) == 0 {
		return nil
	}
	return b.Asks[0]
}

// Crossed reports whether the book is in the forbidden crossed state. It
// must always be false once a matching pass settles.
func (b *OrderBook) Crossed() bool {
	bid, ask := b.BestBid(), b.BestAsk()
	return bid != nil && ask != nil && bid.Price >= ask.Price
}

// AvailableQty sums resting quantity an incoming order on side could take at
// its limit. Used for the FOK dry run before any fill happens.
func (b *OrderBook) AvailableQty(side domain.Side, limit int64) int64 {
	var total int64
	if side == domain.Buy {
		for _, o := range b.Asks {
			if o.Price > limit {
				break
			}
			total += o.Remaining
		}
	} else {
		for _, o := range b.Bids {
			if o.Price < limit {
				break
			}
			total += o.Remaining
		}
	}
	return total
}

// Snapshot returns an immutable copy of the standing book.
func (b *OrderBook) Snapshot(now time.Time) *domain.BookSnapshot {
	snap := &domain.BookSnapshot{
		Bids:      make([]domain.Order, len(b.Bids)),
		Asks:      make([]domain.Order, len(b.Asks)),
		Timestamp: now,
	}
	for i, o := range b.Bids {
		snap.Bids[i] = *o
	}
	for i, o := range b.Asks {
		snap.Asks[i] = *o
	}
	return snap
}

func (b *OrderBook) sortBids() {
	sort.SliceStable(b.Bids, func(i, j int) bool {
		if b.Bids[i].Price != b.Bids[j].Price {
			return b.Bids[i].Price > b.Bids[j].Price
		}
		return b.Bids[i].Seq < b.Bids[j].Seq
	})
}

func (b *OrderBook) sortAsks() {
	sort.SliceStable(b.Asks, func(i, j int) bool {
		if b.Asks[i].Price != b.Asks[j].Price {
			return b.Asks[i].Price < b.Asks[j].Price
		}
		return b.Asks[i].Seq < b.Asks[j].Seq
	})
}

func removeByID(orders []*domain.Order, orderID string) (*domain.Order, []*domain.Order, bool) {
	for i, o := range orders {
		if o.ID == orderID {
			return o, append(orders[:i], orders[i+1:]...), true
		}
	}
	return nil, orders, false
}
