package core

import (
	"sort"
	"strconv"
	"time"

	"github.com/fairdex-labs/engine/internal/domain"
	"github.com/google/uuid"
)

// tradeNamespace seeds deterministic (v5) trade ids so independent replays
// of the same inputs emit byte-identical trade streams.
var tradeNamespace = uuid.MustParse("7a9c4b42-2a5e-4f3b-9d01-c1d2f66b8f10")

// Matcher executes trades. It is the only mutator of the order book and the
// only creator of trades. All its methods run on the engine's single writer
// goroutine; there is no internal locking.
type Matcher struct {
	book *OrderBook
}

func NewMatcher(book *OrderBook) *Matcher {
	return &Matcher{book: book}
}

// BatchPass executes all revealed orders priced at or through the uniform
// clearing price, in strict price-then-arrival order, every fill at the
// clearing price. It returns the trades and the leftover GTC orders that
// must be admitted to the standing book (ineligible limits and partially
// filled remainders). IOC leftovers are discarded; FOK orders either fill
// completely inside the pass or are discarded with zero effect.
func (m *Matcher) BatchPass(b *domain.Batch, orders []*domain.Order, price int64, now time.Time) ([]*domain.Trade, []*domain.Order) {
	var buys, sells, inserts []*domain.Order
	for _, o := range orders {
		eligible := (o.Side == domain.Buy && o.Price >= price) ||
			(o.Side == domain.Sell && o.Price <= price)
		if !eligible {
			if o.Type == domain.GTC {
				inserts = append(inserts, o)
			} else {
				o.Status = domain.Discarded
			}
			continue
		}
		if o.Side == domain.Buy {
			buys = append(buys, o)
		} else {
			sells = append(sells, o)
		}
	}

	sort.SliceStable(buys, func(i, j int) bool {
		if buys[i].Price != buys[j].Price {
			return buys[i].Price > buys[j].Price
		}
		return buys[i].Seq < buys[j].Seq
	})
	sort.SliceStable(sells, func(i, j int) bool {
		if sells[i].Price != sells[j].Price {
			return sells[i].Price < sells[j].Price
		}
		return sells[i].Seq < sells[j].Seq
	})

	buys, sells = dropInfeasibleFOK(buys, sells)

	var trades []*domain.Trade
	i, j := 0, 0
	for i < len(buys) && j < len(sells) {
		bo, so := buys[i], sells[j]
		qty := min64(bo.Remaining, so.Remaining)
		trades = append(trades, newTrade(b.ID, bo, so, price, qty, now))
		bo.Remaining -= qty
		so.Remaining -= qty
		if bo.Remaining == 0 {
			bo.Status = domain.Filled
			i++
		}
		if so.Remaining == 0 {
			so.Status = domain.Filled
			j++
		}
	}

	for _, leftover := range [][]*domain.Order{buys[i:], sells[j:]} {
		for _, o := range leftover {
			if o.Remaining == 0 {
				continue
			}
			if o.Type == domain.GTC {
				inserts = append(inserts, o)
			} else {
				o.Status = domain.Discarded
			}
		}
	}

	// Book admissions keep arrival order.
	sort.SliceStable(inserts, func(i, j int) bool { return inserts[i].Seq < inserts[j].Seq })
	return trades, inserts
}

// dropInfeasibleFOK removes FOK orders that cannot fill completely under
// priority-ordered allocation, iterating to a fixpoint since dropping one
// side shrinks the volume available to the other. Drops happen before any
// fill, so discarded FOK orders have zero effect.
func dropInfeasibleFOK(buys, sells []*domain.Order) ([]*domain.Order, []*domain.Order) {
	for {
		changed := false
		supply := totalRemaining(sells)
		kept := buys[:0]
		avail := supply
		for _, o := range buys {
			if o.Type == domain.FOK && o.Remaining > avail {
				o.Status = domain.Discarded
				changed = true
				continue
			}
			take := min64(o.Remaining, avail)
			avail -= take
			kept = append(kept, o)
		}
		buys = kept

		demand := totalRemaining(buys)
		kept = sells[:0]
		avail = demand
		for _, o := range sells {
			if o.Type == domain.FOK && o.Remaining > avail {
				o.Status = domain.Discarded
				changed = true
				continue
			}
			take := min64(o.Remaining, avail)
			avail -= take
			kept = append(kept, o)
		}
		sells = kept

		if !changed {
			return buys, sells
		}
	}
}

// PlaceStanding runs the continuous pass for one incoming order: match
// against the opposite side at the resting order's price under price-time
// priority, then rest any GTC remainder. FOK is checked with a dry run
// before any fill; IOC remainders are discarded.
func (m *Matcher) PlaceStanding(o *domain.Order, now time.Time) []*domain.Trade {
	if o.Type == domain.FOK {
		if m.book.AvailableQty(o.Side, o.Price) < o.Remaining {
			o.Status = domain.Discarded
			return nil
		}
	}

	var trades []*domain.Trade
	if o.Side == domain.Buy {
		for o.Remaining > 0 {
			best := m.book.BestAsk()
			if best == nil || best.Price > o.Price {
				break
			}
			trades = append(trades, m.fill(o, best, best.Price, now))
		}
	} else {
		for o.Remaining > 0 {
			best := m.book.BestBid()
			if best == nil || best.Price < o.Price {
				break
			}
			trades = append(trades, m.fill(o, best, best.Price, now))
		}
	}

	switch {
	case o.Remaining == 0:
		o.Status = domain.Filled
	case o.Type == domain.GTC:
		m.book.Insert(o)
	default:
		o.Status = domain.Discarded
	}
	return trades
}

func (m *Matcher) fill(taker, resting *domain.Order, price int64, now time.Time) *domain.Trade {
	qty := min64(taker.Remaining, resting.Remaining)
	var t *domain.Trade
	if taker.Side == domain.Buy {
		t = newTrade(taker.BatchID, taker, resting, price, qty, now)
	} else {
		t = newTrade(taker.BatchID, resting, taker, price, qty, now)
	}
	taker.Remaining -= qty
	resting.Remaining -= qty
	if resting.Remaining == 0 {
		resting.Status = domain.Filled
		m.book.Remove(resting.ID)
	}
	return t
}

func newTrade(batchID uint64, buy, sell *domain.Order, price, qty int64, now time.Time) *domain.Trade {
	seed := buy.ID + "|" + sell.ID + "|" +
		strconv.FormatInt(buy.Remaining, 10) + "|" + strconv.FormatInt(sell.Remaining, 10)
	return &domain.Trade{
		ID:         uuid.NewSHA1(tradeNamespace, []byte(seed)).String(),
		BatchID:    batchID,
		BuyOrder:   buy.ID,
		SellOrder:  sell.ID,
		BuyTrader:  buy.Trader,
		SellTrader: sell.Trader,
		Price:      price,
		Quantity:   qty,
		Timestamp:  now,
	}
}

func totalRemaining(orders []*domain.Order) int64 {
	var total int64
	for _, o := range orders {
		total += o.Remaining
	}
	return total
}
