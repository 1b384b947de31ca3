package core

import (
	"testing"
	"time"

	"github.com/fairdex-labs/engine/internal/domain"
)

func testOrder(id string, side domain.Side, typ domain.OrderType, price, qty int64, seq uint64) *domain.Order {
	return &domain.Order{
		ID:        id,
		Trader:    "trader-" + id,
		Side:      side,
		Type:      typ,
		Price:     price,
		Quantity:  qty,
		Remaining: qty,
		Seq:       seq,
		Status:    domain.Open,
		CreatedAt: time.Unix(0, 0),
	}
}

func TestOrderBook_PriceTimeOrdering(t *testing.T) {
	b := NewOrderBook()
	b.Insert(testOrder("b1", domain.Buy, domain.GTC, 99, 10, 2))
	b.Insert(testOrder("b2", domain.Buy, domain.GTC, 100, 10, 3))
	b.Insert(testOrder("b3", domain.Buy, domain.GTC, 99, 10, 1))

	if got := b.BestBid().ID; got != "b2" {
		t.Fatalf("best bid: expected b2 (highest price), got %s", got)
	}
	if b.Bids[1].ID != "b3" || b.Bids[2].ID != "b1" {
		t.Errorf("equal-price bids not in arrival order: got %s, %s", b.Bids[1].ID, b.Bids[2].ID)
	}

	b.Insert(testOrder("a1", domain.Sell, domain.GTC, 105, 10, 4))
	b.Insert(testOrder("a2", domain.Sell, domain.GTC, 101, 10, 5))
	if got := b.BestAsk().ID; got != "a2" {
		t.Fatalf("best ask: expected a2 (lowest price), got %s", got)
	}
}

func TestOrderBook_Remove(t *testing.T) {
	b := NewOrderBook()
	b.Insert(testOrder("b1", domain.Buy, domain.GTC, 99, 10, 1))
	b.Insert(testOrder("b2", domain.Buy, domain.GTC, 98, 10, 2))

	if o := b.Remove("b1"); o == nil || o.ID != "b1" {
		t.Fatalf("expected to remove b1, got %v", o)
	}
	if o := b.Remove("b1"); o != nil {
		t.Errorf("second remove should return nil, got %v", o)
	}
	if len(b.Bids) != 1 || b.Bids[0].ID != "b2" {
		t.Errorf("expected only b2 resting, got %d bids", len(b.Bids))
	}
}

func TestOrderBook_Crossed(t *testing.T) {
	b := NewOrderBook()
	if b.Crossed() {
		t.Fatal("empty book must not report crossed")
	}
	b.Insert(testOrder("b1", domain.Buy, domain.GTC, 99, 10, 1))
	b.Insert(testOrder("a1", domain.Sell, domain.GTC, 100, 10, 2))
	if b.Crossed() {
		t.Fatal("bid 99 / ask 100 must not report crossed")
	}
	b.Insert(testOrder("a2", domain.Sell, domain.GTC, 99, 10, 3))
	if !b.Crossed() {
		t.Fatal("bid 99 / ask 99 must report crossed")
	}
}

func TestOrderBook_AvailableQty(t *testing.T) {
	b := NewOrderBook()
	b.Insert(testOrder("a1", domain.Sell, domain.GTC, 100, 10, 1))
	b.Insert(testOrder("a2", domain.Sell, domain.GTC, 101, 5, 2))
	b.Insert(testOrder("a3", domain.Sell, domain.GTC, 110, 7, 3))

	if got := b.AvailableQty(domain.Buy, 101); got != 15 {
		t.Errorf("available at limit 101: expected 15, got %d", got)
	}
	if got := b.AvailableQty(domain.Buy, 99); got != 0 {
		t.Errorf("available at limit 99: expected 0, got %d", got)
	}
	if got := b.AvailableQty(domain.Buy, 200); got != 22 {
		t.Errorf("available at limit 200: expected 22, got %d", got)
	}
}

// Standing book has bid 10@99 (seq 1) and bid 10@99 (seq 2); an incoming ask
// for 15@99 fills seq 1 completely and seq 2 partially, leaving 5 resting.
func TestMatcher_PartialFillFIFO(t *testing.T) {
	book := NewOrderBook()
	m := NewMatcher(book)
	now := time.Unix(1000, 0)

	first := testOrder("b1", domain.Buy, domain.GTC, 99, 10, 1)
	second := testOrder("b2", domain.Buy, domain.GTC, 99, 10, 2)
	book.Insert(first)
	book.Insert(second)

	ask := testOrder("a1", domain.Sell, domain.GTC, 99, 15, 3)
	trades := m.PlaceStanding(ask, now)

	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	if trades[0].BuyOrder != "b1" || trades[0].Quantity != 10 {
		t.Errorf("first trade: expected b1 qty 10, got %s qty %d", trades[0].BuyOrder, trades[0].Quantity)
	}
	if trades[1].BuyOrder != "b2" || trades[1].Quantity != 5 {
		t.Errorf("second trade: expected b2 qty 5, got %s qty %d", trades[1].BuyOrder, trades[1].Quantity)
	}
	for _, tr := range trades {
		if tr.Price != 99 {
			t.Errorf("trade price: expected resting price 99, got %d", tr.Price)
		}
	}

	if first.Status != domain.Filled {
		t.Errorf("first bid should be filled, got %s", first.Status)
	}
	if second.Remaining != 5 {
		t.Errorf("second bid remaining: expected 5, got %d", second.Remaining)
	}
	if ask.Status != domain.Filled || ask.Remaining != 0 {
		t.Errorf("ask should be fully filled, got status=%s remaining=%d", ask.Status, ask.Remaining)
	}
	if len(book.Bids) != 1 || book.Bids[0].ID != "b2" {
		t.Errorf("expected only b2 resting after match")
	}
	if book.Crossed() {
		t.Error("book crossed after matching pass")
	}
}

func TestMatcher_ContinuousPriceFromRestingOrder(t *testing.T) {
	book := NewOrderBook()
	m := NewMatcher(book)
	now := time.Unix(1000, 0)

	book.Insert(testOrder("a1", domain.Sell, domain.GTC, 100, 10, 1))

	// Buyer willing to pay 105 still trades at the resting 100.
	bid := testOrder("b1", domain.Buy, domain.GTC, 105, 10, 2)
	trades := m.PlaceStanding(bid, now)

	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	if trades[0].Price != 100 {
		t.Errorf("expected resting price 100, got %d", trades[0].Price)
	}
}
