package core

import (
	"sort"

	"github.com/fairdex-labs/engine/internal/domain"
	"github.com/shopspring/decimal"
)

// ClearingResult is the uniform price and the executable volume of a batch.
type ClearingResult struct {
	Price  int64
	Volume int64
}

// SideStake carries the aggregate stake backing each side of a batch,
// used only for the final clearing-price tie-break.
type SideStake struct {
	Buy  decimal.Decimal
	Sell decimal.Decimal
}

// ComputeClearing computes the uniform clearing price for a revealed-order
// set. It is pure: the result depends only on the set contents, never on
// slice order or arrival sequence.
//
// The price maximizes executable volume. Ties are broken by minimum leftover
// imbalance, then by the midpoint of the remaining candidate interval,
// rounded down when the buy side carries at least as much stake (favoring
// the heavier side) and up otherwise.
//
// Returns ErrNoCrossingPrice when no buy/sell pair can execute; callers
// treat that as a zero-trade batch, not a failure.
func ComputeClearing(orders []*domain.Order, stakes SideStake) (ClearingResult, error) {
	var buys, sells []*domain.Order
	for _, o := range orders {
		if o.Remaining <= 0 {
			continue
		}
		if o.Side == domain.Buy {
			buys = append(buys, o)
		} else {
			sells = append(sells, o)
		}
	}
	if len(buys) == 0 || len(sells) == 0 {
		return ClearingResult{}, domain.ErrNoCrossingPrice
	}

	candidates := candidatePrices(buys, sells)

	type point struct {
		price     int64
		volume    int64
		imbalance int64
	}
	var best []point
	var maxVol int64
	for _, p := range candidates {
		var demand, supply int64
		for _, o := range buys {
			if o.Price >= p {
				demand += o.Remaining
			}
		}
		for _, o := range sells {
			if o.Price <= p {
				supply += o.Remaining
			}
		}
		vol := min64(demand, supply)
		if vol == 0 {
			continue
		}
		imb := demand - supply
		if imb < 0 {
			imb = -imb
		}
		switch {
		case vol > maxVol:
			maxVol = vol
			best = best[:0]
			best = append(best, point{p, vol, imb})
		case vol == maxVol:
			best = append(best, point{p, vol, imb})
		}
	}
	if maxVol == 0 {
		return ClearingResult{}, domain.ErrNoCrossingPrice
	}

	minImb := best[0].imbalance
	for _, pt := range best[1:] {
		if pt.imbalance < minImb {
			minImb = pt.imbalance
		}
	}
	lo, hi := int64(0), int64(0)
	first := true
	for _, pt := range best {
		if pt.imbalance != minImb {
			continue
		}
		if first {
			lo, hi = pt.price, pt.price
			first = false
			continue
		}
		if pt.price < lo {
			lo = pt.price
		}
		if pt.price > hi {
			hi = pt.price
		}
	}

	price := midpoint(lo, hi, stakes)
	return ClearingResult{Price: price, Volume: maxVol}, nil
}

func candidatePrices(buys, sells []*domain.Order) []int64 {
	seen := make(map[int64]struct{}, len(buys)+len(sells))
	var prices []int64
	for _, o := range buys {
		if _, ok := seen[o.Price]; !ok {
			seen[o.Price] = struct{}{}
			prices = append(prices, o.Price)
		}
	}
	for _, o := range sells {
		if _, ok := seen[o.Price]; !ok {
			seen[o.Price] = struct{}{}
			prices = append(prices, o.Price)
		}
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i] < prices[j] })
	return prices
}

func midpoint(lo, hi int64, stakes SideStake) int64 {
	sum := lo + hi
	if sum%2 == 0 {
		return sum / 2
	}
	if stakes.Buy.GreaterThanOrEqual(stakes.Sell) {
		return sum / 2
	}
	return sum/2 + 1
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
