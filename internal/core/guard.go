package core

import (
	"time"

	"github.com/fairdex-labs/engine/internal/domain"
	"go.uber.org/zap"
)

// Guard audits the trade sequence of a batch after matching. The uniform
// clearing price structurally removes intra-batch-pass sandwiching, so the
// guard targets the continuous pass: the same trader buying, an unrelated
// trade executing, then the same trader selling at a favorable spread.
// Detection is advisory; recorded trades stay final and flags go to the
// external dispute channel.
type Guard struct {
	logger     *zap.Logger
	minSpacing int
}

// NewGuard builds a guard. minSpacing is the minimum trade-index gap
// required between a trader's opposite-side fills inside one batch.
func NewGuard(minSpacing int, logger *zap.Logger) *Guard {
	return &Guard{logger: logger, minSpacing: minSpacing}
}

func (g *Guard) Audit(batchID uint64, trades []*domain.Trade, now time.Time) []domain.FlaggedTrade {
	var flags []domain.FlaggedTrade
	for i, buyLeg := range trades {
		trader := buyLeg.BuyTrader
		for j := i + 1; j < len(trades); j++ {
			sellLeg := trades[j]
			if sellLeg.SellTrader != trader {
				continue
			}
			if buyLeg.SellTrader == trader || sellLeg.BuyTrader == trader {
				continue // self-cross, reported elsewhere
			}
			if victim := betweenOthers(trades, i, j, trader); victim && sellLeg.Price > buyLeg.Price {
				f := domain.FlaggedTrade{
					BatchID:     batchID,
					Trader:      trader,
					BuyTradeID:  buyLeg.ID,
					SellTradeID: sellLeg.ID,
					Profit:      (sellLeg.Price - buyLeg.Price) * min64(buyLeg.Quantity, sellLeg.Quantity),
					Reason:      "sandwich",
					DetectedAt:  now,
				}
				flags = append(flags, f)
				g.logger.Sugar().Warnw("sandwich pattern flagged",
					"trader", trader,
					"batch_id", batchID,
					"buy_trade", buyLeg.ID,
					"sell_trade", sellLeg.ID,
					"profit", f.Profit,
				)
			}
			if j-i < g.minSpacing {
				f := domain.FlaggedTrade{
					BatchID:     batchID,
					Trader:      trader,
					BuyTradeID:  buyLeg.ID,
					SellTradeID: sellLeg.ID,
					Reason:      "spacing",
					DetectedAt:  now,
				}
				flags = append(flags, f)
				g.logger.Sugar().Warnw("reveal-to-match spacing violation",
					"trader", trader,
					"batch_id", batchID,
					"gap", j-i,
					"min_spacing", g.minSpacing,
				)
			}
		}
	}
	return flags
}

// betweenOthers reports whether any trade strictly between i and j does not
// involve trader - the victim leg of the sandwich.
func betweenOthers(trades []*domain.Trade, i, j int, trader string) bool {
	for k := i + 1; k < j; k++ {
		t := trades[k]
		if t.BuyTrader != trader && t.SellTrader != trader {
			return true
		}
	}
	return false
}
