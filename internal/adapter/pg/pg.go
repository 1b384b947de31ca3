package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairdex-labs/engine/internal/domain"
	"github.com/fairdex-labs/engine/internal/port"
)

var _ port.Repository = (*PgRepo)(nil)

type PgRepo struct {
	pool *pgxpool.Pool
}

// NewPgRepo creates the pool; call Close when finished.
func NewPgRepo(ctx context.Context, dsn string) (*PgRepo, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	return &PgRepo{pool: pool}, nil
}

func (p *PgRepo) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

func (p *PgRepo) SaveOrder(ctx context.Context, o *domain.Order) error {
	if o == nil {
		return errors.New("nil order")
	}
	_, err := p.pool.Exec(ctx, `
INSERT INTO orders(id, trader, side, type, price, quantity, remaining, seq, batch_id, status, created_at)
VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO UPDATE SET
  remaining = EXCLUDED.remaining,
  status = EXCLUDED.status
`, o.ID, o.Trader, string(o.Side), string(o.Type), o.Price, o.Quantity,
		o.Remaining, o.Seq, o.BatchID, string(o.Status), o.CreatedAt)
	return err
}

func (p *PgRepo) SaveTrade(ctx context.Context, t *domain.Trade) error {
	if t == nil {
		return errors.New("nil trade")
	}
	_, err := p.pool.Exec(ctx, `
INSERT INTO trades(id, batch_id, buy_order, sell_order, buy_trader, sell_trader, price, quantity, executed_at)
VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO NOTHING
`, t.ID, t.BatchID, t.BuyOrder, t.SellOrder, t.BuyTrader, t.SellTrader, t.Price, t.Quantity, t.Timestamp)
	return err
}

func (p *PgRepo) SaveCommitment(ctx context.Context, c *domain.Commitment) error {
	if c == nil {
		return errors.New("nil commitment")
	}
	_, err := p.pool.Exec(ctx, `
INSERT INTO commitments(id, hash, trader, stake, batch_id, submit_time, revealed, forfeited, order_id)
VALUES($1,$2,$3,$4,$5,$6,$7,$8,NULLIF($9,''))
ON CONFLICT (id) DO UPDATE SET
  revealed = EXCLUDED.revealed,
  forfeited = EXCLUDED.forfeited,
  order_id = EXCLUDED.order_id
`, c.ID, c.HashHex, c.Trader, c.Stake, c.BatchID, c.SubmitTime, c.Revealed, c.Forfeited, c.OrderID)
	return err
}

func (p *PgRepo) SaveBatch(ctx context.Context, b *domain.Batch) error {
	if b == nil {
		return errors.New("nil batch")
	}
	_, err := p.pool.Exec(ctx, `
INSERT INTO batches(id, commit_window_end, reveal_window_end, state, clearing_price, has_clearing, matched_volume)
VALUES($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET
  state = EXCLUDED.state,
  clearing_price = EXCLUDED.clearing_price,
  has_clearing = EXCLUDED.has_clearing,
  matched_volume = EXCLUDED.matched_volume
`, b.ID, b.CommitWindowEnd, b.RevealWindowEnd, string(b.State), b.ClearingPrice, b.HasClearing, b.MatchedVolume)
	return err
}

func (p *PgRepo) SaveForfeit(ctx context.Context, f *domain.ForfeitedCommitment) error {
	if f == nil {
		return errors.New("nil forfeit")
	}
	_, err := p.pool.Exec(ctx, `
INSERT INTO forfeits(trader, batch_id, stake_amount)
VALUES($1,$2,$3)
ON CONFLICT (trader, batch_id) DO NOTHING
`, f.Trader, f.BatchID, f.Stake)
	return err
}

func (p *PgRepo) SaveFlag(ctx context.Context, f *domain.FlaggedTrade) error {
	if f == nil {
		return errors.New("nil flag")
	}
	_, err := p.pool.Exec(ctx, `
INSERT INTO flagged_trades(batch_id, trader, buy_trade, sell_trade, profit, reason, detected_at)
VALUES($1,$2,$3,$4,$5,$6,$7)
`, f.BatchID, f.Trader, f.BuyTradeID, f.SellTradeID, f.Profit, f.Reason, f.DetectedAt)
	return err
}

// LoadOpenOrders returns resting orders ordered by arrival seq (FIFO).
func (p *PgRepo) LoadOpenOrders(ctx context.Context) ([]*domain.Order, error) {
	rows, err := p.pool.Query(ctx, `
SELECT id, trader, side, type, price, quantity, remaining, seq, batch_id, status, created_at
FROM orders
WHERE remaining > 0 AND status = 'OPEN'
ORDER BY seq ASC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.Order
	for rows.Next() {
		var o domain.Order
		var side, typ, status string
		if err := rows.Scan(&o.ID, &o.Trader, &side, &typ, &o.Price, &o.Quantity,
			&o.Remaining, &o.Seq, &o.BatchID, &status, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.Side = domain.Side(side)
		o.Type = domain.OrderType(typ)
		o.Status = domain.OrderStatus(status)
		res = append(res, &o)
	}
	return res, rows.Err()
}

func (p *PgRepo) LoadTradesForOrder(ctx context.Context, orderID string) ([]*domain.Trade, error) {
	rows, err := p.pool.Query(ctx, `
SELECT id, batch_id, buy_order, sell_order, buy_trader, sell_trader, price, quantity, executed_at
FROM trades
WHERE buy_order = $1 OR sell_order = $1
ORDER BY executed_at ASC
`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.Trade
	for rows.Next() {
		var t domain.Trade
		if err := rows.Scan(&t.ID, &t.BatchID, &t.BuyOrder, &t.SellOrder,
			&t.BuyTrader, &t.SellTrader, &t.Price, &t.Quantity, &t.Timestamp); err != nil {
			return nil, err
		}
		res = append(res, &t)
	}
	return res, rows.Err()
}
