package port

import (
	"context"

	"github.com/fairdex-labs/engine/internal/domain"
)

// Repository persists the audit trail: orders, trades, commitments, batches,
// forfeits and guard flags. Commitments are retained through settlement,
// there is no deletion.
type Repository interface {
	SaveOrder(ctx context.Context, o *domain.Order) error
	SaveTrade(ctx context.Context, t *domain.Trade) error
	SaveCommitment(ctx context.Context, c *domain.Commitment) error
	SaveBatch(ctx context.Context, b *domain.Batch) error
	SaveForfeit(ctx context.Context, f *domain.ForfeitedCommitment) error
	SaveFlag(ctx context.Context, f *domain.FlaggedTrade) error
	LoadOpenOrders(ctx context.Context) ([]*domain.Order, error)
	LoadTradesForOrder(ctx context.Context, orderID string) ([]*domain.Trade, error)
}
