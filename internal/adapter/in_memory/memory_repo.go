package in_memory

import (
	"context"
	"sync"

	"github.com/fairdex-labs/engine/internal/domain"
	"github.com/fairdex-labs/engine/internal/port"
)

var _ port.Repository = (*MemoryRepo)(nil)

type MemoryRepo struct {
	mu          sync.Mutex
	orders      map[string]*domain.Order
	trades      map[string][]*domain.Trade
	commitments map[string]*domain.Commitment
	batches     map[uint64]*domain.Batch
	forfeits    []*domain.ForfeitedCommitment
	flags       []*domain.FlaggedTrade
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		orders:      make(map[string]*domain.Order),
		trades:      make(map[string][]*domain.Trade),
		commitments: make(map[string]*domain.Commitment),
		batches:     make(map[uint64]*domain.Batch),
	}
}

func (r *MemoryRepo) SaveOrder(ctx context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *MemoryRepo) SaveTrade(ctx context.Context, t *domain.Trade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trades[t.BuyOrder] = append(r.trades[t.BuyOrder], t)
	r.trades[t.SellOrder] = append(r.trades[t.SellOrder], t)
	return nil
}

func (r *MemoryRepo) SaveCommitment(ctx context.Context, c *domain.Commitment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.commitments[c.ID] = &cp
	return nil
}

func (r *MemoryRepo) SaveBatch(ctx context.Context, b *domain.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *b
	r.batches[b.ID] = &cp
	return nil
}

func (r *MemoryRepo) SaveForfeit(ctx context.Context, f *domain.ForfeitedCommitment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forfeits = append(r.forfeits, f)
	return nil
}

func (r *MemoryRepo) SaveFlag(ctx context.Context, f *domain.FlaggedTrade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flags = append(r.flags, f)
	return nil
}

func (r *MemoryRepo) LoadOpenOrders(ctx context.Context) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []*domain.Order
	for _, o := range r.orders {
		if o.Status == domain.Open && o.Remaining > 0 {
			cp := *o
			res = append(res, &cp)
		}
	}
	return res, nil
}

func (r *MemoryRepo) LoadTradesForOrder(ctx context.Context, orderID string) ([]*domain.Trade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.Trade(nil), r.trades[orderID]...), nil
}

// Forfeits returns everything swept so far; used by tests.
func (r *MemoryRepo) Forfeits() []*domain.ForfeitedCommitment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.ForfeitedCommitment(nil), r.forfeits...)
}

// Flags returns the recorded guard flags; used by tests.
func (r *MemoryRepo) Flags() []*domain.FlaggedTrade {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.FlaggedTrade(nil), r.flags...)
}
