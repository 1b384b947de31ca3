package in_memory

import (
	"context"
	"sync"

	"github.com/fairdex-labs/engine/internal/domain"
	"github.com/fairdex-labs/engine/internal/port"
)

var _ port.Cache = (*Cache)(nil)

type Cache struct {
	mu   sync.Mutex
	snap *domain.BookSnapshot
}

func NewCache() *Cache {
	return &Cache{}
}

func (c *Cache) SetBook(ctx context.Context, snap *domain.BookSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = snap.DeepCopy()
	return nil
}

func (c *Cache) GetBook(ctx context.Context) (*domain.BookSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap == nil {
		return nil, nil
	}
	return c.snap.DeepCopy(), nil
}

func (c *Cache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = nil
	return nil
}
