package port

import (
	"context"

	"github.com/fairdex-labs/engine/internal/domain"
)

type Cache interface {
	SetBook(ctx context.Context, snap *domain.BookSnapshot) error
	GetBook(ctx context.Context) (*domain.BookSnapshot, error)
	Invalidate(ctx context.Context) error
}
