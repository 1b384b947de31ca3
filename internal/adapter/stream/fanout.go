package stream

import (
	"context"

	"github.com/fairdex-labs/engine/internal/domain"
	"github.com/fairdex-labs/engine/internal/port"
)

var _ port.Publisher = (Fanout)(nil)

// Fanout publishes to every wrapped publisher and returns the first error.
// Later publishers still run when an earlier one fails.
type Fanout []port.Publisher

func (f Fanout) PublishTrade(ctx context.Context, t *domain.Trade) error {
	var first error
	for _, p := range f {
		if err := p.PublishTrade(ctx, t); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (f Fanout) PublishForfeit(ctx context.Context, fc *domain.ForfeitedCommitment) error {
	var first error
	for _, p := range f {
		if err := p.PublishForfeit(ctx, fc); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (f Fanout) PublishFlag(ctx context.Context, ft *domain.FlaggedTrade) error {
	var first error
	for _, p := range f {
		if err := p.PublishFlag(ctx, ft); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (f Fanout) Close() error {
	var first error
	for _, p := range f {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
