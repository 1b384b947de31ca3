package port

import (
	"context"

	"github.com/fairdex-labs/engine/internal/domain"
)

// Publisher feeds the external collaborators: settlement consumes the
// ordered trade stream, slashing consumes forfeits, dispute handling
// consumes guard flags. The core assumes settlement succeeds for every
// published trade; there is no rollback path.
type Publisher interface {
	PublishTrade(ctx context.Context, t *domain.Trade) error
	PublishForfeit(ctx context.Context, f *domain.ForfeitedCommitment) error
	PublishFlag(ctx context.Context, f *domain.FlaggedTrade) error
	Close() error
}
