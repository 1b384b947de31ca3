package core

import (
	"encoding/hex"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/fairdex-labs/engine/internal/domain"
	"github.com/shopspring/decimal"
)

// CommitStore admits hashed order commitments. Admission is concurrent:
// duplicate rejection uses per-(trader, batch) exclusivity on a sync.Map
// rather than a store-wide lock. There is no deletion, commitments are kept
// through settlement for audit.
type CommitStore struct {
	minStake decimal.Decimal

	byID  sync.Map // commitment id -> *domain.Commitment
	byKey sync.Map // trader + "|" + batch id -> commitment id
}

func NewCommitStore(minStake decimal.Decimal) *CommitStore {
	return &CommitStore{minStake: minStake}
}

// Submit admits a commitment into the batch. The batch must be in its
// Committing state. The caller supplies the id so journal replay can
// reproduce it.
func (s *CommitStore) Submit(id string, hash [32]byte, trader string, stake decimal.Decimal, batch *domain.Batch, now time.Time) (*domain.Commitment, error) {
	if batch == nil || batch.State != domain.Committing {
		return nil, domain.ErrBatchClosed
	}
	if stake.LessThan(s.minStake) {
		return nil, domain.ErrInsufficientStake
	}

	c := &domain.Commitment{
		ID:         id,
		Hash:       hash,
		HashHex:    hex.EncodeToString(hash[:]),
		Trader:     trader,
		Stake:      stake,
		BatchID:    batch.ID,
		SubmitTime: now,
	}
	key := commitKey(trader, batch.ID)
	if _, loaded := s.byKey.LoadOrStore(key, c.ID); loaded {
		return nil, domain.ErrDuplicateCommitment
	}
	s.byID.Store(c.ID, c)
	return c, nil
}

func (s *CommitStore) Get(commitmentID string) (*domain.Commitment, error) {
	v, ok := s.byID.Load(commitmentID)
	if !ok {
		return nil, domain.ErrCommitmentNotFound
	}
	return v.(*domain.Commitment), nil
}

// ForBatch returns the batch's commitments ordered by trader then id, so
// sweeps over them are deterministic.
func (s *CommitStore) ForBatch(batchID uint64) []*domain.Commitment {
	var res []*domain.Commitment
	s.byID.Range(func(_, v any) bool {
		c := v.(*domain.Commitment)
		if c.BatchID == batchID {
			res = append(res, c)
		}
		return true
	})
	sort.Slice(res, func(i, j int) bool {
		if res[i].Trader != res[j].Trader {
			return res[i].Trader < res[j].Trader
		}
		return res[i].ID < res[j].ID
	})
	return res
}

// StakeBySide aggregates revealed stake per order side for the clearing
// tie-break.
func (s *CommitStore) StakeBySide(batchID uint64, sideOf func(orderID string) (domain.Side, bool)) SideStake {
	stakes := SideStake{Buy: decimal.Zero, Sell: decimal.Zero}
	for _, c := range s.ForBatch(batchID) {
		if !c.Revealed || c.OrderID == "" {
			continue
		}
		side, ok := sideOf(c.OrderID)
		if !ok {
			continue
		}
		if side == domain.Buy {
			stakes.Buy = stakes.Buy.Add(c.Stake)
		} else {
			stakes.Sell = stakes.Sell.Add(c.Stake)
		}
	}
	return stakes
}

func commitKey(trader string, batchID uint64) string {
	return trader + "|" + strconv.FormatUint(batchID, 10)
}
