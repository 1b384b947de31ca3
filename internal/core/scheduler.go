package core

import (
	"time"

	"github.com/fairdex-labs/engine/internal/domain"
	"go.uber.org/zap"
)

// Scheduler owns Batch and Commitment lifecycle transitions. Transitions are
// driven purely by deadline expiry, never by message arrival order, so two
// executions fed the same input log produce the same batch boundaries.
//
// Pipelining: batch N+1's commit window opens when batch N enters Clearing,
// so at most two batches are in flight and clearing stays strictly
// sequential.
type Scheduler struct {
	commitWindow time.Duration
	revealWindow time.Duration

	store   *CommitStore
	logger  *zap.Logger
	batches map[uint64]*domain.Batch
	nextID  uint64

	committing *domain.Batch
	revealing  *domain.Batch

	// onClear runs exactly once per batch at the Clearing transition. The
	// scheduler never calls back into matching outside this hook, and the
	// matcher holds no reference to the scheduler.
	onClear   func(b *domain.Batch) error
	onForfeit func(f domain.ForfeitedCommitment)
}

func NewScheduler(commitWindow, revealWindow time.Duration, store *CommitStore, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		commitWindow: commitWindow,
		revealWindow: revealWindow,
		store:        store,
		logger:       logger,
		batches:      make(map[uint64]*domain.Batch),
		nextID:       1,
	}
}

func (s *Scheduler) SetHooks(onClear func(b *domain.Batch) error, onForfeit func(f domain.ForfeitedCommitment)) {
	s.onClear = onClear
	s.onForfeit = onForfeit
}

// Start opens the first commit window at now.
func (s *Scheduler) Start(now time.Time) *domain.Batch {
	if s.committing != nil || s.revealing != nil {
		return s.committing
	}
	return s.openBatch(now)
}

// Advance applies every transition whose deadline has expired at now.
func (s *Scheduler) Advance(now time.Time) (bool, error) {
	changed := false
	for {
		if s.revealing != nil && !now.Before(s.revealing.RevealWindowEnd) {
			if err := s.closeReveal(s.revealing); err != nil {
				return changed, err
			}
			changed = true
			continue
		}
		if s.committing != nil && !now.Before(s.committing.CommitWindowEnd) {
			b := s.committing
			b.State = domain.Revealing
			s.revealing = b
			s.committing = nil
			s.logger.Sugar().Infow("batch reveal window open",
				"batch_id", b.ID,
				"reveal_window_end", b.RevealWindowEnd,
			)
			changed = true
			continue
		}
		return changed, nil
	}
}

// closeReveal sweeps unrevealed commitments, moves the batch to Clearing,
// opens the next commit window and runs clearing exactly once.
func (s *Scheduler) closeReveal(b *domain.Batch) error {
	for _, c := range s.store.ForBatch(b.ID) {
		if c.Revealed || c.Forfeited {
			continue
		}
		c.Forfeited = true
		ev := domain.ForfeitedCommitment{Trader: c.Trader, BatchID: b.ID, Stake: c.Stake}
		s.logger.Sugar().Warnw("commitment forfeited",
			"trader", c.Trader,
			"batch_id", b.ID,
			"stake", c.Stake.String(),
		)
		if s.onForfeit != nil {
			s.onForfeit(ev)
		}
	}

	b.State = domain.Clearing
	s.revealing = nil
	// Windows anchor at the previous deadline, not at Advance arrival time,
	// keeping batch boundaries a pure function of time.
	s.openBatch(b.RevealWindowEnd)

	if s.onClear != nil {
		if err := s.onClear(b); err != nil {
			return err
		}
	}
	b.State = domain.Settled
	s.logger.Sugar().Infow("batch settled",
		"batch_id", b.ID,
		"clearing_price", b.ClearingPrice,
		"matched_volume", b.MatchedVolume,
	)
	return nil
}

func (s *Scheduler) openBatch(openAt time.Time) *domain.Batch {
	b := &domain.Batch{
		ID:              s.nextID,
		CommitWindowEnd: openAt.Add(s.commitWindow),
		State:           domain.Committing,
	}
	b.RevealWindowEnd = b.CommitWindowEnd.Add(s.revealWindow)
	s.nextID++
	s.batches[b.ID] = b
	s.committing = b
	s.logger.Sugar().Infow("batch commit window open",
		"batch_id", b.ID,
		"commit_window_end", b.CommitWindowEnd,
	)
	return b
}

// Committing returns the batch currently accepting commitments, if any.
func (s *Scheduler) Committing() *domain.Batch { return s.committing }

// Revealing returns the batch currently accepting reveals, if any.
func (s *Scheduler) Revealing() *domain.Batch { return s.revealing }

func (s *Scheduler) Batch(id uint64) (*domain.Batch, error) {
	b, ok := s.batches[id]
	if !ok {
		return nil, domain.ErrBatchNotFound
	}
	return b, nil
}
