package core

import (
	"crypto/subtle"
	"sync"
	"time"

	"github.com/fairdex-labs/engine/internal/domain"
	"github.com/zeebo/blake3"
)

// CommitmentHash is blake3 over the canonical payload encoding followed by
// the nonce. Both sides of the protocol must use exactly this construction.
func CommitmentHash(p domain.OrderPayload, nonce []byte) [32]byte {
	h := blake3.New()
	h.Write(p.Encode())
	h.Write(nonce)
	var out [32]byte
	h.Sum(out[:0])
	return out
}

// RevealValidator is the sole gate between hidden commitments and the
// batch's candidate order set. No component reads order price or quantity
// before a reveal passes through here.
type RevealValidator struct {
	store   *CommitStore
	batchOf func(batchID uint64) (*domain.Batch, error)
	claimed sync.Map // commitment id -> struct{}, claims a successful reveal exactly once
}

func NewRevealValidator(store *CommitStore, batchOf func(batchID uint64) (*domain.Batch, error)) *RevealValidator {
	return &RevealValidator{store: store, batchOf: batchOf}
}

// Reveal checks a payload and nonce against the stored commitment. On
// success the commitment is marked revealed, irreversibly. Any failure
// leaves the commitment in its prior state.
func (v *RevealValidator) Reveal(commitmentID string, payload domain.OrderPayload, nonce []byte, now time.Time) (*domain.Commitment, error) {
	c, err := v.store.Get(commitmentID)
	if err != nil {
		return nil, err
	}

	batch, err := v.batchOf(c.BatchID)
	if err != nil {
		return nil, err
	}
	if batch.State == domain.Clearing || batch.State == domain.Settled {
		return nil, domain.ErrStaleBatch
	}
	if now.Before(batch.CommitWindowEnd) || now.After(batch.RevealWindowEnd) {
		return nil, domain.ErrRevealWindowClosed
	}
	if batch.State != domain.Revealing {
		return nil, domain.ErrRevealWindowClosed
	}
	if c.Revealed {
		return nil, domain.ErrAlreadyRevealed
	}

	want := c.Hash
	got := CommitmentHash(payload, nonce)
	if subtle.ConstantTimeCompare(want[:], got[:]) != 1 {
		return nil, domain.ErrHashMismatch
	}

	if _, loaded := v.claimed.LoadOrStore(commitmentID, struct{}{}); loaded {
		return nil, domain.ErrAlreadyRevealed
	}
	c.Revealed = true
	return c, nil
}
