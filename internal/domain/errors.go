package domain

import "errors"

// Admission errors: rejected synchronously at submission, never partially
// applied.
var (
	ErrDuplicateCommitment = errors.New("duplicate commitment for trader and batch")
	ErrInsufficientStake   = errors.New("stake below minimum")
	ErrBatchClosed         = errors.New("batch is not accepting commitments")
)

// Reveal errors: the commitment keeps its prior state. Stake is forfeited
// only by the scheduler's deadline sweep, never by a failed reveal.
var (
	ErrHashMismatch       = errors.New("revealed payload does not match commitment hash")
	ErrAlreadyRevealed    = errors.New("commitment already revealed")
	ErrRevealWindowClosed = errors.New("reveal window is closed")
)

// Matching errors: the offending order is excluded, other orders' matches
// are unaffected.
var (
	ErrInvalidOrderType = errors.New("unsupported order type")
	ErrZeroQuantity     = errors.New("order quantity must be positive")
	ErrStaleBatch       = errors.New("order references a non-current batch")
	ErrNoCrossingPrice  = errors.New("no crossing price for batch")
	ErrAlreadyMatched   = errors.New("order already matched")
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrCommitmentNotFound = errors.New("commitment not found")
	ErrBatchNotFound      = errors.New("batch not found")
)

// ErrCrossedBook signals a fatal invariant violation: batch clearing must
// halt rather than emit a possibly inconsistent trade stream.
var ErrCrossedBook = errors.New("order book crossed after matching pass")
