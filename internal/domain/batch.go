package domain

import "time"

type BatchState string

const (
	Committing BatchState = "COMMITTING"
	Revealing  BatchState = "REVEALING"
	Clearing   BatchState = "CLEARING"
	Settled    BatchState = "SETTLED"
)

// Batch is one auction round. Its lifecycle is strictly linear:
// Committing -> Revealing -> Clearing -> Settled. Batch ids are never reused.
type Batch struct {
	ID              uint64     `json:"id"`
	CommitWindowEnd time.Time  `json:"commit_window_end"`
	RevealWindowEnd time.Time  `json:"reveal_window_end"`
	State           BatchState `json:"state"`
	ClearingPrice   int64      `json:"clearing_price"`
	HasClearing     bool       `json:"has_clearing"`
	MatchedVolume   int64      `json:"matched_volume"`
}
