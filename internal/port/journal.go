package port

import "time"

// RecordType tags a journaled input.
type RecordType string

const (
	RecordCommit RecordType = "commit"
	RecordReveal RecordType = "reveal"
	RecordOrder  RecordType = "order"
	RecordCancel RecordType = "cancel"
	RecordTick   RecordType = "tick"
)

// Record is one entry in the append-only input journal. Replaying a journal
// through a fresh engine must reproduce an identical trade stream.
type Record struct {
	Seq     uint64     `json:"seq"`
	Type    RecordType `json:"type"`
	Time    time.Time  `json:"time"`
	Payload []byte     `json:"payload,omitempty"`
}

type Journal interface {
	Append(rec *Record) error
	Replay(from uint64, fn func(rec *Record) error) error
	Close() error
}
