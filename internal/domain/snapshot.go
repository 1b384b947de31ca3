package domain

import "time"

// BookSnapshot is an immutable copy of the standing book handed to readers.
type BookSnapshot struct {
	Bids      []Order   `json:"bids"`
	Asks      []Order   `json:"asks"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *BookSnapshot) DeepCopy() *BookSnapshot {
	cp := &BookSnapshot{
		Bids:      make([]Order, len(s.Bids)),
		Asks:      make([]Order, len(s.Asks)),
		Timestamp: s.Timestamp,
	}
	copy(cp.Bids, s.Bids)
	copy(cp.Asks, s.Asks)
	return cp
}
