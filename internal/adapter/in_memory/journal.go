package in_memory

import (
	"sync"

	"github.com/fairdex-labs/engine/internal/port"
)

var _ port.Journal = (*Journal)(nil)

// Journal is an in-process input log for tests and ephemeral deployments.
// Sequence numbers are assigned on append in arrival order.
type Journal struct {
	mu      sync.Mutex
	records []*port.Record
}

func NewJournal() *Journal {
	return &Journal{}
}

func (j *Journal) Append(rec *port.Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	cp := *rec
	cp.Seq = uint64(len(j.records))
	j.records = append(j.records, &cp)
	return nil
}

func (j *Journal) Replay(from uint64, fn func(rec *port.Record) error) error {
	j.mu.Lock()
	records := append([]*port.Record(nil), j.records...)
	j.mu.Unlock()

	for _, rec := range records {
		if rec.Seq < from {
			continue
		}
		cp := *rec
		if err := fn(&cp); err != nil {
			return err
		}
	}
	return nil
}

func (j *Journal) Close() error { return nil }
