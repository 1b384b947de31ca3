package journal

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/fairdex-labs/engine/internal/port"
)

var _ port.Journal = (*PebbleJournal)(nil)

// PebbleJournal is the append-only input log. Keys are the record sequence
// number encoded big-endian so iteration order is replay order. Sequence
// numbers are assigned here on append and resume past the last stored key
// on reopen.
type PebbleJournal struct {
	db *pebble.DB

	mu   sync.Mutex
	next uint64
}

func Open(dir string) (*PebbleJournal, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	j := &PebbleJournal{db: db}

	iter, err := db.NewIter(nil)
	if err != nil {
		db.Close()
		return nil, err
	}
	if iter.Last() && iter.Valid() {
		j.next = binary.BigEndian.Uint64(iter.Key()) + 1
	}
	if err := iter.Close(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}

func (j *PebbleJournal) Append(rec *port.Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	cp := *rec
	cp.Seq = j.next
	b, err := json.Marshal(&cp)
	if err != nil {
		return err
	}
	if err := j.db.Set(seqKey(cp.Seq), b, pebble.Sync); err != nil {
		return err
	}
	j.next++
	return nil
}

func (j *PebbleJournal) Replay(from uint64, fn func(rec *port.Record) error) error {
	iter, err := j.db.NewIter(&pebble.IterOptions{LowerBound: seqKey(from)})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		var rec port.Record
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			return fmt.Errorf("journal record %d: %w", binary.BigEndian.Uint64(iter.Key()), err)
		}
		if err := fn(&rec); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (j *PebbleJournal) Close() error {
	return j.db.Close()
}
