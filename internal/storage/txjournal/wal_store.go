// Package txjournal keeps an append-only WAL of every transaction record change.
package txjournal

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/vadiminshakov/aegis/internal/domain"
)

const (
	defaultJournalDir   = "./wal/transactions"
	journalSegmentLimit = 1000
	journalMaxSegments  = 100
	journalKeyPrefix    = "tx_"
)

// EventKind distinguishes record insertions from in-place updates.
type EventKind string

const (
	EventAdded   EventKind = "added"
	EventUpdated EventKind = "updated"
)

// Event is a single journal entry.
type Event struct {
	Index     uint64                   `json:"index"`
	Kind      EventKind                `json:"kind"`
	Timestamp time.Time                `json:"ts"`
	Record    domain.TransactionRecord `json:"record"`
	// PreviousHash is the lookup key of an update. It differs from Record.Hash
	// when a placeholder was rewritten with the submitted hash.
	PreviousHash string `json:"previous_hash,omitempty"`
}

func (e Event) key() string {
	return fmt.Sprintf("%s%s_%s", journalKeyPrefix, e.Kind, e.Record.Hash)
}

// WALStore persists transaction events in a WAL for audit replay and streaming.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore initializes a WAL-backed journal under the provided directory.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = defaultJournalDir
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create transaction journal dir")
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "tx_",
		SegmentThreshold: journalSegmentLimit,
		MaxSegments:      journalMaxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init transaction journal WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Append writes the event and returns it with its assigned index.
func (s *WALStore) Append(event Event) (Event, error) {
	if s == nil || s.wal == nil {
		return Event{}, errors.New("transaction journal is not initialized")
	}
	if event.Record.Hash == "" {
		return Event{}, fmt.Errorf("transaction hash is required")
	}
	if event.Kind != EventAdded && event.Kind != EventUpdated {
		return Event{}, fmt.Errorf("unknown journal event kind %q", event.Kind)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	event.Index = s.wal.CurrentIndex() + 1

	payload, err := json.Marshal(event)
	if err != nil {
		return Event{}, errors.Wrap(err, "marshal transaction event")
	}

	if err := s.wal.Write(event.Index, event.key(), payload); err != nil {
		return Event{}, errors.Wrap(err, "write transaction event")
	}

	return event, nil
}

// Added records a newly inserted transaction.
func (s *WALStore) Added(rec domain.TransactionRecord) (Event, error) {
	return s.Append(Event{Kind: EventAdded, Record: rec})
}

// Updated records an update that was looked up by previousHash.
func (s *WALStore) Updated(previousHash string, rec domain.TransactionRecord) (Event, error) {
	return s.Append(Event{Kind: EventUpdated, Record: rec, PreviousHash: previousHash})
}

// RecordsAfter returns all events written after the provided WAL index, oldest first.
func (s *WALStore) RecordsAfter(index uint64) ([]Event, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("transaction journal is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.wal.CurrentIndex() <= index {
		return nil, nil
	}

	var events []Event
	for msg := range s.wal.Iterator() {
		if !strings.HasPrefix(msg.Key, journalKeyPrefix) {
			continue
		}

		var event Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return nil, errors.Wrapf(err, "decode transaction event %s", msg.Key)
		}
		if event.Index <= index {
			continue
		}

		events = append(events, event)
	}

	return events, nil
}

// Replay folds the whole journal into a most-recent-first list capped at limit.
// A non-positive limit keeps every record.
func (s *WALStore) Replay(limit int) ([]domain.TransactionRecord, error) {
	events, err := s.RecordsAfter(0)
	if err != nil {
		return nil, err
	}

	var records []domain.TransactionRecord
	for _, event := range events {
		switch event.Kind {
		case EventAdded:
			records = append([]domain.TransactionRecord{event.Record}, records...)
		case EventUpdated:
			for i := range records {
				if records[i].Hash == event.PreviousHash {
					records[i] = event.Record
					break
				}
			}
		}

		if limit > 0 && len(records) > limit {
			records = records[:limit]
		}
	}

	return records, nil
}

// CurrentIndex returns the latest WAL index stored.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("transaction journal is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
