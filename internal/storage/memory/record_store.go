package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/adpick/place-crawler/internal/crawl"
)

// RecordStore is an in-memory, append-only crawl record store.
type RecordStore struct {
	mu      sync.RWMutex
	records []crawl.Record
	byID    map[string]struct{}
}

// NewRecordStore constructs a RecordStore.
func NewRecordStore() *RecordStore {
	return &RecordStore{byID: make(map[string]struct{})}
}

// SaveRecord appends one record. Duplicate IDs are rejected.
func (s *RecordStore) SaveRecord(_ context.Context, record crawl.Record) error {
	if record.ID == "" {
		return errors.New("record id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[record.ID]; exists {
		return errors.New("record already exists")
	}
	s.byID[record.ID] = struct{}{}
	s.records = append(s.records, record)
	return nil
}

// ListRecords returns the records for one client, newest first.
func (s *RecordStore) ListRecords(_ context.Context, clientID string) ([]crawl.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []crawl.Record
	for _, r := range s.records {
		if r.ClientID == clientID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Len reports the number of stored records. Test helper.
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
