package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/adpick/place-crawler/internal/crawl"
)

// ErrClientNotFound is returned when no client exists for an ID.
var ErrClientNotFound = errors.New("client not found")

// ClientStore is an in-memory client aggregate with tag merging.
type ClientStore struct {
	mu      sync.RWMutex
	clients map[string]crawl.Client
}

// NewClientStore constructs a ClientStore.
func NewClientStore() *ClientStore {
	return &ClientStore{clients: make(map[string]crawl.Client)}
}

// PutClient seeds or replaces a client. Test/dev helper.
func (s *ClientStore) PutClient(client crawl.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	client.Tags = append([]string(nil), client.Tags...)
	s.clients[client.ID] = client
}

// GetClient fetches a client by ID.
func (s *ClientStore) GetClient(_ context.Context, clientID string) (crawl.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	client, ok := s.clients[clientID]
	if !ok {
		return crawl.Client{}, fmt.Errorf("%w: %s", ErrClientNotFound, clientID)
	}
	client.Tags = append([]string(nil), client.Tags...)
	return client, nil
}

// MergeTags unions tags into the client's tag set under the store lock.
// Existing tags are never removed and duplicates are never introduced.
func (s *ClientStore) MergeTags(_ context.Context, clientID string, tags []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	client, ok := s.clients[clientID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrClientNotFound, clientID)
	}
	seen := make(map[string]struct{}, len(client.Tags)+len(tags))
	merged := make([]string, 0, len(client.Tags)+len(tags))
	for _, t := range client.Tags {
		if _, dup := seen[t]; !dup {
			seen[t] = struct{}{}
			merged = append(merged, t)
		}
	}
	for _, t := range tags {
		if _, dup := seen[t]; !dup {
			seen[t] = struct{}{}
			merged = append(merged, t)
		}
	}
	sort.Strings(merged)
	client.Tags = merged
	s.clients[clientID] = client
	return nil
}
