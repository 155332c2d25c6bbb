package statuslog

import (
	"context"
	"sync"

	"internhub/internal/workflow/models"
	id "internhub/pkg/domain"
)

// InMemory is an append-only status log for unit tests and local
// development. Entries are never mutated after Append.
type InMemory struct {
	mu      sync.RWMutex
	entries map[id.ApplicationID][]models.StatusLogEntry
}

// NewInMemory constructs an empty in-memory log.
func NewInMemory() *InMemory {
	return &InMemory{entries: make(map[id.ApplicationID][]models.StatusLogEntry)}
}

// Append records one transition.
func (s *InMemory) Append(_ context.Context, entry models.StatusLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.ApplicationID] = append(s.entries[entry.ApplicationID], entry)
	return nil
}

// ListByApplication returns the entries for one application in append order.
func (s *InMemory) ListByApplication(_ context.Context, appID id.ApplicationID) ([]models.StatusLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.StatusLogEntry{}, s.entries[appID]...), nil
}
