package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"internhub/internal/notification/models"
	id "internhub/pkg/domain"
	"internhub/pkg/platform/sentinel"
)

// InMemory keeps notification log entries keyed by their uniqueness triple.
// The whole check-and-insert runs under one lock, matching the atomic
// insert-if-absent primitive the PostgreSQL and Redis stores get from the
// storage engine.
type InMemory struct {
	mu       sync.Mutex
	byTriple map[tripleKey]models.Entry
	byID     map[uuid.UUID]tripleKey
}

type tripleKey struct {
	subject     id.UserID
	kind        models.EventKind
	fingerprint string
}

// NewInMemory constructs an empty in-memory notification log store.
func NewInMemory() *InMemory {
	return &InMemory{
		byTriple: make(map[tripleKey]models.Entry),
		byID:     make(map[uuid.UUID]tripleKey),
	}
}

// InsertIfAbsent atomically inserts the entry unless its uniqueness triple
// already exists. Returns the stored entry and whether this call created it.
func (s *InMemory) InsertIfAbsent(_ context.Context, entry models.Entry) (*models.Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tripleKey{subject: entry.SubjectUserID, kind: entry.Kind, fingerprint: entry.Fingerprint}
	if existing, ok := s.byTriple[key]; ok {
		return &existing, false, nil
	}
	s.byTriple[key] = entry
	s.byID[entry.ID] = key
	return &entry, true, nil
}

// UpdateStatus records the delivery outcome for an existing entry.
func (s *InMemory) UpdateStatus(_ context.Context, entryID uuid.UUID, status models.DeliveryStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.byID[entryID]
	if !ok {
		return sentinel.ErrNotFound
	}
	entry := s.byTriple[key]
	entry.Status = status
	s.byTriple[key] = entry
	return nil
}

// ListBySubject returns all entries for a subject user, insertion order not
// guaranteed.
func (s *InMemory) ListBySubject(_ context.Context, subject id.UserID) ([]models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Entry
	for key, entry := range s.byTriple {
		if key.subject == subject {
			out = append(out, entry)
		}
	}
	return out, nil
}
