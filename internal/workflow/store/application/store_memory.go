package application

import (
	"context"
	"sort"
	"sync"
	"time"

	"internhub/internal/workflow/models"
	id "internhub/pkg/domain"
	"internhub/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded application store for unit tests and local
// development. It returns copies so callers never share mutable state with
// the store.
//
// Mutual exclusion for check-and-update sequences comes from the service's
// transactional boundary (StoreTx), not from this store; the internal mutex
// only protects map integrity.
type InMemory struct {
	mu   sync.RWMutex
	apps map[id.ApplicationID]models.Application
}

// NewInMemory constructs an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{apps: make(map[id.ApplicationID]models.Application)}
}

// Create inserts the application, enforcing one live application per
// (applicant, opportunity) pair. Returns sentinel.ErrConflict when a live
// duplicate exists.
func (s *InMemory) Create(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.apps {
		if existing.ApplicantID == app.ApplicantID &&
			existing.OpportunityID == app.OpportunityID &&
			existing.IsLive() {
			return sentinel.ErrConflict
		}
	}
	s.apps[app.ID] = *app
	return nil
}

// FindByID returns a copy of the application or sentinel.ErrNotFound.
func (s *InMemory) FindByID(_ context.Context, appID id.ApplicationID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	app, ok := s.apps[appID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &app, nil
}

// FindByIDForUpdate behaves like FindByID. Row locking is meaningless in
// memory; the StoreTx mutex held by the caller provides the critical
// section.
func (s *InMemory) FindByIDForUpdate(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	return s.FindByID(ctx, appID)
}

// Update persists a mutated application or returns sentinel.ErrNotFound.
func (s *InMemory) Update(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.apps[app.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.apps[app.ID] = *app
	return nil
}

// ListByStatusCreatedBefore returns applications in the given status created
// strictly before the cutoff, oldest first. Feeds the stale-application
// sweep.
func (s *InMemory) ListByStatusCreatedBefore(_ context.Context, status models.Status, cutoff time.Time) ([]*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Application
	for _, app := range s.apps {
		if app.Status == status && app.CreatedAt.Before(cutoff) {
			copied := app
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
