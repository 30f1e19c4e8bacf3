// Package store holds resolved authorization contexts for the lifetime of
// their unit of work.
//
// The store is keyed by unit-of-work ID, never by connection: pooled
// connections are reused across unrelated requests, so anything keyed by
// connection would leak context between callers. Entries are discarded when
// the unit of work ends, whether it commits, rolls back, or is cancelled.
package store

import (
	"sync"

	"github.com/google/uuid"

	"tenantguard/internal/authz/models"
	"tenantguard/pkg/platform/sentinel"
)

// ContextStore records the resolved AuthContext per unit of work.
type ContextStore interface {
	// Put records the resolved context for a unit of work. Recording the
	// identical context twice is a no-op (resolution is idempotent);
	// recording a different context for the same unit of work is a
	// conflict.
	Put(uowID uuid.UUID, authCtx models.AuthContext) error
	// Get returns the resolved context for a unit of work, if any.
	Get(uowID uuid.UUID) (models.AuthContext, bool)
	// Discard removes the entry for a unit of work. Safe to call for
	// unknown IDs.
	Discard(uowID uuid.UUID)
}

// InMemory is the process-local ContextStore. Entries exist only between
// Put and Discard, so the map stays small regardless of process lifetime.
type InMemory struct {
	mu      sync.Mutex
	entries map[uuid.UUID]models.AuthContext
}

func NewInMemory() *InMemory {
	return &InMemory{entries: make(map[uuid.UUID]models.AuthContext)}
}

func (s *InMemory) Put(uowID uuid.UUID, authCtx models.AuthContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.entries[uowID]; ok {
		if existing == authCtx {
			return nil
		}
		return sentinel.ErrConflict
	}
	s.entries[uowID] = authCtx
	return nil
}

func (s *InMemory) Get(uowID uuid.UUID) (models.AuthContext, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	authCtx, ok := s.entries[uowID]
	return authCtx, ok
}

func (s *InMemory) Discard(uowID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, uowID)
}

// Len reports the number of live entries. Exposed for leak checks in tests.
func (s *InMemory) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
