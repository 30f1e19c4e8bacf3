package audit

import (
	"context"
	"maps"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// InMemory is the append-only in-memory store used by unit tests and local
// development. It deliberately has no way to mutate or drop a record.
type InMemory struct {
	mu      sync.Mutex
	records []Record
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Append(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	// Copy the detail map so later caller mutations cannot reach the log.
	if record.Detail != nil {
		record.Detail = maps.Clone(record.Detail)
	}
	s.records = append(s.records, record)
	return nil
}

func (s *InMemory) Query(_ context.Context, filter Filter) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Record
	for _, r := range s.records {
		if filter.Matches(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Len reports the total number of appended records.
func (s *InMemory) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
