package store

import (
	"context"
	"sync"
	"time"

	"github.com/bpaauwe/WeatherServicePrototype/internal/domain"
)

// MemoryStore is a concurrency-safe in-memory driver store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: node address, value: records by driver id
	data map[string]map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]Record)}
}

// Save upserts each value for address.
func (s *MemoryStore) Save(_ context.Context, address string, values []domain.DriverValue, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	drivers, ok := s.data[address]
	if !ok {
		drivers = make(map[string]Record)
		s.data[address] = drivers
	}
	for _, v := range values {
		drivers[v.Driver] = Record{Driver: v.Driver, Value: v.Value, UOM: v.UOM, UpdatedAt: at.UTC()}
	}
	return nil
}

// Load returns every stored record for address in schema order.
func (s *MemoryStore) Load(_ context.Context, address string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	drivers, ok := s.data[address]
	if !ok || len(drivers) == 0 {
		return nil, ErrNotFound
	}

	out := make([]Record, 0, len(drivers))
	for _, r := range drivers {
		out = append(out, r)
	}
	sortRecords(out)
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
