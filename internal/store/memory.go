package store

import (
	"context"
	"sync"

	"github.com/amishk599/cvvin/internal/model"
)

var (
	_ model.KVStore     = (*MemoryStore)(nil)
	_ model.ResultStore = (*MemoryStore)(nil)
)

// MemoryStore keeps values in process memory. Used for --ephemeral runs,
// where nothing should outlive the process, and in tests.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *MemoryStore) SaveResult(ctx context.Context, result model.MatchResult) error {
	return saveResult(ctx, s, result)
}

func (s *MemoryStore) LatestResult(ctx context.Context) (*model.MatchResult, error) {
	return latestResult(ctx, s)
}

func (s *MemoryStore) Close() error { return nil }
