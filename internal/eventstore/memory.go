package eventstore

import (
	"context"
	"fmt"

	"farcaster-trader/internal/model"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Memory is a process-local store bounded to a fixed number of keys. The
// least recently marked keys are evicted first, after which a redelivery of
// an evicted event is treated as new.
type Memory struct {
	cache *lru.Cache[model.EventKey, struct{}]
}

// NewMemory creates a Memory store holding at most capacity keys.
func NewMemory(capacity int) (*Memory, error) {
	cache, err := lru.New[model.EventKey, struct{}](capacity)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &Memory{cache: cache}, nil
}

// CheckAndMark uses ContainsOrAdd, which holds the cache lock across the
// lookup and the insert.
func (m *Memory) CheckAndMark(_ context.Context, key model.EventKey) (bool, error) {
	found, _ := m.cache.ContainsOrAdd(key, struct{}{})
	return !found, nil
}

// Len reports the number of remembered keys.
func (m *Memory) Len() int {
	return m.cache.Len()
}

func (m *Memory) Close() error { return nil }
