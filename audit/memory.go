package audit

import (
	"context"
	"sync"

	"github.com/BaSui01/agentcore/orchestrator"
)

// MemoryStore is an in-memory Store for development and testing.
type MemoryStore struct {
	mu      sync.RWMutex
	results map[string]*orchestrator.TaskResult
	order   []string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{results: make(map[string]*orchestrator.TaskResult)}
}

// SaveResult persists one task result.
func (s *MemoryStore) SaveResult(ctx context.Context, result *orchestrator.TaskResult) error {
	if result == nil || result.TaskID == "" {
		return ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.results[result.TaskID]; !exists {
		s.order = append(s.order, result.TaskID)
	}
	s.results[result.TaskID] = result
	return nil
}

// GetResult returns the result stored under taskID.
func (s *MemoryStore) GetResult(ctx context.Context, taskID string) (*orchestrator.TaskResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[taskID]
	if !ok {
		return nil, ErrNotFound
	}
	return result, nil
}

// ListRecent returns up to limit results, most recent first.
func (s *MemoryStore) ListRecent(ctx context.Context, limit int) ([]*orchestrator.TaskResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.order) {
		limit = len(s.order)
	}
	out := make([]*orchestrator.TaskResult, 0, limit)
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.results[s.order[i]])
	}
	return out, nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
