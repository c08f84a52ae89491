package leave

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore keeps leave records in process memory. It is meant for tests and
// single-instance development runs.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]LeaveRequest
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]LeaveRequest), now: time.Now}
}

func (s *MemoryStore) Create(_ context.Context, req LeaveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[req.RequestID]; ok {
		return ErrDuplicateID
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = s.now().UTC()
	}
	req.UpdatedAt = req.CreatedAt
	s.items[req.RequestID] = req
	return nil
}

func (s *MemoryStore) Get(_ context.Context, requestID string) (LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.items[requestID]
	if !ok {
		return LeaveRequest{}, ErrNotFound
	}
	return req, nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, requestID string, status Status) error {
	if !status.Terminal() {
		return fmt.Errorf("update status: %s is not a terminal status", status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.items[requestID]
	if !ok {
		return ErrNotFound
	}
	if req.Status != StatusPending {
		return ErrAlreadyDecided
	}
	now := s.now().UTC()
	req.Status = status
	req.UpdatedAt = now
	req.DecidedAt = &now
	s.items[requestID] = req
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

// Len reports how many records are held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
