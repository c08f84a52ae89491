package workflow

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps executions purely in memory; useful for unit tests and
// single-instance deployments.
type MemoryStore struct {
	mu    sync.RWMutex
	execs map[string]Execution
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{execs: make(map[string]Execution)}
}

func (s *MemoryStore) Create(_ context.Context, exec Execution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	exec.CreatedAt, exec.UpdatedAt = now, now
	s.execs[exec.ID] = exec
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	exec, ok := s.execs[id]
	if !ok {
		return Execution{}, ErrExecutionNotFound
	}
	return exec, nil
}

func (s *MemoryStore) SetWaiting(_ context.Context, id string, step int, tokenHash string) error {
	return s.update(id, func(exec *Execution) error {
		if exec.Status != StatusRunning {
			return ErrTaskNotWaiting
		}
		exec.Status = StatusWaiting
		exec.StepIndex = step
		exec.TaskTokenHash = tokenHash
		return nil
	})
}

func (s *MemoryStore) ClaimTask(_ context.Context, id string, output json.RawMessage) error {
	return s.update(id, func(exec *Execution) error {
		if exec.Status != StatusWaiting {
			return ErrTaskAlreadyResumed
		}
		exec.Status = StatusResumed
		exec.Output = output
		exec.TaskTokenHash = ""
		return nil
	})
}

func (s *MemoryStore) Advance(_ context.Context, id string, step int, output json.RawMessage) error {
	return s.update(id, func(exec *Execution) error {
		exec.Status = StatusRunning
		exec.StepIndex = step
		exec.Output = output
		return nil
	})
}

func (s *MemoryStore) Finish(_ context.Context, id string, status Status, output json.RawMessage, errMsg string) error {
	return s.update(id, func(exec *Execution) error {
		exec.Status = status
		if output != nil {
			exec.Output = output
		}
		exec.Error = errMsg
		exec.TaskTokenHash = ""
		return nil
	})
}

func (s *MemoryStore) ListActive(_ context.Context) ([]Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Execution
	for _, exec := range s.execs {
		if exec.Status == StatusRunning || exec.Status == StatusResumed {
			out = append(out, exec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) update(id string, fn func(*Execution) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exec, ok := s.execs[id]
	if !ok {
		return ErrExecutionNotFound
	}
	if err := fn(&exec); err != nil {
		return err
	}
	exec.UpdatedAt = time.Now().UTC()
	s.execs[id] = exec
	return nil
}
