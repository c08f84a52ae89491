package workflow

import (
	"context"
	"encoding/json"
)

type ExecutionStore interface {
	Create(ctx context.Context, exec Execution) error
	Get(ctx context.Context, id string) (Execution, error)
	// SetWaiting parks a RUNNING execution on step with the hash of its task secret.
	SetWaiting(ctx context.Context, id string, step int, tokenHash string) error
	// ClaimTask atomically moves a WAITING execution to RESUMED and records the
	// task output. Exactly one concurrent caller succeeds; the others get
	// ErrTaskAlreadyResumed.
	ClaimTask(ctx context.Context, id string, output json.RawMessage) error
	Advance(ctx context.Context, id string, step int, output json.RawMessage) error
	Finish(ctx context.Context, id string, status Status, output json.RawMessage, errMsg string) error
	// ListActive returns the RUNNING and RESUMED executions, oldest first.
	ListActive(ctx context.Context) ([]Execution, error)
}
