package workflow

import (
	"context"
	"encoding/json"
	"time"
)

type Status string

const (
	StatusRunning   Status = "RUNNING"
	StatusWaiting   Status = "WAITING"
	StatusResumed   Status = "RESUMED"
	StatusSucceeded Status = "SUCCEEDED"
	StatusFailed    Status = "FAILED"
)

type Execution struct {
	ID            string          `json:"id"`
	WorkflowID    string          `json:"workflowId"`
	Status        Status          `json:"status"`
	StepIndex     int             `json:"stepIndex"`
	Input         json.RawMessage `json:"input"`
	Output        json.RawMessage `json:"output,omitempty"`
	TaskTokenHash string          `json:"-"`
	Error         string          `json:"error,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// StepInput is handed to every step. TaskToken is only set for steps that
// wait for an external decision; Output carries the previous step's output or
// the payload a task was resumed with.
type StepInput struct {
	ExecutionID string
	Input       json.RawMessage
	Output      json.RawMessage
	TaskToken   string
}

type StepFunc func(ctx context.Context, in StepInput) error

type Step struct {
	Name string
	// WaitForTask suspends the execution after Run succeeds until Resume is
	// called with the task token Run received.
	WaitForTask bool
	Run         StepFunc
}

type Definition struct {
	ID    string
	Steps []Step
}
