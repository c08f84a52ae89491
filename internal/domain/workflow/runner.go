package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"leaveflow/internal/domain/auth"
	"leaveflow/internal/requestctx"
)

// Engine is the durable orchestrator behind the approval protocol.
type Engine interface {
	Start(ctx context.Context, workflowID string, input json.RawMessage) (string, error)
	Resume(ctx context.Context, taskToken string, output json.RawMessage) error
}

type Option func(*Runner)

// WithRetry bounds step attempts; attempt n waits n*backoff before retrying.
func WithRetry(maxAttempts int, backoff time.Duration) Option {
	return func(r *Runner) {
		if maxAttempts > 0 {
			r.maxAttempts = maxAttempts
		}
		if backoff >= 0 {
			r.backoff = backoff
		}
	}
}

func WithIDs(newID func() string) Option {
	return func(r *Runner) { r.newID = newID }
}

// Runner executes registered definitions step by step, parking executions on
// wait-for-task steps until Resume is called with the matching task token.
type Runner struct {
	store      ExecutionStore
	dispatcher Dispatcher

	mu   sync.RWMutex
	defs map[string]Definition

	maxAttempts int
	backoff     time.Duration
	newID       func() string
	newSecret   func() string
}

func NewRunner(store ExecutionStore, dispatcher Dispatcher, opts ...Option) *Runner {
	if dispatcher == nil {
		dispatcher = InlineDispatcher{}
	}
	r := &Runner{
		store:       store,
		dispatcher:  dispatcher,
		defs:        make(map[string]Definition),
		maxAttempts: 3,
		backoff:     time.Second,
		newID:       uuid.NewString,
		newSecret:   func() string { return uuid.NewString() + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) Register(def Definition) error {
	if def.ID == "" {
		return errors.New("workflow id required")
	}
	if len(def.Steps) == 0 {
		return fmt.Errorf("workflow %s: no steps", def.ID)
	}
	for i, step := range def.Steps {
		if step.Run == nil {
			return fmt.Errorf("workflow %s: step %d has no run func", def.ID, i)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[def.ID] = def
	return nil
}

func (r *Runner) definition(id string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[id]
	return def, ok
}

// Execution returns the current state of an execution.
func (r *Runner) Execution(ctx context.Context, id string) (Execution, error) {
	return r.store.Get(ctx, id)
}

func (r *Runner) Start(ctx context.Context, workflowID string, input json.RawMessage) (string, error) {
	def, ok := r.definition(workflowID)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownWorkflow, workflowID)
	}
	exec := Execution{
		ID:         r.newID(),
		WorkflowID: def.ID,
		Status:     StatusRunning,
		StepIndex:  0,
		Input:      input,
	}
	if err := r.store.Create(ctx, exec); err != nil {
		return "", fmt.Errorf("create execution: %w", err)
	}
	if err := r.schedule(ctx, def, exec.ID, 0, input, nil); err != nil {
		return "", err
	}
	requestctx.Logger(ctx).Info("workflow started", "workflowId", def.ID, "executionId", exec.ID)
	return exec.ID, nil
}

func (r *Runner) Resume(ctx context.Context, taskToken string, output json.RawMessage) error {
	execID, secret, err := parseTaskToken(taskToken)
	if err != nil {
		return err
	}
	exec, err := r.store.Get(ctx, execID)
	if errors.Is(err, ErrExecutionNotFound) {
		return ErrTaskNotFound
	}
	if err != nil {
		return err
	}
	def, ok := r.definition(exec.WorkflowID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownWorkflow, exec.WorkflowID)
	}
	switch exec.Status {
	case StatusWaiting:
	case StatusRunning:
		if def.Steps[exec.StepIndex].WaitForTask {
			return ErrTaskNotWaiting
		}
		return ErrTaskAlreadyResumed
	case StatusFailed:
		return ErrTaskNotWaiting
	default:
		return ErrTaskAlreadyResumed
	}
	if err := auth.CheckSecret(exec.TaskTokenHash, secret); err != nil {
		return ErrInvalidTaskToken
	}
	if err := r.store.ClaimTask(ctx, exec.ID, output); err != nil {
		return err
	}
	return r.proceed(ctx, def, exec.ID, exec.StepIndex+1, exec.Input, output)
}

// proceed moves a claimed execution past its wait step.
func (r *Runner) proceed(ctx context.Context, def Definition, execID string, next int, input, output json.RawMessage) error {
	if next >= len(def.Steps) {
		return r.store.Finish(ctx, execID, StatusSucceeded, output, "")
	}
	if err := r.store.Advance(ctx, execID, next, output); err != nil {
		return fmt.Errorf("advance execution: %w", err)
	}
	return r.schedule(ctx, def, execID, next, input, output)
}

// Recover reschedules executions left RUNNING or RESUMED by a previous
// process, typically because their step was still queued when it stopped.
// WAITING executions keep their outstanding task token and are left alone.
// Call it once at startup, before other instances could be running the same
// executions. It returns how many executions were rescheduled.
func (r *Runner) Recover(ctx context.Context) (int, error) {
	execs, err := r.store.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active executions: %w", err)
	}
	recovered := 0
	for _, exec := range execs {
		def, ok := r.definition(exec.WorkflowID)
		if !ok {
			slog.Warn("skipping execution of unregistered workflow", "workflowId", exec.WorkflowID, "executionId", exec.ID)
			continue
		}
		if exec.StepIndex < 0 || exec.StepIndex >= len(def.Steps) {
			r.fail(ctx, exec.ID, "recover", fmt.Errorf("step index %d out of range", exec.StepIndex))
			continue
		}
		switch exec.Status {
		case StatusResumed:
			err = r.proceed(ctx, def, exec.ID, exec.StepIndex+1, exec.Input, exec.Output)
		default:
			err = r.schedule(ctx, def, exec.ID, exec.StepIndex, exec.Input, exec.Output)
		}
		if err != nil {
			return recovered, fmt.Errorf("recover execution %s: %w", exec.ID, err)
		}
		slog.Info("workflow execution recovered", "workflowId", def.ID, "executionId", exec.ID, "step", exec.StepIndex, "status", exec.Status)
		recovered++
	}
	return recovered, nil
}

func (r *Runner) schedule(ctx context.Context, def Definition, execID string, idx int, input, output json.RawMessage) error {
	name := "workflow." + def.ID + "." + def.Steps[idx].Name
	err := r.dispatcher.Dispatch(ctx, name, execID, func(ctx context.Context) error {
		return r.runStep(ctx, def, execID, idx, input, output)
	})
	if err != nil {
		r.fail(context.WithoutCancel(ctx), execID, def.Steps[idx].Name, err)
		return fmt.Errorf("dispatch %s: %w", name, err)
	}
	return nil
}

func (r *Runner) runStep(ctx context.Context, def Definition, execID string, idx int, input, output json.RawMessage) error {
	for ; idx < len(def.Steps); idx++ {
		step := def.Steps[idx]
		in := StepInput{ExecutionID: execID, Input: input, Output: output}
		if step.WaitForTask {
			secret := r.newSecret()
			hash, err := auth.HashSecret(secret)
			if err != nil {
				r.fail(ctx, execID, step.Name, err)
				return err
			}
			if err := r.store.SetWaiting(ctx, execID, idx, hash); err != nil {
				r.fail(ctx, execID, step.Name, err)
				return err
			}
			in.TaskToken = formatTaskToken(execID, secret)
		}

		if err := r.attempt(ctx, step, in); err != nil {
			r.fail(ctx, execID, step.Name, err)
			return err
		}
		if step.WaitForTask {
			return nil
		}
		if idx+1 < len(def.Steps) {
			if err := r.store.Advance(ctx, execID, idx+1, output); err != nil {
				return err
			}
		}
	}
	return r.store.Finish(ctx, execID, StatusSucceeded, output, "")
}

func (r *Runner) attempt(ctx context.Context, step Step, in StepInput) error {
	var err error
	for n := 1; n <= r.maxAttempts; n++ {
		err = step.Run(ctx, in)
		if err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) || n == r.maxAttempts {
			break
		}
		slog.Warn("workflow step failed, retrying", "step", step.Name, "executionId", in.ExecutionID, "attempt", n, "err", err)
		if r.backoff > 0 {
			timer := time.NewTimer(time.Duration(n) * r.backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return err
			case <-timer.C:
			}
		}
	}
	return err
}

func (r *Runner) fail(ctx context.Context, execID, stepName string, cause error) {
	slog.Error("workflow step failed", "step", stepName, "executionId", execID, "err", cause)
	if err := r.store.Finish(ctx, execID, StatusFailed, nil, cause.Error()); err != nil {
		slog.Warn("workflow finish failed", "executionId", execID, "err", err)
	}
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks a step error as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}
