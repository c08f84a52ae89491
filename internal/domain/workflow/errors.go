package workflow

import "errors"

var (
	ErrUnknownWorkflow    = errors.New("unknown workflow")
	ErrExecutionNotFound  = errors.New("execution not found")
	ErrInvalidTaskToken   = errors.New("invalid task token")
	ErrTaskNotFound       = errors.New("task not found")
	ErrTaskAlreadyResumed = errors.New("task already resumed")
	ErrTaskNotWaiting     = errors.New("task is not waiting for a decision")
)
