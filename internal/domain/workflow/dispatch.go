package workflow

import "context"

// Dispatcher runs workflow steps off the caller's path. jobs.Service satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, name, key string, run func(context.Context) error) error
}

// InlineDispatcher runs each step on the calling goroutine.
type InlineDispatcher struct{}

func (InlineDispatcher) Dispatch(ctx context.Context, _, _ string, run func(context.Context) error) error {
	_ = run(ctx)
	return nil
}
