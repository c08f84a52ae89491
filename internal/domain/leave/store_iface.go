package leave

import "context"

// Store persists leave records keyed by request id.
type Store interface {
	// Create fails with ErrDuplicateID when the id is already taken.
	Create(ctx context.Context, req LeaveRequest) error
	Get(ctx context.Context, requestID string) (LeaveRequest, error)
	// UpdateStatus moves a PENDING record to a terminal status. It fails with
	// ErrAlreadyDecided when the record is no longer PENDING.
	UpdateStatus(ctx context.Context, requestID string, status Status) error
	Ping(ctx context.Context) error
}
