package leave

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"leaveflow/internal/platform/db"
)

func exerciseLeaveStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	id := fmt.Sprintf("LEAVE-%d", time.Now().UnixNano())
	req := LeaveRequest{
		RequestID:     id,
		UserEmail:     "alice@example.com",
		ApproverEmail: "boss@example.com",
		LeaveType:     "Annual",
		StartDate:     "2024-07-01",
		EndDate:       "2024-07-05",
		Reason:        DefaultReason,
		Status:        StatusPending,
		CreatedAt:     time.Now().UTC(),
	}

	if err := store.Create(ctx, req); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, req); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	if _, err := store.Get(ctx, id+"0"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	got, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusPending || got.UserEmail != req.UserEmail || got.DecidedAt != nil {
		t.Fatalf("unexpected record %+v", got)
	}

	if err := store.UpdateStatus(ctx, id, StatusPending); err == nil {
		t.Fatal("expected error for non-terminal status")
	}
	if err := store.UpdateStatus(ctx, id, StatusApproved); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := store.UpdateStatus(ctx, id, StatusRejected); !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("expected ErrAlreadyDecided, got %v", err)
	}
	if err := store.UpdateStatus(ctx, id+"0", StatusRejected); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	got, err = store.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusApproved || got.DecidedAt == nil {
		t.Fatalf("expected decided APPROVED record, got %+v", got)
	}
	if err := store.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestMemoryLeaveStore(t *testing.T) {
	exerciseLeaveStore(t, NewMemoryStore())
}

func TestPostgresLeaveStore(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.Connect(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	store := NewPostgresStore(pool, "leave_requests_test")
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	exerciseLeaveStore(t, store)
}
