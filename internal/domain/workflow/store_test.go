package workflow

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leaveflow/internal/platform/db"
)

func exerciseStore(t *testing.T, store ExecutionStore) {
	t.Helper()
	ctx := context.Background()
	id := uuid.NewString()

	require.NoError(t, store.Create(ctx, Execution{ID: id, WorkflowID: "approval", Status: StatusRunning, Input: json.RawMessage(`{"a":1}`)}))
	_, err := store.Get(ctx, "missing-"+id)
	assert.ErrorIs(t, err, ErrExecutionNotFound)

	require.NoError(t, store.SetWaiting(ctx, id, 0, "hash"))
	assert.ErrorIs(t, store.SetWaiting(ctx, id, 0, "hash"), ErrTaskNotWaiting)

	exec, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusWaiting, exec.Status)
	assert.Equal(t, "hash", exec.TaskTokenHash)
	assert.JSONEq(t, `{"a":1}`, string(exec.Input))

	active, err := store.ListActive(ctx)
	require.NoError(t, err)
	assert.NotContains(t, executionIDs(active), id)

	require.NoError(t, store.ClaimTask(ctx, id, json.RawMessage(`{"approvalStatus":"APPROVED"}`)))
	assert.ErrorIs(t, store.ClaimTask(ctx, id, nil), ErrTaskAlreadyResumed)

	exec, err = store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusResumed, exec.Status)
	assert.JSONEq(t, `{"approvalStatus":"APPROVED"}`, string(exec.Output))
	active, err = store.ListActive(ctx)
	require.NoError(t, err)
	assert.Contains(t, executionIDs(active), id)

	require.NoError(t, store.Advance(ctx, id, 1, json.RawMessage(`{"approvalStatus":"APPROVED"}`)))
	require.NoError(t, store.Finish(ctx, id, StatusSucceeded, nil, ""))

	exec, err = store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, exec.Status)
	assert.Equal(t, 1, exec.StepIndex)
	assert.Empty(t, exec.TaskTokenHash)
	assert.JSONEq(t, `{"approvalStatus":"APPROVED"}`, string(exec.Output))

	active, err = store.ListActive(ctx)
	require.NoError(t, err)
	assert.NotContains(t, executionIDs(active), id)
}

func executionIDs(execs []Execution) []string {
	ids := make([]string, 0, len(execs))
	for _, exec := range execs {
		ids = append(ids, exec.ID)
	}
	return ids
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestPostgresStore(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.Connect(ctx, dbURL)
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, db.Migrate(ctx, pool))

	exerciseStore(t, NewPostgresStore(pool))
}
