package workflow

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"leaveflow/internal/platform/db"
)

// PostgresStore persists executions in the workflow_executions table.
type PostgresStore struct {
	DB db.Querier
}

func NewPostgresStore(q db.Querier) *PostgresStore {
	return &PostgresStore{DB: q}
}

func (s *PostgresStore) Create(ctx context.Context, exec Execution) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO workflow_executions (id, workflow_id, status, step_index, input_json)
    VALUES ($1,$2,$3,$4,$5)
  `, exec.ID, exec.WorkflowID, string(exec.Status), exec.StepIndex, []byte(exec.Input))
	return err
}

const executionColumns = `id, workflow_id, status, step_index, input_json, output_json, task_token_hash, error, created_at, updated_at`

func (s *PostgresStore) Get(ctx context.Context, id string) (Execution, error) {
	exec, err := scanExecution(s.DB.QueryRow(ctx, `
    SELECT `+executionColumns+`
    FROM workflow_executions
    WHERE id = $1
  `, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Execution{}, ErrExecutionNotFound
	}
	return exec, err
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]Execution, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+executionColumns+`
    FROM workflow_executions
    WHERE status IN ($1, $2)
    ORDER BY created_at
  `, string(StatusRunning), string(StatusResumed))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Execution
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, exec)
	}
	return out, rows.Err()
}

func scanExecution(row pgx.Row) (Execution, error) {
	var exec Execution
	var status string
	var input, output []byte
	var tokenHash, errMsg *string
	err := row.Scan(&exec.ID, &exec.WorkflowID, &status, &exec.StepIndex, &input, &output, &tokenHash, &errMsg, &exec.CreatedAt, &exec.UpdatedAt)
	if err != nil {
		return Execution{}, err
	}
	exec.Status = Status(status)
	exec.Input = input
	exec.Output = output
	if tokenHash != nil {
		exec.TaskTokenHash = *tokenHash
	}
	if errMsg != nil {
		exec.Error = *errMsg
	}
	return exec, nil
}

func (s *PostgresStore) SetWaiting(ctx context.Context, id string, step int, tokenHash string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE workflow_executions
    SET status = $2, step_index = $3, task_token_hash = $4, updated_at = now()
    WHERE id = $1 AND status = $5
  `, id, string(StatusWaiting), step, tokenHash, string(StatusRunning))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotWaiting
	}
	return nil
}

func (s *PostgresStore) ClaimTask(ctx context.Context, id string, output json.RawMessage) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE workflow_executions
    SET status = $2, output_json = $4, task_token_hash = NULL, updated_at = now()
    WHERE id = $1 AND status = $3
  `, id, string(StatusResumed), string(StatusWaiting), nullJSON(output))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskAlreadyResumed
	}
	return nil
}

func (s *PostgresStore) Advance(ctx context.Context, id string, step int, output json.RawMessage) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE workflow_executions
    SET status = $2, step_index = $3, output_json = $4, updated_at = now()
    WHERE id = $1
  `, id, string(StatusRunning), step, nullJSON(output))
	return err
}

func (s *PostgresStore) Finish(ctx context.Context, id string, status Status, output json.RawMessage, errMsg string) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE workflow_executions
    SET status = $2, output_json = COALESCE($3, output_json), error = NULLIF($4, ''), task_token_hash = NULL, updated_at = now()
    WHERE id = $1
  `, id, string(status), nullJSON(output), errMsg)
	return err
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
