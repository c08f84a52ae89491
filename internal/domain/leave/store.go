package leave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"leaveflow/internal/platform/db"
)

const uniqueViolation = "23505"

// PostgresStore keeps leave records in a single table whose name comes from
// deployment configuration.
type PostgresStore struct {
	DB    db.Querier
	table string
}

func NewPostgresStore(q db.Querier, table string) *PostgresStore {
	return &PostgresStore{DB: q, table: pgx.Identifier{table}.Sanitize()}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.DB.Exec(ctx, fmt.Sprintf(`
    CREATE TABLE IF NOT EXISTS %s (
      request_id     TEXT PRIMARY KEY,
      user_email     TEXT NOT NULL,
      approver_email TEXT NOT NULL,
      leave_type     TEXT NOT NULL,
      start_date     TEXT NOT NULL,
      end_date       TEXT NOT NULL,
      reason         TEXT NOT NULL,
      status         TEXT NOT NULL,
      created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
      updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
      decided_at     TIMESTAMPTZ
    )
  `, s.table))
	return err
}

func (s *PostgresStore) Create(ctx context.Context, req LeaveRequest) error {
	_, err := s.DB.Exec(ctx, fmt.Sprintf(`
    INSERT INTO %s (request_id, user_email, approver_email, leave_type, start_date, end_date, reason, status, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$9)
  `, s.table), req.RequestID, req.UserEmail, req.ApproverEmail, req.LeaveType, req.StartDate, req.EndDate, req.Reason, string(req.Status), req.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateID
	}
	return err
}

func (s *PostgresStore) Get(ctx context.Context, requestID string) (LeaveRequest, error) {
	var out LeaveRequest
	var status string
	err := s.DB.QueryRow(ctx, fmt.Sprintf(`
    SELECT request_id, user_email, approver_email, leave_type, start_date, end_date, reason, status, created_at, updated_at, decided_at
    FROM %s
    WHERE request_id = $1
  `, s.table), requestID).Scan(&out.RequestID, &out.UserEmail, &out.ApproverEmail, &out.LeaveType, &out.StartDate, &out.EndDate, &out.Reason, &status, &out.CreatedAt, &out.UpdatedAt, &out.DecidedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return LeaveRequest{}, ErrNotFound
	}
	if err != nil {
		return LeaveRequest{}, err
	}
	out.Status = Status(status)
	return out, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, requestID string, status Status) error {
	if !status.Terminal() {
		return fmt.Errorf("update status: %s is not a terminal status", status)
	}
	now := time.Now().UTC()
	tag, err := s.DB.Exec(ctx, fmt.Sprintf(`
    UPDATE %s
    SET status = $2, decided_at = $3, updated_at = $3
    WHERE request_id = $1 AND status = $4
  `, s.table), requestID, string(status), now, string(StatusPending))
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	if _, err := s.Get(ctx, requestID); err != nil {
		return err
	}
	return ErrAlreadyDecided
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	var one int
	return s.DB.QueryRow(ctx, "SELECT 1").Scan(&one)
}
