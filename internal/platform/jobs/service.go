package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"sync"

	"leaveflow/internal/platform/db"
)

var (
	ErrQueueFull = errors.New("job queue full")
	ErrStopped   = errors.New("job service stopped")
)

// Recorder keeps an audit row per job run.
type Recorder interface {
	Begin(ctx context.Context, jobType, key string) (string, error)
	Finish(ctx context.Context, runID, status string, details any) error
}

type Service struct {
	recorder Recorder
	workers  int
	queue    chan job
	wg       sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

type job struct {
	Type string
	Key  string
	Run  func(context.Context) (any, error)
}

func New(recorder Recorder, workers, queueSize int) *Service {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 128
	}
	return &Service{
		recorder: recorder,
		workers:  workers,
		queue:    make(chan job, queueSize),
	}
}

// Start launches the worker pool. Workers stop when ctx is cancelled or, after
// Shutdown, once the queue is empty.
func (s *Service) Start(ctx context.Context) {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.worker(ctx)
		}()
	}
}

// Wait blocks until every worker has returned.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Shutdown stops accepting jobs and waits until the workers have run every
// queued job, or until ctx is done.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		slog.Warn("job queue not drained before shutdown deadline", "pending", len(s.queue))
		return ctx.Err()
	}
}

func (s *Service) Enqueue(jobType, key string, run func(context.Context) (any, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStopped
	}
	select {
	case s.queue <- job{Type: jobType, Key: key, Run: run}:
		return nil
	default:
		slog.Warn("job queue full", "jobType", jobType, "key", key)
		return ErrQueueFull
	}
}

// Dispatch queues run for a worker; it does not wait for run to finish.
func (s *Service) Dispatch(_ context.Context, name, key string, run func(context.Context) error) error {
	return s.Enqueue(name, key, func(ctx context.Context) (any, error) {
		return nil, run(ctx)
	})
}

func (s *Service) RunNow(ctx context.Context, jobType, key string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Key: key, Run: run})
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-s.queue:
			if !ok {
				return
			}
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "key", j.Key, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID, err := s.recorder.Begin(ctx, j.Type, j.Key)
	if err != nil {
		slog.Warn("job run insert failed", "err", err)
	}

	details, err := j.Run(ctx)
	status := "completed"
	if err != nil {
		status = "failed"
		details = map[string]any{"error": err.Error(), "details": details}
	}
	if runID != "" {
		if updErr := s.recorder.Finish(ctx, runID, status, details); updErr != nil {
			slog.Warn("job run update failed", "err", updErr)
		}
	}
	return details, err
}

type nopRecorder struct{}

func (nopRecorder) Begin(context.Context, string, string) (string, error) { return "", nil }

func (nopRecorder) Finish(context.Context, string, string, any) error { return nil }

// PostgresRecorder writes job runs to the job_runs table.
type PostgresRecorder struct {
	DB db.Querier
}

func NewPostgresRecorder(q db.Querier) *PostgresRecorder {
	return &PostgresRecorder{DB: q}
}

func (r *PostgresRecorder) Begin(ctx context.Context, jobType, key string) (string, error) {
	var id int64
	if err := r.DB.QueryRow(ctx, `
    INSERT INTO job_runs (job_type, job_key, status)
    VALUES ($1,$2,$3)
    RETURNING id
  `, jobType, key, "running").Scan(&id); err != nil {
		return "", err
	}
	return strconv.FormatInt(id, 10), nil
}

func (r *PostgresRecorder) Finish(ctx context.Context, runID, status string, details any) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		slog.Warn("job details marshal failed", "err", err)
		detailsJSON = []byte("{}")
	}
	_, err = r.DB.Exec(ctx, `
    UPDATE job_runs
    SET status = $1, details_json = $2, completed_at = now()
    WHERE id = $3
  `, status, detailsJSON, runID)
	return err
}
