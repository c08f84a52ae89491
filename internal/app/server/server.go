package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	"leaveflow/internal/domain/auth"
	"leaveflow/internal/domain/leave"
	"leaveflow/internal/domain/workflow"
	"leaveflow/internal/platform/config"
	"leaveflow/internal/platform/db"
	"leaveflow/internal/platform/email"
	"leaveflow/internal/platform/jobs"
	"leaveflow/internal/platform/metrics"
	"leaveflow/internal/transport/http/api"
	leavehandler "leaveflow/internal/transport/http/handlers/leave"
	"leaveflow/internal/transport/http/middleware"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	Config   config.Config
	DB       *db.Pool
	Router   http.Handler
	Protocol *leave.Protocol
	Runner   *workflow.Runner
	Jobs     *jobs.Service
	Tokens   *auth.Issuer
	Metrics  *metrics.Collector

	stopWorkers context.CancelFunc
}

// New wires the service from cfg and starts the workflow workers. Callers
// must Close the returned App.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &App{Config: cfg, Metrics: metrics.New()}

	var (
		leaveStore leave.Store
		execStore  workflow.ExecutionStore
		recorder   jobs.Recorder
	)
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		app.DB = pool
		if cfg.RunMigrations {
			if err := db.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		pgStore := leave.NewPostgresStore(pool, cfg.TableName)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ensure %s: %w", cfg.TableName, err)
		}
		leaveStore = pgStore
		execStore = workflow.NewPostgresStore(pool)
		recorder = jobs.NewPostgresRecorder(pool)
	default:
		slog.Warn("using in-memory store; data is lost on restart")
		leaveStore = leave.NewMemoryStore()
		execStore = workflow.NewMemoryStore()
	}

	tokens, err := auth.NewIssuer(cfg.JWTSecret)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Tokens = tokens

	app.Jobs = jobs.New(recorder, cfg.WorkflowWorkers, cfg.WorkflowQueueSize)
	app.Runner = workflow.NewRunner(execStore, app.Jobs,
		workflow.WithRetry(cfg.WorkflowMaxAttempts, cfg.WorkflowRetryBackoff))

	protocol, err := leave.NewProtocol(leave.Dependencies{
		Store:   leaveStore,
		Mailer:  email.New(cfg),
		Tokens:  tokens,
		Engine:  app.Runner,
		Metrics: app.Metrics,
	}, leave.Options{
		Strategy:         cfg.ApprovalStrategy,
		SenderAddress:    cfg.EmailFrom,
		ApproverAddress:  cfg.ApproverEmail,
		WorkflowID:       cfg.WorkflowID,
		DashboardURL:     cfg.DashboardURL,
		DecisionLinkAuth: cfg.DecisionLinkAuth,
		DecisionLinkTTL:  cfg.DecisionLinkTTL,
	})
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Protocol = protocol
	if err := app.Runner.Register(protocol.Definition(cfg.WorkflowID)); err != nil {
		app.Close()
		return nil, err
	}

	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	app.stopWorkers = cancel
	app.Jobs.Start(workerCtx)

	recovered, err := app.Runner.Recover(ctx)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("recover workflows: %w", err)
	}
	if recovered > 0 {
		slog.Info("rescheduled interrupted workflow executions", "count", recovered)
	}

	app.Router = app.routes()
	return app, nil
}

func (a *App) routes() http.Handler {
	cfg := a.Config
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(a.Metrics))
	router.Use(chimw.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	if len(cfg.CORSAllowedOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.SensitiveRateLimit(cfg.RateLimitPerMinute, time.Minute))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.Protocol.Ready(ctx); err != nil {
			slog.Warn("readiness check failed", "err", err)
			http.Error(w, "store not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, a.Metrics.Snapshot())
		})
	}

	leavehandler.NewHandler(a.Protocol, a.Tokens, cfg.PublicBaseURL).RegisterRoutes(router)
	return router
}

// Close lets the workflow workers finish queued steps, bounded by
// shutdownTimeout, then stops them and releases the database pool. Steps still
// queued at the deadline are picked up by Recover on the next start.
func (a *App) Close() {
	if a.stopWorkers != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := a.Jobs.Shutdown(ctx); err != nil {
			slog.Warn("workflow queue not drained", "err", err)
		}
		cancel()
		a.stopWorkers()
		a.Jobs.Wait()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

// Run serves HTTP on cfg.Addr until ctx is cancelled, then shuts down
// gracefully.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server listening", "addr", srv.Addr,
			"strategy", a.Protocol.Strategy(), "store", a.Config.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		slog.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	a.Close()
	return err
}
