package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"leaveflow/internal/app/server"
	"leaveflow/internal/platform/config"
)

type serveOptions struct {
	addr     string
	store    string
	strategy string
}

func NewServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and workflow workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address (overrides APP_ADDR)")
	cmd.Flags().StringVar(&opts.store, "store", "", "Store driver: postgres|memory (overrides STORE_DRIVER)")
	cmd.Flags().StringVar(&opts.strategy, "strategy", "", "Approval strategy: async|direct (overrides APPROVAL_STRATEGY)")
	return cmd
}

func runServe(cmd *cobra.Command, opts *serveOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	opts.apply(&cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := server.New(ctx, cfg)
	if err != nil {
		return err
	}
	return app.Run(ctx)
}

func (o *serveOptions) apply(cfg *config.Config) {
	if o.addr != "" {
		cfg.Addr = o.addr
	}
	if o.store != "" {
		cfg.StoreDriver = o.store
	}
	if o.strategy != "" {
		cfg.ApprovalStrategy = o.strategy
	}
}
