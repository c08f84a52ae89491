package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"leaveflow/internal/domain/leave"
	"leaveflow/internal/platform/config"
	"leaveflow/internal/platform/db"
)

func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and create the leave table",
		RunE:  runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.StoreDriver != config.StoreDriverPostgres {
		return fmt.Errorf("migrate requires STORE_DRIVER=%s, got %q", config.StoreDriverPostgres, cfg.StoreDriver)
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	ctx := cmd.Context()
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := leave.NewPostgresStore(pool, cfg.TableName).EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure %s: %w", cfg.TableName, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "migrations applied; table %s ready\n", cfg.TableName)
	return nil
}
