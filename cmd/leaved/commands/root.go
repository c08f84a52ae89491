package commands

import (
	"github.com/spf13/cobra"

	"leaveflow/internal/platform/config"
)

var logLevelOverride string

// NewRootCmd creates the leaved root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "leaved",
		Short:        "Leave request approval service",
		Long:         `leaved accepts leave requests, emails an approver one-time decision links and notifies the employee of the outcome.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return configureLogger(cmd.ErrOrStderr(), cfg.LogLevel, logLevelOverride, cfg.Environment == "production")
		},
	}

	cmd.PersistentFlags().StringVar(&logLevelOverride, "log-level", "", "Override log level (debug|info|warn|error)")

	cmd.AddCommand(
		NewServeCmd(),
		NewMigrateCmd(),
		NewTokenCmd(),
	)

	return cmd
}
