// Package cli implements planctl, the command-line companion of the planner
// service. It checks and imports plan files offline, without a server or a
// database, and runs the one-time Gmail authorization.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/planner/internal/logging"
)

// NewRootCmd builds the planctl command tree.
func NewRootCmd(version string) *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:   "planctl",
		Short: "planctl - check and import project plan CSV files",
		Long: `planctl works with the CSV/TSV task exports the planner service imports.

Use "validate" to check whether a file would import, "import" to see the tasks
and project details it yields, and "gmail-auth" to authorize email delivery.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), logLevel, "text"))
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	root.AddCommand(validateCmd())
	root.AddCommand(importCmd())
	root.AddCommand(gmailAuthCmd())

	return root
}

// Execute runs planctl with the process arguments.
func Execute(version string) error {
	if err := NewRootCmd(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
