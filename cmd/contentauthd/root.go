package main

import (
	"github.com/spf13/cobra"
)

var envFile string

// NewRootCmd creates the contentauthd command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "contentauthd",
		Short:        "Authentication and session service for the content backend",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewKeygenCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewHashPasswordCmd())
	cmd.AddCommand(NewUserCmd())
	cmd.AddCommand(NewLoadtestCmd())

	return cmd
}
