package cmd

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/wanderstay/wander/db"
)

func Execute() {
	initializeDatabase()
	defer closeDatabase()

	rootCmd := createRootCmd(newServices())
	rootCmd.PersistentFlags().BoolP("help", "h", false, "Show help for a command")

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command execution failed.")
		os.Exit(1)
	}
}

func createRootCmd(svc *services) *cobra.Command {
	var timeout time.Duration
	var cancelTimeout context.CancelFunc

	rootCmd := &cobra.Command{
		Use:   "wander",
		Short: "A travel companion for the Wanderstay platform",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if timeout > 0 {
				ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
				cancelTimeout = cancel
				cmd.SetContext(ctx)
			}
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if cancelTimeout != nil {
				cancelTimeout()
			}
		},
	}

	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "T", 0,
		"Abort the command after this duration (e.g. 30s); 0 means no timeout")

	rootCmd.AddCommand(
		loginCmd(svc),
		logoutCmd(svc),
		statusCmd(svc),
		staysCmd(svc),
		tripsCmd(svc),
		inboxCmd(svc),
		filesCmd(),
		versionCmd(),
	)

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	rootCmd.SetHelpCommand(&cobra.Command{
		Use:    "no-help",
		Hidden: true,
	})

	return rootCmd
}

func initializeDatabase() {
	if err := db.InitDB(); err != nil {
		log.Error().Err(err).Msg("Failed to initialize database")
		os.Exit(1)
	}
}

func closeDatabase() {
	if err := db.CloseDB(); err != nil {
		log.Error().Err(err).Msg("Failed to close the database.")
		os.Exit(1)
	}
}
