package main

import (
	"os/signal"
	"syscall"

	"github.com/MrEthical07/regAuth/internal/app"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long:  `Run the HTTP server until SIGINT or SIGTERM, then drain in-flight requests.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		s, logger, err := loadSettings()
		if err != nil {
			return err
		}

		a, err := app.New(ctx, s, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
