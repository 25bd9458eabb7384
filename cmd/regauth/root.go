package main

import (
	"log/slog"
	"os"

	"github.com/MrEthical07/regAuth/internal/app"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "regauth",
	Short: "Authentication service for class registration",
	Long: `regauth serves registration, login, email one-time codes, token refresh and logout
over JSON HTTP.

Settings are read from .env, an optional TOML file and the environment, in that order.

Environment Variables:
  REGAUTH_CONFIG  TOML config file (overridden by --config)
  JWT_SECRET      hex-encoded signing secret, at least 32 bytes (see init-env)`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "TOML config file (overrides REGAUTH_CONFIG)")
}

func settingsPath() string {
	if configPath != "" {
		return configPath
	}
	return os.Getenv("REGAUTH_CONFIG")
}

func loadSettings() (app.Settings, *slog.Logger, error) {
	s, err := app.LoadSettings(settingsPath())
	if err != nil {
		return app.Settings{}, nil, err
	}
	logger := app.NewLogger(os.Stdout, s.LogLevel, s.LogFormat)
	slog.SetDefault(logger)
	return s, logger, nil
}
