package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"promptui/internal/config"
)

var (
	cfgFile string
	envFile string

	// cfg is loaded once before any subcommand runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "promptui",
	Short: "Prompt library with versioning and a publication workflow",
	Long: `promptui stores UI design prompts, keeps every content change as an
immutable version and moves prompts through draft, review, published and
offline states.

Configuration comes from the environment, an optional .env file and an
optional config file.

Examples:
  promptui serve                 # Run the HTTP API
  promptui migrate up            # Apply pending migrations
  promptui seed                  # Insert default categories and the admin`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(envFile); err != nil {
			return err
		}
		c, err := config.LoadFile(cfgFile)
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		cfg = c
		slog.SetDefault(newLogger(cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (yaml, json or toml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&envFile, "env-file", ".env", "dotenv file loaded before reading the environment",
	)
}

// newLogger outputs JSON or text according to LOG_FORMAT.
func newLogger(c *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(c.LogLevel)}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
