// Package main is the entrypoint for the quotehunter server and CLI.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kiranshivaraju/quotehunter/internal/config"
)

// skipConfig marks commands that run without loading the environment.
const skipConfig = "skip-config"

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "quotehunter",
	Short: "Turn short-video product links into sourcing quotes",
	Long: "Detects product video links posted to a chat transport, analyzes the product, " +
		"estimates a factory-gate price, matches manufacturers and posts a quote card.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations[skipConfig] == "true" {
			slog.SetDefault(newLogger(cmd.ErrOrStderr(), "info"))
			return nil
		}

		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		// The server logs to stdout; one-shot commands keep stdout for their result.
		out := cmd.ErrOrStderr()
		if cmd.Name() == serveCmd.Name() {
			out = cmd.OutOrStdout()
		}
		slog.SetDefault(newLogger(out, cfg.Log.Level))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, quoteCmd, estimateCmd, migrateCmd)
}

// newLogger returns a JSON logger. Unknown levels fall back to info.
func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
