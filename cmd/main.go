// Package main provides the webprobe CLI. It loads configuration, sets up
// logging and dispatches to the probe subcommand.
package main

import (
	"context"
	"os"
	"webprobe/internal/config"
	"webprobe/pkg/logger"
	"webprobe/pkg/serrors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	cfg := &config.Config{}
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "webprobe",
		Short:        "Finds which candidate domains serve HTTP(S) traffic",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return serrors.Wrap(serrors.ErrInvalidInput, err, "could not load config")
			}
			*cfg = *loaded

			logger.Setup(cfg.Environment)

			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (yaml, optional)")

	ctx := context.Background()

	defer func() {
		if p := recover(); p != nil {
			logger.Error(ctx, "captured panic, exiting...", zap.Any("panic", p))
			logger.Sync(ctx)

			panic(p)
		}
	}()

	rootCmd.AddCommand(probeCommand(cfg))

	err := rootCmd.Execute()
	logger.Sync(ctx)
	if err != nil {
		os.Exit(1) //nolint: gocritic
	}
}
