package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/discx/internal/shared"
	"github.com/urfave/cli/v3"
)

const defaultConfigPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)

	configPath := os.Getenv("DISCX_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	config, err := shared.LoadConfigOrDefault(configPath)
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if err := shared.ApplyLogLevel(logger, config.Log.Level); err != nil {
		logger.Warn("ignoring log level", "error", err)
	}

	testing := shared.IsTestEnvironment(os.Getenv)
	if testing {
		logger.Debug("test environment detected, credentials file is read-only")
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Persist:    !testing,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "discx",
		Usage:    "Export your Discogs collection to QR factory label CSVs",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}
