package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/shffl/internal/shared"
	"github.com/urfave/cli/v3"
)

const defaultConfigPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	configPath := ""
	if _, err := os.Stat(defaultConfigPath); err == nil {
		loaded, err := shared.LoadConfig(defaultConfigPath)
		if err != nil {
			logger.Fatalf("failed to load %v: %v", defaultConfigPath, err)
		}
		config, configPath = loaded, defaultConfigPath
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Logger:     logger,
	})
	defer runner.Close()

	app := &cli.Command{
		Name:     "shffl",
		Usage:    "Shuffle your Spotify playlists and queue them",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotAuthenticated) {
			logger.Error("not logged in, run 'shffl login' first")
			runner.Close()
			os.Exit(1)
		}
		runner.Close()
		logger.Fatalf("application error: %v", err)
	}
}
