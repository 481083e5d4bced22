package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/playlist-etl/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	runner := NewRunner(RunnerOpts{Logger: logger})
	defer runner.Close()

	app := &cli.Command{
		Name:     "petl",
		Usage:    "Extract Spotify playlists into entity tables in object storage",
		Version:  "0.1.0",
		Flags:    rootFlags(),
		Before:   runner.LoadConfig,
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			return
		}
		runner.Close()
		logger.Fatalf("application error: %v", err)
	}
}
