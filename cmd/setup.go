package main

import (
	"context"
	"os"

	"github.com/desertthunder/playlist-etl/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates config.toml from the embedded template when missing, then initializes the run ledger.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := r.configPath
	if configPath == "" {
		configPath = "config.toml"
	}

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else {
			r.logger.Info("config file created", "path", configPath)
			if config, err := shared.LoadConfig(configPath); err == nil {
				config.ApplyEnv(r.getenv)
				r.config = config
			}
		}
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)
	if _, err := r.database(); err != nil {
		return err
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set credentials.spotify in %s, or export SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET\n", configPath)
	r.writePlain("2. Run 'petl inspect <playlist_id>' to check access\n")
	return nil
}
