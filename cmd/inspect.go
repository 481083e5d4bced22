package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/playlist-etl/internal/formatter"
	"github.com/desertthunder/playlist-etl/internal/models"
	"github.com/desertthunder/playlist-etl/internal/services"
	"github.com/desertthunder/playlist-etl/internal/shared"
	"github.com/desertthunder/playlist-etl/internal/transform"
	"github.com/urfave/cli/v3"
)

// Inspect prints playlist metadata as JSON, or with --entity one decomposed table, without writing anything.
func (r *Runner) Inspect(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	if timeout := cmd.Duration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tokens, err := r.tokenCache(ctx)
	if err != nil {
		return err
	}

	if cmd.String("entity") == "" {
		meta, err := r.catalog(ctx, tokens).Playlist(ctx, id)
		if err != nil {
			return err
		}
		return r.writeJSON(meta, cmd.Bool("pretty"))
	}

	entity, err := models.ParseEntity(cmd.String("entity"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	f, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	fetcher := services.NewPagedFetcher(r.httpClient, tokens).WithRateLimit(r.config.API.RateLimit)
	items, err := fetcher.FetchAll(ctx, services.PlaylistTracksURL(r.config.API.BaseURL, id), r.config.API.Fields)
	if err != nil {
		return err
	}
	ds, err := transform.NewDecomposer(nil).Decompose(items, id)
	if err != nil {
		return err
	}

	r.logger.Debug("decomposed playlist", "playlist", id, "items", len(items), "skipped", ds.Skipped)
	return formatter.WriteTable(r.output, ds.Table(entity), f)
}
