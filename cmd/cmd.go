// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

func rootFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "Enable debug logging",
		},
	}
}

// setupCommand creates the config file and the run ledger.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml from the template, initialize the run ledger and run migrations",
		Action: r.Setup,
	}
}

// runCommand extracts playlists once.
func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Extract playlists into playlists, tracks, albums and artists objects",
		ArgsUsage: "<bucket> <playlist_id>...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "object",
				Usage: "Object type to extract",
				Value: "playlist",
			},
			&cli.StringFlag{
				Name:  "suffix",
				Usage: "Suffix appended to the run timestamp in object keys",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: csv or json (default from config)",
			},
			&cli.BoolFlag{
				Name:  "enrich",
				Usage: "Join artist genres and follower counts",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Deadline for the whole run (default from config)",
			},
			&cli.BoolFlag{
				Name:    "progress",
				Aliases: []string{"p"},
				Usage:   "Show an interactive progress display",
			},
		},
		Action: r.Run,
	}
}

// workerCommand drains the work queue.
func workerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "worker",
		Usage:     "Lease playlist ids from the Redis work queue until it is empty",
		ArgsUsage: "[bucket]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "queue",
				Usage: "Queue name (default from config)",
			},
			&cli.IntFlag{
				Name:  "batch",
				Usage: "Playlists per run (default from config)",
			},
			&cli.DurationFlag{
				Name:  "lease",
				Usage: "Lease duration (default from config)",
			},
			&cli.BoolFlag{
				Name:  "enrich",
				Usage: "Join artist genres and follower counts",
			},
		},
		Action: r.Worker,
	}
}

// queueCommand manages the work queue.
func queueCommand(r *Runner) *cli.Command {
	queueFlag := &cli.StringFlag{
		Name:  "queue",
		Usage: "Queue name (default from config)",
	}
	return &cli.Command{
		Name:  "queue",
		Usage: "Work queue operations",
		Commands: []*cli.Command{
			{
				Name:      "push",
				Usage:     "Enqueue playlist ids",
				ArgsUsage: "<playlist_id>...",
				Flags:     []cli.Flag{queueFlag},
				Action:    r.QueuePush,
			},
			{
				Name:   "stats",
				Usage:  "Show pending and leased item counts",
				Flags:  []cli.Flag{queueFlag, &cli.BoolFlag{Name: "json", Usage: "Output raw JSON"}},
				Action: r.QueueStats,
			},
			{
				Name:   "reclaim",
				Usage:  "Return items with expired leases to the queue",
				Flags:  []cli.Flag{queueFlag},
				Action: r.QueueReclaim,
			},
		},
	}
}

// inspectCommand prints playlist metadata or a decomposed entity table.
func inspectCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Print playlist metadata, or one decomposed entity table",
		ArgsUsage: "<playlist_id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "entity",
				Usage: "Decompose and print this entity instead: playlists, tracks, albums or artists",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Table format: csv or json",
				Value:   "csv",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print metadata",
				Value: true,
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Request deadline",
				Value: time.Minute,
			},
		},
		Action: r.Inspect,
	}
}

// runsCommand lists the run ledger.
func runsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "runs",
		Usage:     "List recorded runs, or the files of one run",
		ArgsUsage: "[run_id]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to list",
				Value: 20,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Runs,
	}
}
