// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func rootFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file (.toml, or legacy .yaml)",
			Value:   "config.toml",
			Sources: cli.EnvVars("PXSYNC_CONFIG"),
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Enable debug logging",
		},
	}
}

// syncCommand runs playlist reconciliation
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Mirror source playlists into the library",
		Commands: []*cli.Command{
			{
				Name:   "once",
				Usage:  "Run a single sync batch and exit",
				Action: r.SyncOnce,
			},
			{
				Name:   "daemon",
				Usage:  "Sync every sync.wait_seconds, reloading the config before each batch",
				Action: r.SyncDaemon,
			},
		},
	}
}

// matchCommand resolves one ad-hoc track
func matchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "match",
		Usage: "Explain how a track resolves against the library",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "title",
				Aliases:  []string{"t"},
				Usage:    "Track title",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "artist",
				Aliases: []string{"a"},
				Usage:   "Track artist",
			},
			&cli.StringFlag{
				Name:  "album",
				Usage: "Album name",
			},
		},
		Action: r.Match,
	}
}

// ledgerCommand inspects missing-track ledgers
func ledgerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "ledger",
		Usage: "Missing-track ledger operations",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the missing tracks of a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "playlist",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "csv",
						Usage: "Print the raw CSV",
					},
				},
				Action: r.LedgerShow,
			},
		},
	}
}

// historyCommand lists recorded sync runs
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recorded sync runs",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of runs to return",
				Value:   20,
			},
			&cli.StringFlag{
				Name:  "playlist",
				Usage: "Only show runs of this playlist",
			},
			&cli.StringFlag{
				Name:  "batch",
				Usage: "Show every run of one batch",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
		},
		Action: r.History,
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration and database",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write an example config file to --config",
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Create the history database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// spotifyCommand handles Spotify operations
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify playlist operations",
		Commands: []*cli.Command{
			{
				Name:  "playlists",
				Usage: "List the playlists that would be mirrored",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.SpotifyPlaylists,
			},
			{
				Name:  "tracks",
				Usage: "List the tracks of one playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "playlist",
					},
				},
				Action: r.SpotifyTracks,
			},
		},
	}
}

// plexCommand handles library server operations
func plexCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "plex",
		Usage: "Library server operations",
		Commands: []*cli.Command{
			{
				Name:   "check",
				Usage:  "Verify the server connection and list shared accounts",
				Action: r.PlexCheck,
			},
			{
				Name:  "rescan",
				Usage: "Scan the music section for new media",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "section",
						Usage: "Library section name (defaults to plex.music_section)",
					},
				},
				Action: r.PlexRescan,
			},
		},
	}
}
