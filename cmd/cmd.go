// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles setup operations for the config file and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml template to the --config path",
				Action: r.SetupConfig,
			},
			{
				Name:    "database",
				Aliases: []string{"db"},
				Usage:   "Initialize the lyrics cache and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "status",
						Usage: "Only print migration status",
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
		Usage:   "Spotify authentication and playback state",
		Commands: []*cli.Command{
			{
				Name:   "auth",
				Usage:  "Authenticate with Spotify using OAuth2 (PKCE when no client secret is set)",
				Action: r.SpotifyAuth,
			},
			{
				Name:  "now",
				Usage: "Show the currently playing track",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.SpotifyNow,
			},
		},
	}
}

// lyricsCommand handles one-off lyric lookups
func lyricsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "lyrics",
		Usage: "Look up lyrics without starting the overlay",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Fetch lyrics for a track and print them",
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
					&cli.DurationFlag{
						Name:  "duration",
						Usage: "Track length (e.g. 3m32s), improves matching",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: text, lrc, csv or markdown",
						Value:   "text",
					},
					&cli.BoolFlag{
						Name:  "lrc",
						Usage: "Shorthand for --format lrc",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output the parsed transcript as JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
					&cli.BoolFlag{
						Name:  "no-cache",
						Usage: "Skip the lyrics cache",
					},
				},
				Action: r.LyricsGet,
			},
		},
	}
}

// cacheCommand handles the lyrics cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect and manage the lyrics cache",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List cached lyrics, most used first",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.CacheList,
			},
			{
				Name:    "remove",
				Usage:   "Remove one cached entry",
				Aliases: []string{"rm"},
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.CacheRemove,
			},
			{
				Name:   "clear",
				Usage:  "Remove every cached entry",
				Action: r.CacheClear,
			},
		},
	}
}

// overlayCommand returns the top-level command that runs the lyrics overlay.
func overlayCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "overlay",
		Aliases: []string{"run", "ui"},
		Usage:   "Show synchronized lyrics for the playing track",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dock",
				Aliases: []string{"d"},
				Usage:   "Where to place the lyrics: bottom, top or center",
			},
			&cli.StringFlag{
				Name:    "source",
				Aliases: []string{"s"},
				Usage:   "Playback source: spotify or mpris",
			},
			&cli.StringFlag{
				Name:  "player",
				Usage: "MPRIS player name (e.g. spotify, vlc); defaults to the first one found",
			},
			&cli.StringFlag{
				Name:  "log",
				Usage: "Log file path",
			},
		},
		Action: r.Overlay,
	}
}
