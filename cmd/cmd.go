// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/sp2yt/internal/formatter"
	"github.com/urfave/cli/v3"
)

// setupCommand creates the config file and applies migrations
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create config.toml if missing and migrate the database",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "rollback",
				Usage: "Roll back the most recent migration instead",
			},
		},
		Action: r.Setup,
	}
}

// serveCommand runs the HTTP API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the conversion API and the YouTube OAuth callback",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (overrides server.host)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (overrides server.port)",
			},
		},
		Action: r.Serve,
	}
}

// searchCommand resolves a playlist to YouTube links without publishing
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Find a YouTube video for every track of a Spotify playlist",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "url"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: json, csv, txt or markdown",
				Value:   string(formatter.FormatText),
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the report to a file instead of stdout",
			},
			&cli.BoolFlag{
				Name:  "save",
				Usage: "Write the report to {playlist}_videos.{ext}",
			},
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Show progress in the interactive terminal UI",
			},
		},
		Action: r.Search,
	}
}

// convertCommand resolves a playlist and publishes it to YouTube
func convertCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "convert",
		Aliases: []string{"transfer"},
		Usage:   "Convert a Spotify playlist into a public YouTube playlist",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "url"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "title",
				Aliases: []string{"t"},
				Usage:   "Title of the YouTube playlist",
			},
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Show progress in the interactive terminal UI",
			},
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "Print the consent URL instead of opening a browser",
			},
		},
		Action: r.Convert,
	}
}

// authCommand handles YouTube authorization of the terminal session
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage YouTube authorization",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authorize YouTube through the local OAuth callback",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the consent URL instead of opening a browser",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "status",
				Usage: "Show the stored YouTube grant",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "all",
						Usage: "List the grants of every session (sqlite store only)",
					},
				},
				Action: r.AuthStatus,
			},
			{
				Name:   "revoke",
				Usage:  "Forget the stored YouTube grant",
				Action: r.AuthRevoke,
			},
		},
	}
}

// historyCommand lists published playlists
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List playlists published by a session",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "session",
				Usage: "Session id to list",
				Value: cliSession,
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of conversions to return",
				Value: 20,
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
