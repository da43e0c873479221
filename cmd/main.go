package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/sp2yt/internal/shared"
	"github.com/urfave/cli/v3"
)

// newApp builds the root command around r.
func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "sp2yt",
		Usage:   "Convert Spotify playlists into YouTube playlists",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
		},
		Before:   r.loadConfig,
		Commands: r.register(),
	}
}

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	err := newApp(runner).Run(context.Background(), os.Args)
	if cerr := runner.Close(); cerr != nil {
		logger.Warn("failed to close stores", "error", cerr)
	}

	if err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		if shared.IsAuthorizationRequired(err) {
			logger.Fatal("YouTube authorization required, run 'sp2yt auth login'", "error", err)
		}
		logger.Fatalf("application error: %v", err)
	}
}
