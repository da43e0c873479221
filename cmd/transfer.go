package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/sp2yt/internal/formatter"
	"github.com/desertthunder/sp2yt/internal/shared"
	"github.com/desertthunder/sp2yt/internal/tasks"
	"github.com/desertthunder/sp2yt/internal/ui"
	"github.com/urfave/cli/v3"
)

func playlistURL(cmd *cli.Command) (string, error) {
	url := cmd.StringArg("url")
	if url == "" {
		return "", fmt.Errorf("%w: usage: %s <spotify playlist url>", shared.ErrMissingSpotifyURL, cmd.FullName())
	}
	return url, nil
}

// Search resolves every track of a playlist to a YouTube link and prints or saves the report.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	url, err := playlistURL(cmd)
	if err != nil {
		return err
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	useTUI := cmd.Bool("tui")
	if useTUI {
		r.redirectLogs()
	}
	if err := r.init(ctx); err != nil {
		return err
	}

	r.logger.Info("starting search", "url", url)
	result, err := r.runJob(ctx, useTUI, "Searching YouTube", func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.ConvertResult, error) {
		report, err := r.converter.SearchOnly(ctx, url, progress)
		if err != nil {
			return nil, err
		}
		return &tasks.ConvertResult{Report: report}, nil
	})
	if err != nil {
		return err
	}
	report := result.Report

	if out := cmd.String("output"); out != "" || cmd.Bool("save") {
		path, err := formatter.WriteExport(report, format, out)
		if err != nil {
			return err
		}
		r.logger.Info("report saved", "path", path, "format", format)
		return r.writePlain("\n%s\nSaved report to %s\n", ui.Summary(result), path)
	}

	if useTUI {
		return r.writePlain("%s\n", ui.Summary(result))
	}

	data, err := formatter.Render(report, format)
	if err != nil {
		return err
	}
	r.writePlainln("%s", ui.Summary(result))
	_, err = r.output.Write(data)
	return err
}

// Convert runs a full Spotify → YouTube conversion for the terminal session.
//
// When YouTube is not authorized yet the local OAuth flow runs once and the matches found
// before it are published without searching again.
func (r *Runner) Convert(ctx context.Context, cmd *cli.Command) error {
	url, err := playlistURL(cmd)
	if err != nil {
		return err
	}
	title := cmd.String("title")

	useTUI := cmd.Bool("tui")
	if useTUI {
		r.redirectLogs()
	}
	if err := r.init(ctx); err != nil {
		return err
	}

	job := func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.ConvertResult, error) {
		return r.converter.ConvertAndPublish(ctx, cliSession, url, title, progress)
	}

	r.logger.Info("starting conversion", "url", url, "title", title)
	result, err := r.runJob(ctx, useTUI, "Converting playlist", job)
	if err != nil {
		return err
	}

	if result.NeedsAuthorization() {
		if err := r.authorize(ctx, result.RedirectURL, !cmd.Bool("no-browser")); err != nil {
			return err
		}

		report := result.Report
		publish := func(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.ConvertResult, error) {
			return r.converter.PublishReport(ctx, cliSession, report, title, progress)
		}
		if result, err = r.runJob(ctx, useTUI, "Publishing playlist", publish); err != nil {
			return err
		}
		if result.NeedsAuthorization() {
			return fmt.Errorf("%w: YouTube did not accept the new grant", shared.ErrAuthorizationRequired)
		}
	}

	r.writePlain("\n═══════════════════════════════════════\n")
	r.writePlain("Conversion Complete!\n")
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%s\n", ui.Summary(result))

	if pub := result.Publish; pub != nil && len(pub.Failed) > 0 {
		r.writePlain("\nFailed to insert %d videos:\n", len(pub.Failed))
		for _, f := range pub.Failed {
			r.writePlain("  - %s - %s: %s\n", f.Match.Track.Artist, f.Match.Track.Title, f.Error)
		}
	}
	return nil
}
