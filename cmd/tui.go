package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/desertthunder/sp2yt/internal/tasks"
	"github.com/desertthunder/sp2yt/internal/ui"
)

// tuiLogFile is where logs go while the terminal UI owns the screen.
var tuiLogFile = filepath.Join(os.TempDir(), "sp2yt-tui.log")

// redirectLogs sends log output to [tuiLogFile] so it does not interfere with TUI rendering.
//
// Must run before [Runner.init]: child loggers copy the writer when they are created.
func (r *Runner) redirectLogs() {
	f, err := os.OpenFile(tuiLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		r.logger.Warn("failed to open tui log file, logging to stderr", "error", err)
		return
	}
	r.logger.SetOutput(f)
	r.closers = append(r.closers, f.Close)
}

// runJob runs job inside the terminal UI or with line-by-line progress on the runner output.
func (r *Runner) runJob(ctx context.Context, useTUI bool, title string, job ui.Job) (*tasks.ConvertResult, error) {
	if useTUI {
		return ui.Run(ctx, title, job)
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			r.printProgress(update)
		}
	}()

	result, err := job(ctx, progressCh)
	close(progressCh)
	<-done

	return result, err
}

func (r *Runner) printProgress(update tasks.ProgressUpdate) {
	switch update.Phase {
	case tasks.ExtractReference, tasks.FetchTracks:
		r.writePlain("📥 %s\n", update.Message)
	case tasks.SearchTracks:
		if update.Step == 0 {
			r.writePlain("\n🔍 %s\n", update.Message)
		} else {
			r.writePlain("   %s\n", update.Message)
		}
	case tasks.Authorize:
		r.writePlain("\n🔑 %s\n", update.Message)
	case tasks.CreatePlaylist:
		r.writePlain("\n📝 %s\n", update.Message)
	}
}
