package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/sp2yt/internal/repositories"
	"github.com/urfave/cli/v3"
)

// History lists the playlists a session published, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openStore()
	if err != nil {
		return err
	}

	sessionID := cmd.String("session")
	conversions, err := repositories.NewConversionRepository(db).List(ctx, sessionID, int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(conversions, cmd.Bool("pretty"))
	}

	if len(conversions) == 0 {
		return r.writePlain("No conversions recorded for session %q\n", sessionID)
	}

	r.writePlainHeader(fmt.Sprintf("Conversions for %s (%d)", sessionID, len(conversions)))
	for _, c := range conversions {
		r.writePlain("%d. %s\n", c.Sequence, c.Title)
		r.writePlain("   %s\n", c.PlaylistURL())
		r.writePlain("   matched %d/%d, inserted %d, failed %d • %s\n",
			c.TracksMatched, c.TracksTotal, c.ItemsInserted, c.ItemsFailed, c.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}
