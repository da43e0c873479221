package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/sp2yt/internal/formatter"
	"github.com/desertthunder/sp2yt/internal/models"
)

var (
	_ list.Item = rowItem{}
)

// rowItem wraps [formatter.Row] to implement [list.Item].
type rowItem struct {
	row formatter.Row
}

func (i rowItem) FilterValue() string { return i.row.Track.Title }
func (i rowItem) Title() string {
	return fmt.Sprintf("%d. %s - %s", i.row.Position, i.row.Track.Artist, i.row.Track.Title)
}
func (i rowItem) Description() string {
	switch i.row.Status {
	case formatter.StatusMatched:
		return styles.ok.Render("✓ ") + i.row.VideoURL
	case formatter.StatusFailed:
		return styles.err.Render("✗ ") + i.row.Error
	default:
		return styles.warn.Render("no results")
	}
}

func reportItems(report *models.MatchReport) []list.Item {
	rows := formatter.Rows(report)
	items := make([]list.Item, len(rows))
	for i, row := range rows {
		items[i] = rowItem{row: row}
	}
	return items
}
