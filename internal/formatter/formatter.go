// package formatter renders match reports to various formats (JSON, CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/sp2yt/internal/models"
	"github.com/desertthunder/sp2yt/internal/shared"
)

// Format names an output format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatText     Format = "txt"
	FormatMarkdown Format = "markdown"
)

// Formats lists every supported format name.
var Formats = []Format{FormatJSON, FormatCSV, FormatText, FormatMarkdown}

// ParseFormat resolves a format name. "text" and "md" are accepted as aliases.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "txt", "text":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, name)
	}
}

// Status of a single track in a report.
const (
	StatusMatched   = "matched"
	StatusUnmatched = "unmatched"
	StatusFailed    = "failed"
)

// Row is one track of a report with its outcome.
type Row struct {
	Position int
	Track    models.Track
	Status   string
	VideoID  string
	VideoURL string
	Error    string
}

// Rows lists every track of the report in playlist order with its outcome.
func Rows(report *models.MatchReport) []Row {
	matches := make(map[models.Track][]models.VideoMatch)
	for _, m := range report.Matches {
		matches[m.Track] = append(matches[m.Track], m)
	}
	failures := make(map[models.Track][]models.TrackFailure)
	for _, f := range report.Failed {
		failures[f.Track] = append(failures[f.Track], f)
	}

	rows := make([]Row, 0, len(report.Tracks))
	for i, track := range report.Tracks {
		row := Row{Position: i + 1, Track: track, Status: StatusUnmatched}
		if queue := matches[track]; len(queue) > 0 {
			row.Status, row.VideoID, row.VideoURL = StatusMatched, queue[0].VideoID, queue[0].VideoURL
			matches[track] = queue[1:]
		} else if queue := failures[track]; len(queue) > 0 {
			row.Status, row.Error = StatusFailed, queue[0].Error
			failures[track] = queue[1:]
		}
		rows = append(rows, row)
	}
	return rows
}

// ExportToJSON renders the full report as indented JSON.
func ExportToJSON(report *models.MatchReport) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return append(data, '\n'), nil
}

// ExportToCSV converts a report to CSV format with columns: Position, Title, Artist, Status, VideoID, VideoURL, Error
func ExportToCSV(report *models.MatchReport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "Title", "Artist", "Status", "VideoID", "VideoURL", "Error"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, row := range Rows(report) {
		record := []string{
			strconv.Itoa(row.Position),
			row.Track.Title,
			row.Track.Artist,
			row.Status,
			row.VideoID,
			row.VideoURL,
			row.Error,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a report to a Markdown document with one section per outcome.
func ExportToMarkdown(report *models.MatchReport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# Spotify playlist %s\n\n", report.Reference.PlaylistID)
	if report.Reference.SourceURL != "" {
		fmt.Fprintf(&buf, "**Source**: <%s>\n\n", report.Reference.SourceURL)
	}
	fmt.Fprintf(&buf, "**Tracks**: %d\n", len(report.Tracks))
	fmt.Fprintf(&buf, "**Matched**: %d\n", len(report.Matches))
	fmt.Fprintf(&buf, "**Unmatched**: %d\n", len(report.Unmatched))
	fmt.Fprintf(&buf, "**Failed**: %d\n\n", len(report.Failed))

	buf.WriteString("## Matches\n\n")
	for i, m := range report.Matches {
		fmt.Fprintf(&buf, "%d. [%s - %s](%s)\n", i+1, m.Track.Artist, m.Track.Title, m.VideoURL)
	}

	if len(report.Unmatched) > 0 {
		buf.WriteString("\n## Unmatched\n\n")
		for _, tr := range report.Unmatched {
			fmt.Fprintf(&buf, "- %s - %s\n", tr.Artist, tr.Title)
		}
	}

	if len(report.Failed) > 0 {
		buf.WriteString("\n## Failed\n\n")
		for _, f := range report.Failed {
			fmt.Fprintf(&buf, "- %s - %s: %s\n", f.Track.Artist, f.Track.Title, f.Error)
		}
	}

	return buf.Bytes(), nil
}

// ExportToText writes one watch link per line, in playlist order.
func ExportToText(report *models.MatchReport) ([]byte, error) {
	var buf bytes.Buffer
	for _, link := range report.Links() {
		buf.WriteString(link)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// Render converts a report to the given format.
func Render(report *models.MatchReport, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return ExportToJSON(report)
	case FormatCSV:
		return ExportToCSV(report)
	case FormatText:
		return ExportToText(report)
	case FormatMarkdown:
		return ExportToMarkdown(report)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// DefaultFilename returns {playlistID}_videos.{ext} for the format.
func DefaultFilename(report *models.MatchReport, format Format) string {
	ext := string(format)
	if format == FormatMarkdown {
		ext = "md"
	}
	return fmt.Sprintf("%s_videos.%s", report.Reference.PlaylistID, ext)
}

// WriteExport renders the report and writes it to path.
//
// Defaults to [DefaultFilename] when path is empty.
func WriteExport(report *models.MatchReport, format Format, path string) (string, error) {
	if path == "" {
		path = DefaultFilename(report, format)
	}

	data, err := Render(report, format)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", format, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", format, err)
	}

	return path, nil
}
