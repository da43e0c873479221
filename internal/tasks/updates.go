package tasks

import (
	"fmt"

	"github.com/desertthunder/sp2yt/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	ExtractReference Phase = iota
	FetchTracks
	SearchTracks
	Authorize
	CreatePlaylist
	Complete
)

func (p Phase) String() string {
	switch p {
	case ExtractReference:
		return "extract_reference"
	case FetchTracks:
		return "fetch_tracks"
	case SearchTracks:
		return "search_tracks"
	case Authorize:
		return "authorize"
	case CreatePlaylist:
		return "create_playlist"
	case Complete:
		return "complete"
	default:
		return ""
	}
}

func extractReferenceUpdate(ref models.PlaylistReference) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExtractReference,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found Spotify playlist %s", ref.PlaylistID),
		Data:    ref,
	}
}

func fetchingTracksUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTracks,
		Step:    0,
		Total:   1,
		Message: "Fetching tracks from Spotify...",
	}
}

func fetchedTracksUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetched %d tracks", count),
	}
}

func searchTracksUpdate(step, total int, tr *models.Track) ProgressUpdate {
	if tr == nil {
		return ProgressUpdate{
			Phase:   SearchTracks,
			Step:    step,
			Total:   total,
			Message: "Searching for tracks on YouTube...",
		}
	}
	return ProgressUpdate{
		Phase:   SearchTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s - %s", step, total, tr.Artist, tr.Title),
		Data:    *tr,
	}
}

func authorizeUpdate(redirect string) ProgressUpdate {
	if redirect != "" {
		return ProgressUpdate{
			Phase:   Authorize,
			Step:    1,
			Total:   1,
			Message: "YouTube authorization required",
			Data:    redirect,
		}
	}
	return ProgressUpdate{
		Phase:   Authorize,
		Step:    1,
		Total:   1,
		Message: "YouTube authorization ok",
	}
}

func createPlaylistUpdate(title string, items int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    0,
		Total:   items,
		Message: fmt.Sprintf("Creating playlist %q with %d videos...", title, items),
	}
}

func completeUpdate(message string, data any) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Step:    1,
		Total:   1,
		Message: message,
		Data:    data,
	}
}
