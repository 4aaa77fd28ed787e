package tasks

import (
	"fmt"
	"strings"
)

// ProgressUpdate represents a progress event during a transfer.
//
// Used to send real-time updates to the CLI or server logs for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	FetchSource Phase = iota
	CreatePlaylist
	MatchTracks
	WriteTracks
	Done
)

func (p Phase) String() string {
	switch p {
	case FetchSource:
		return "fetch_source"
	case CreatePlaylist:
		return "create_playlist"
	case MatchTracks:
		return "match_tracks"
	case WriteTracks:
		return "write_tracks"
	case Done:
		return "done"
	default:
		return ""
	}
}

func fetchSourceUpdate(service string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSource,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching source playlist from %s...", service),
	}
}

func foundSourceUpdate(name string, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSource,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found playlist: %s (%d items)", name, total),
	}
}

func createPlaylistUpdate(service, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Creating %q on %s...", title, service),
	}
}

func createdPlaylistUpdate(title, id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist created: %s (ID: %s)", title, id),
		Data:    id,
	}
}

func matchTrackUpdate(step, total int, title string, artists []string) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] %s", step, total, title)
	if len(artists) > 0 {
		msg = fmt.Sprintf("[%d/%d] %s - %s", step, total, strings.Join(artists, ", "), title)
	}
	return ProgressUpdate{
		Phase:   MatchTracks,
		Step:    step,
		Total:   total,
		Message: msg,
	}
}

func writeTracksUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Adding %d tracks...", count),
	}
}

func doneUpdate(succeeded, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Done,
		Step:    succeeded,
		Total:   total,
		Message: fmt.Sprintf("✓ Transferred %d/%d", succeeded, total),
	}
}
