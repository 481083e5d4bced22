package tasks

import (
	"fmt"

	"github.com/desertthunder/playlist-etl/internal/models"
)

// ProgressUpdate represents a progress event during a pipeline run.
//
// Used to send real-time updates to the CLI layer for display.
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
	FetchItems Phase = iota
	Decompose
	Enrich
	Encode
	Upload
)

func (p Phase) String() string {
	switch p {
	case FetchItems:
		return "fetch_items"
	case Decompose:
		return "decompose"
	case Enrich:
		return "enrich"
	case Encode:
		return "encode"
	case Upload:
		return "upload"
	default:
		return ""
	}
}

func fetchItemsUpdate(step, total int, playlistID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchItems,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetching items for playlist %s...", step, total, playlistID),
	}
}

func decomposedUpdate(step, total int, playlistID string, ds *models.Dataset) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Decompose,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s: %d tracks, %d artists", step, total, playlistID, len(ds.Tracks), len(ds.Artists)),
		Data:    ds,
	}
}

func enrichUpdate(artists int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Enrich,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Looking up %d artists...", artists),
	}
}

func encodeUpdate(step, total int, t models.Table) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Encode,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Encoding %s (%d rows)...", t.Entity, t.Len()),
	}
}

func uploadUpdate(step, total int, bucket string, file models.RunFile) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Upload,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s/%s", step, total, bucket, file.Key),
		Data:    file,
	}
}
