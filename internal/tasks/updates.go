package tasks

import "fmt"

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
	FetchCatalog Phase = iota
	ReconcileAlbums
	SyncDone
)

func (p Phase) String() string {
	switch p {
	case FetchCatalog:
		return "fetch_catalog"
	case ReconcileAlbums:
		return "reconcile_albums"
	case SyncDone:
		return "sync_done"
	default:
		return ""
	}
}

func fetchPageUpdate(page, pages int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchCatalog,
		Step:    page,
		Total:   pages,
		Message: fmt.Sprintf("Fetching saved albums (page %d/%d)...", page, pages),
	}
}

func reconcileUpdate(step, total int, name, artist string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReconcileAlbums,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s - %s", step, total, artist, name),
	}
}

func skippedUpdate(step, total int, spotifyID string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReconcileAlbums,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, spotifyID, err),
	}
}

func syncDoneUpdate(result *SyncResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SyncDone,
		Step:    result.Total,
		Total:   result.Total,
		Message: fmt.Sprintf("Synced %d albums (%d skipped)", result.Synced, result.Skipped),
		Data:    result,
	}
}
