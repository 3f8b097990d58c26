package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running CLI operation.
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
	FetchPlaylists Phase = iota
	QueueTracks
)

func (p Phase) String() string {
	switch p {
	case FetchPlaylists:
		return "fetch_playlists"
	case QueueTracks:
		return "queue_tracks"
	default:
		return ""
	}
}

// sendProgress never blocks; updates are dropped when nobody is reading.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func fetchingPageUpdate(page, offset int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylists,
		Step:    page,
		Message: fmt.Sprintf("Fetching page %d (offset %d)...", page, offset),
	}
}

func fetchedPageUpdate(page int, state PagerState) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylists,
		Step:    state.Cursor.NextOffset,
		Total:   state.Total,
		Message: fmt.Sprintf("[%d/%d] page %d loaded", state.Cursor.NextOffset, state.Total, page),
		Data:    state,
	}
}

// QueueUpdate converts a queue snapshot into a progress update for line-oriented output.
func QueueUpdate(s QueueSnapshot) ProgressUpdate {
	u := ProgressUpdate{Phase: QueueTracks, Data: s}
	switch {
	case s.State == QueueErrored:
		u.Message = s.Error
	case s.Progress == nil:
		u.Message = "Done."
	case s.State == QueueCompleting:
		u.Step, u.Total = s.Progress.Current, s.Progress.Total
		u.Message = fmt.Sprintf("Queued %s tracks.", s.Progress)
	case s.Progress.Total > 0:
		u.Step, u.Total = s.Progress.Current, s.Progress.Total
		u.Message = fmt.Sprintf("Queueing tracks... %s", s.Progress)
	default:
		u.Message = "Queueing tracks..."
	}
	return u
}
