// Package tasks holds the long-running client controllers that sit between the backend and the shell.
//
// # Pagination
//
// [Pager] fetches the playlist collection in fixed-size pages. Each page is sorted by modification time (newest first)
// before being appended, so earlier pages are never reordered. The cursor's IsLoading flag is the single-flight guard:
// [Pager.LoadMore] is a silent no-op while a fetch is pending or after the collection is exhausted.
//
// [ScrollTrigger] adapts scroll reports from the shell into LoadMore calls. Reports are debounced and only the latest
// position in a window is evaluated.
//
// # Queue progress
//
// [Queue] opens one server-push stream per shuffle job and reconciles its frames into a single state:
//
//	Idle → Streaming → Completing → Idle
//	                 ↘ Errored → (Dismiss) → Idle
//
// Malformed frames are dropped. A complete frame closes the stream and clears the progress after a short hold.
// A transport failure closes the stream and leaves one dismissible message.
//
// # Progress Reporting
//
// Bulk operations driven from the CLI ([Pager.LoadAll]) report [ProgressUpdate] values over a channel. Sends use
// select with default so a slow reader never blocks the operation.
package tasks
