// Package ui implements the interactive terminal shell using bubbletea's Elm architecture.
//
// The shell renders the three controllers owned by [app.App] and originates the user's intents:
//  1. [LoginView] : shown while unauthenticated; l starts the login flow
//  2. [PlaylistListView] : the growing playlist collection; moving the cursor reports a scroll position,
//     enter shuffles the selected playlist, o logs out
//
// While a job is queued a progress overlay (spinner, current/total, bar) covers the list. A failed job replaces it
// with an error dialog that stays until dismissed with enter or esc.
//
// Controllers publish snapshots from their own goroutines. Subscriptions forward them into a channel that the
// [Model] drains one message at a time, the same way long-running progress is fed into the update loop.
package ui
