// Package models defines the entities exchanged with the Shffl backend.
//
// The package contains two categories of types:
//
// 1. Wire types: the JSON shapes returned by the backend
//   - [Identity] : the resolved user, decoded from GET /user and kept with its raw bytes
//   - [Playlist] : playlist metadata decoded from GET /playlists items
//   - [PlaylistPage] : one page of playlists with the server-side total
//   - [ProgressFrame] : one decoded event from the queue progress stream
//
// 2. Client state: values owned by the controllers and handed out as snapshots
//   - [Cursor] : pagination position, exhaustion, and the single-flight flag
//   - [Progress] : the in-progress count/total of a shuffle job
//
// Snapshots are copies; mutating one never affects controller state.
package models
