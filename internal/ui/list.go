package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/shffl/internal/formatter"
	"github.com/desertthunder/shffl/internal/models"
	"github.com/desertthunder/shffl/internal/shared"
)

var _ list.Item = playlistItem{}

// playlistItem wraps [models.Playlist] to implement [list.Item].
type playlistItem struct {
	playlist models.Playlist
	now      time.Time
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string       { return i.playlist.Name }
func (i playlistItem) Description() string {
	n := i.playlist.TrackCount
	desc := fmt.Sprintf("%d %s", n, shared.Plural(n, "track", "tracks"))
	if i.playlist.ModifiedAt != nil {
		desc = fmt.Sprintf("%s • modified %s", desc, formatter.Modified(i.playlist, i.now))
	}
	return desc
}

func playlistItems(playlists []models.Playlist, now time.Time) []list.Item {
	items := make([]list.Item, len(playlists))
	for i, pl := range playlists {
		items[i] = playlistItem{playlist: pl, now: now}
	}
	return items
}
