package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// Identity is the authenticated user as reported by the backend.
//
// Raw holds the exact bytes of the /user response so the cache can mirror it verbatim.
type Identity struct {
	ID          string
	DisplayName string
	Raw         json.RawMessage
}

type identityPayload struct {
	ID          string          `json:"id"`
	DisplayName string          `json:"display_name"`
	Error       json.RawMessage `json:"error"`
}

// ParseIdentity decodes a /user payload.
//
// A payload that is not a JSON object, has no id, or carries a truthy "error" field is rejected. An error of
// null, false, "" or 0 does not count.
func ParseIdentity(raw []byte) (*Identity, error) {
	var p identityPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to decode identity: %w", err)
	}
	if truthy(p.Error) {
		return nil, fmt.Errorf("identity payload carries an error: %s", p.Error)
	}
	if p.ID == "" {
		return nil, fmt.Errorf("identity payload has no id")
	}

	return &Identity{
		ID:          p.ID,
		DisplayName: p.DisplayName,
		Raw:         json.RawMessage(slices.Clone(raw)),
	}, nil
}

func truthy(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return true
	}
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0
	default:
		return true
	}
}

// Name returns the display name, falling back to the id.
func (i *Identity) Name() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return i.ID
}

type playlistImage struct {
	URL string `json:"url"`
}

type playlistTracks struct {
	Total int `json:"total"`
}

type playlistPayload struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Tracks     playlistTracks  `json:"tracks"`
	Images     []playlistImage `json:"images"`
	ModifiedAt string          `json:"modified_at"`
}

var modifiedLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", time.DateOnly}

// parseModified accepts the timestamp layouts seen from the backend; anything else counts as missing.
func parseModified(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range modifiedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// Playlist is immutable once received.
type Playlist struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	TrackCount    int        `json:"track_count"`
	CoverImageURL string     `json:"cover_image_url,omitempty"`
	ModifiedAt    *time.Time `json:"modified_at,omitempty"`
}

// UnmarshalJSON decodes the backend playlist shape ({tracks: {total}}, images[0].url).
func (p *Playlist) UnmarshalJSON(data []byte) error {
	var payload playlistPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}

	*p = Playlist{
		ID:         payload.ID,
		Name:       payload.Name,
		TrackCount: payload.Tracks.Total,
		ModifiedAt: parseModified(payload.ModifiedAt),
	}
	if len(payload.Images) > 0 {
		p.CoverImageURL = payload.Images[0].URL
	}
	return nil
}

// Modified returns ModifiedAt, or the zero time when the backend sent none.
func (p Playlist) Modified() time.Time {
	if p.ModifiedAt == nil {
		return time.Time{}
	}
	return *p.ModifiedAt
}

// PlaylistPage is one response of GET /playlists.
type PlaylistPage struct {
	Items  []Playlist `json:"items"`
	Total  int        `json:"total"`
	Offset int        `json:"offset"`
}

// SortByModified stable-sorts playlists newest first. Playlists without a timestamp sort as oldest.
func SortByModified(playlists []Playlist) {
	slices.SortStableFunc(playlists, func(a, b Playlist) int {
		return b.Modified().Compare(a.Modified())
	})
}

// Cursor is the pagination position of the playlist collection.
type Cursor struct {
	NextOffset int
	HasMore    bool
	IsLoading  bool
}

// InitialCursor is the cursor before any page has been requested.
func InitialCursor() Cursor {
	return Cursor{NextOffset: 0, HasMore: true, IsLoading: false}
}

// Progress is the in-progress state of a shuffle job.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// Fraction returns Current/Total clamped to [0, 1], or 0 when Total is unknown.
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	f := float64(p.Current) / float64(p.Total)
	return min(max(f, 0), 1)
}

// String renders "current/total".
func (p Progress) String() string {
	return fmt.Sprintf("%d/%d", p.Current, p.Total)
}

// ProgressFrame is one decoded event of the queue progress stream.
type ProgressFrame struct {
	Current  int  `json:"current"`
	Total    int  `json:"total"`
	Complete bool `json:"complete"`
}

// DecodeProgressFrame decodes a stream payload. Anything but a JSON object is rejected.
func DecodeProgressFrame(data []byte) (ProgressFrame, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ProgressFrame{}, fmt.Errorf("failed to decode progress frame: not a JSON object: %q", data)
	}

	var f ProgressFrame
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return ProgressFrame{}, fmt.Errorf("failed to decode progress frame: %w", err)
	}
	return f, nil
}

// Progress returns the in-progress part of the frame.
func (f ProgressFrame) Progress() Progress {
	return Progress{Current: f.Current, Total: f.Total}
}
