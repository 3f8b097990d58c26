// package formatter renders the playlist collection and job progress for the CLI (table, JSON, CSV, Markdown, text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/shffl/internal/models"
	"github.com/desertthunder/shffl/internal/shared"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Output formats accepted by [Export].
const (
	FormatTable    = "table"
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
)

// Formats lists the accepted output formats.
var Formats = []string{FormatTable, FormatJSON, FormatCSV, FormatMarkdown, FormatText}

// Modified renders a playlist's modification time relative to now, or "-" when unknown.
func Modified(p models.Playlist, now time.Time) string {
	if p.ModifiedAt == nil {
		return "-"
	}
	return humanize.RelTime(*p.ModifiedAt, now, "ago", "from now")
}

// ToTable renders playlists as a rounded table with a position, name, track count, modified, and ID column.
func ToTable(playlists []models.Playlist, now time.Time) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Name", "Tracks", "Modified", "ID"})

	for i, p := range playlists {
		tw.AppendRow(table.Row{i + 1, p.Name, humanize.Comma(int64(p.TrackCount)), Modified(p, now), p.ID})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

// ToCSV converts playlists to CSV with columns: ID, Name, Tracks, Modified, Cover
func ToCSV(playlists []models.Playlist) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"ID", "Name", "Tracks", "Modified", "Cover"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, p := range playlists {
		modified := ""
		if p.ModifiedAt != nil {
			modified = p.ModifiedAt.UTC().Format(time.RFC3339)
		}
		record := []string{p.ID, p.Name, strconv.Itoa(p.TrackCount), modified, p.CoverImageURL}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ToMarkdown renders the collection under a "Your Playlists (N)" heading, with cover thumbnails when known.
func ToMarkdown(playlists []models.Playlist, now time.Time) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# Your Playlists (%d)\n\n", len(playlists))
	for _, p := range playlists {
		fmt.Fprintf(&buf, "## %s\n\n", p.Name)
		if p.CoverImageURL != "" {
			fmt.Fprintf(&buf, "![Cover](%s)\n\n", p.CoverImageURL)
		}
		fmt.Fprintf(&buf, "- **Tracks**: %d\n", p.TrackCount)
		fmt.Fprintf(&buf, "- **Modified**: %s\n", Modified(p, now))
		fmt.Fprintf(&buf, "- **ID**: `%s`\n\n", p.ID)
	}
	return buf.Bytes()
}

// ToText renders one numbered line per playlist.
func ToText(playlists []models.Playlist, now time.Time) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Your Playlists (%d)\n\n", len(playlists))
	for i, p := range playlists {
		fmt.Fprintf(&buf, "%d. %s (%d %s, modified %s) [%s]\n",
			i+1, p.Name, p.TrackCount, shared.Plural(p.TrackCount, "track", "tracks"), Modified(p, now), p.ID)
	}
	return buf.Bytes()
}

// Export renders playlists in format. Table output ends with a newline like the others.
func Export(format string, playlists []models.Playlist, now time.Time) ([]byte, error) {
	switch format {
	case FormatTable, "":
		return []byte(ToTable(playlists, now) + "\n"), nil
	case FormatJSON:
		if playlists == nil {
			playlists = []models.Playlist{}
		}
		data, err := shared.MarshalJSON(playlists, true)
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case FormatCSV:
		return ToCSV(playlists)
	case FormatMarkdown:
		return ToMarkdown(playlists, now), nil
	case FormatText:
		return ToText(playlists, now), nil
	default:
		return nil, fmt.Errorf("%w: format must be one of %s, got %q", shared.ErrInvalidFlag, strings.Join(Formats, ", "), format)
	}
}

// WriteExport writes rendered output to path, creating parent directories.
func WriteExport(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ProgressBar renders "[###-------] 3/10  30%" in width cells, or a waiting label until the total is known.
func ProgressBar(p *models.Progress, width int) string {
	if p == nil || p.Total <= 0 {
		return "Queueing tracks..."
	}
	if width < 1 {
		width = 20
	}
	filled := int(p.Fraction() * float64(width))
	bar := strings.Repeat("#", filled) + strings.Repeat("-", width-filled)
	return fmt.Sprintf("[%s] %s %3.0f%%", bar, p, p.Fraction()*100)
}
