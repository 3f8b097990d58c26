package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/desertthunder/shffl/internal/formatter"
	"github.com/desertthunder/shffl/internal/models"
	"github.com/desertthunder/shffl/internal/shared"
	"github.com/desertthunder/shffl/internal/tasks"
	"github.com/sahilm/fuzzy"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"
)

// Playlists prints the collection in the order the list view shows it.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	format := cmd.String("format")
	if !slices.Contains(formatter.Formats, format) {
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}

	a, err := r.App(ctx)
	if err != nil {
		return err
	}

	if a.Start() == nil {
		return fmt.Errorf("%w: no session", shared.ErrNotAuthenticated)
	}

	if cmd.Bool("all") {
		rps := cmd.Float("rps")
		if rps <= 0 {
			return fmt.Errorf("%w: --rps must be positive", shared.ErrInvalidFlag)
		}

		progressCh := make(chan tasks.ProgressUpdate, 10)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for update := range progressCh {
				r.logger.Info(update.Message, "phase", update.Phase)
			}
		}()

		err := a.Pager.LoadAll(ctx, rate.NewLimiter(rate.Limit(rps), 1), progressCh)
		close(progressCh)
		<-done
		if err != nil {
			return err
		}
	}

	if !a.Session.Authenticated() {
		return fmt.Errorf("%w: session ended while loading playlists", shared.ErrNotAuthenticated)
	}

	state := a.Pager.State()
	playlists := state.Collection
	if query := cmd.String("filter"); query != "" {
		playlists = filterPlaylists(playlists, query)
	}

	if format == formatter.FormatTable && cmd.String("output") == "" {
		r.writePlainHeader(fmt.Sprintf("Your Playlists (%d)", len(playlists)))
		r.writePlain("%s\n", formatter.ToTable(playlists, r.now()))
		if state.Cursor.HasMore {
			r.writePlain("Showing %d of %d, use --all to load the rest\n", len(state.Collection), state.Total)
		}
		return nil
	}

	data, err := formatter.Export(format, playlists, r.now())
	if err != nil {
		return err
	}

	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteExport(path, data); err != nil {
			return err
		}
		r.logger.Info("playlists exported", "path", path, "count", len(playlists))
		return r.writePlain("✓ Exported %d %s to %s\n", len(playlists), shared.Plural(len(playlists), "playlist", "playlists"), path)
	}

	_, err = r.output.Write(data)
	return err
}

type playlistNames []models.Playlist

func (p playlistNames) String(i int) string { return p[i].Name }
func (p playlistNames) Len() int            { return len(p) }

// filterPlaylists keeps the fuzzy matches for query, best match first.
func filterPlaylists(playlists []models.Playlist, query string) []models.Playlist {
	matches := fuzzy.FindFrom(query, playlistNames(playlists))
	filtered := make([]models.Playlist, 0, len(matches))
	for _, m := range matches {
		filtered = append(filtered, playlists[m.Index])
	}
	return filtered
}
