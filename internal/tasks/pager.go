package tasks

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/shffl/internal/models"
	"github.com/desertthunder/shffl/internal/shared"
	"golang.org/x/time/rate"
)

// DefaultPageSize is the number of playlists requested per page.
const DefaultPageSize = 50

// PageFetcher fetches one page of the playlist collection.
type PageFetcher interface {
	Playlists(ctx context.Context, offset, limit int) (*models.PlaylistPage, error)
}

// PagerOpts configures a [Pager].
type PagerOpts struct {
	PageSize int
	// OnUnauthorized is called when a page request is rejected for a missing or expired session.
	OnUnauthorized func()
}

// PagerState is a read-only snapshot of the collection and its cursor.
type PagerState struct {
	Collection []models.Playlist
	Cursor     models.Cursor
	Total      int // last total reported by the backend, 0 before the first page
}

// Pager is the pagination engine for the playlist collection.
//
// Cursor.IsLoading is the single-flight guard. Fetches happen outside the mutex; the mutex only protects the fields.
type Pager struct {
	fetcher        PageFetcher
	pageSize       int
	onUnauthorized func()
	logger         *log.Logger

	mu         sync.Mutex
	items      []models.Playlist
	cursor     models.Cursor
	total      int
	generation uint64

	observers shared.Observers[PagerState]
}

// NewPager creates a pager with an empty collection.
func NewPager(fetcher PageFetcher, opts PagerOpts, logger *log.Logger) *Pager {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Pager{
		fetcher:        fetcher,
		pageSize:       opts.PageSize,
		onUnauthorized: opts.OnUnauthorized,
		logger:         shared.WithLogger(logger, "component", "pager"),
		cursor:         models.InitialCursor(),
	}
}

// PageSize returns the fixed page size.
func (p *Pager) PageSize() int { return p.pageSize }

// State returns a snapshot of the collection and cursor.
func (p *Pager) State() PagerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stateLocked()
}

// Collection returns a copy of the merged collection.
func (p *Pager) Collection() []models.Playlist { return p.State().Collection }

// Cursor returns the current cursor.
func (p *Pager) Cursor() models.Cursor {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// Subscribe registers fn for every state change.
func (p *Pager) Subscribe(fn func(PagerState)) (unsubscribe func()) {
	return p.observers.Subscribe(fn)
}

// LoadMore fetches one page at offset and merges it. It returns once the page is applied.
//
// It does nothing while another fetch is pending or after the collection is exhausted. Failures are logged and
// only release the loading flag.
func (p *Pager) LoadMore(ctx context.Context, offset int) {
	if _, err := p.load(ctx, offset); err != nil {
		p.logger.Warn("failed to fetch playlists", "offset", offset, "error", err)
	}
}

// LoadAll loads pages until the collection is exhausted, waiting on limiter between requests.
// Unlike [Pager.LoadMore] it stops at the first failure and returns it.
func (p *Pager) LoadAll(ctx context.Context, limiter *rate.Limiter, progress chan<- ProgressUpdate) error {
	for page := 1; ; page++ {
		cursor := p.Cursor()
		if !cursor.HasMore {
			return nil
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return fmt.Errorf("%w: %v", shared.ErrTimeout, err)
			}
		}

		sendProgress(progress, fetchingPageUpdate(page, cursor.NextOffset))
		started, err := p.load(ctx, cursor.NextOffset)
		if err != nil {
			return err
		}
		if !started {
			return fmt.Errorf("%w: another page load is in progress", shared.ErrServiceUnavailable)
		}
		sendProgress(progress, fetchedPageUpdate(page, p.State()))
	}
}

// Reset restores the initial state. A fetch still in flight is discarded when it returns.
func (p *Pager) Reset() {
	p.mu.Lock()
	p.generation++
	p.items = nil
	p.total = 0
	p.cursor = models.InitialCursor()
	state := p.stateLocked()
	p.observers.Publish(state)
	p.mu.Unlock()

	p.logger.Debug("pager reset")
	p.observers.Flush()
}

// load reports whether a fetch was issued.
func (p *Pager) load(ctx context.Context, offset int) (bool, error) {
	p.mu.Lock()
	if p.cursor.IsLoading || !p.cursor.HasMore {
		p.mu.Unlock()
		return false, nil
	}
	p.cursor.IsLoading = true
	gen := p.generation
	state := p.stateLocked()
	p.observers.Publish(state)
	p.mu.Unlock()
	p.observers.Flush()

	p.logger.Debug("fetching playlists", "offset", offset, "limit", p.pageSize)
	page, err := p.fetcher.Playlists(ctx, offset, p.pageSize)

	p.mu.Lock()
	if gen != p.generation {
		p.mu.Unlock()
		p.logger.Debug("discarding page fetched before reset", "offset", offset)
		return true, nil
	}
	p.cursor.IsLoading = false

	switch {
	case err != nil:
	case len(page.Items) == 0:
		p.cursor.HasMore = false
	default:
		items := slices.Clone(page.Items)
		models.SortByModified(items)
		p.items = append(p.items, items...)
		p.total = page.Total
		p.cursor.NextOffset = offset + len(items)
		p.cursor.HasMore = p.cursor.NextOffset < page.Total
	}
	state = p.stateLocked()
	p.observers.Publish(state)
	p.mu.Unlock()
	p.observers.Flush()

	if err != nil && errors.Is(err, shared.ErrNotAuthenticated) && p.onUnauthorized != nil {
		p.onUnauthorized()
	}
	return true, err
}

func (p *Pager) stateLocked() PagerState {
	return PagerState{
		Collection: slices.Clone(p.items),
		Cursor:     p.cursor,
		Total:      p.total,
	}
}
