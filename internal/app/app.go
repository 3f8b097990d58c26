// package app wires the session, pagination, and queue controllers into one client.
//
// The session gates the pager: [App.Start] loads the first page once the session resolves to an identity, and
// losing the session resets the collection so the next login starts over.
package app

import (
	"context"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/shffl/internal/cache"
	"github.com/desertthunder/shffl/internal/models"
	"github.com/desertthunder/shffl/internal/services"
	"github.com/desertthunder/shffl/internal/session"
	"github.com/desertthunder/shffl/internal/shared"
	"github.com/desertthunder/shffl/internal/tasks"
	"golang.org/x/oauth2"
)

// Options overrides the dependencies [New] would otherwise build from the config.
type Options struct {
	Logger     *log.Logger
	Store      cache.Store        // defaults to [cache.Open] with the [cache] section
	Redirector session.Redirector // defaults to a [session.BrowserRedirector] that only logs
	HTTPClient *http.Client       // defaults to a client sending the session token
}

// App owns one instance of every controller.
type App struct {
	Config  *shared.Config
	Token   *services.SessionToken
	Client  *services.Client
	Store   cache.Store
	Session *session.Controller
	Pager   *tasks.Pager
	Scroll  *tasks.ScrollTrigger
	Queue   *tasks.Queue

	logger *log.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	loaded      bool
	unsubscribe func()
	closeOnce   sync.Once
}

// New builds the controllers and subscribes the pager to the session. ctx bounds every background load.
func New(ctx context.Context, cfg *shared.Config, opts Options) (*App, error) {
	if cfg == nil {
		cfg = shared.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	store := opts.Store
	if store == nil {
		var err error
		if store, err = cache.Open(cfg.Cache); err != nil {
			return nil, err
		}
	}

	token := services.NewSessionToken(cfg.Session.Token())
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = services.NewSessionHTTPClient(token, nil)
	}
	client := services.NewClient(cfg.Client.BaseURL, httpClient).
		WithRequestTimeout(cfg.Client.RequestTimeout.Duration)

	redirect := opts.Redirector
	if redirect == nil {
		redirect = &session.BrowserRedirector{BaseURL: cfg.Client.BaseURL, Logger: logger}
	}

	a := &App{Config: cfg, Token: token, Client: client, Store: store, logger: logger}
	a.ctx, a.cancel = context.WithCancel(ctx)

	a.Session = session.NewController(client, store, redirect, logger)
	a.Pager = tasks.NewPager(client, tasks.PagerOpts{
		PageSize:       cfg.Client.PageSize,
		OnUnauthorized: a.Session.Invalidate,
	}, logger)
	a.Scroll = tasks.NewScrollTrigger(a.Pager, cfg.Client.ScrollThreshold, cfg.Client.ScrollDebounce.Duration)
	a.Queue = tasks.NewQueue(func(id string) tasks.Stream { return client.QueueStream(id) },
		cfg.Client.CompletionHold.Duration, logger)

	a.unsubscribe = a.Session.Subscribe(a.onSession)
	return a, nil
}

// Start resolves the session. When it resolves to an identity the first page is loaded before Start returns,
// and a page rejected with 401 leaves the app unauthenticated.
func (a *App) Start() *models.Identity {
	if a.Session.Resolve(a.ctx) == nil {
		return nil
	}

	a.mu.Lock()
	first := !a.loaded
	a.loaded = true
	a.mu.Unlock()

	if first {
		a.logger.Debug("session ready, loading playlists")
		a.Pager.LoadMore(a.ctx, 0)
	}
	return a.Session.Identity()
}

// Authorize replaces the session token after a login and resolves the session from the network.
func (a *App) Authorize(token *oauth2.Token) *models.Identity {
	a.Token.Set(token)
	a.Session.Invalidate()
	return a.Start()
}

// Logout ends the session and drops the token.
func (a *App) Logout(ctx context.Context) {
	a.Session.Logout(ctx)
	a.Token.Set(nil)
}

// Context is cancelled by [App.Close].
func (a *App) Context() context.Context { return a.ctx }

// Scrolled forwards a scroll report to the debounced trigger.
func (a *App) Scrolled(pos tasks.ScrollPosition) {
	a.Scroll.Report(a.ctx, pos)
}

// Shuffle starts the queue job for a playlist.
func (a *App) Shuffle(playlistID string) {
	a.Queue.Start(a.ctx, playlistID)
}

// Close tears down the stream, timers, and cache. It is safe to call more than once.
func (a *App) Close() error {
	var err error
	a.closeOnce.Do(func() {
		a.unsubscribe()
		a.Scroll.Stop()
		a.Queue.Close()
		a.cancel()
		err = a.Store.Close()
	})
	return err
}

func (a *App) onSession(s session.Snapshot) {
	switch s.State {
	case session.Authenticated:
		a.logger.Debug("session authenticated", "user", s.Identity.Name())
	case session.Unauthenticated:
		a.mu.Lock()
		wasLoaded := a.loaded
		a.loaded = false
		a.mu.Unlock()

		a.Scroll.Stop()
		if wasLoaded {
			a.Pager.Reset()
		}
	}
}
