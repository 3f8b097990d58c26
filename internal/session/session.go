// package session resolves who the user is and owns the derived "authenticated" flag.
//
// Resolution is cache-first: a cached identity blob is trusted until explicitly invalidated, and only its absence
// triggers a GET /user. Every failure, whether a bad cache entry, a 401, a transport error, or an error-shaped payload,
// demotes the controller to [Unauthenticated] and purges the cache; none of them is returned to the caller.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/shffl/internal/cache"
	"github.com/desertthunder/shffl/internal/models"
	"github.com/desertthunder/shffl/internal/services"
	"github.com/desertthunder/shffl/internal/shared"
)

const (
	LoginPath  = "/login"
	LogoutPath = "/"
)

// State is the session state machine: Unauthenticated → Resolving → Authenticated, and back on logout.
type State int

const (
	Unauthenticated State = iota
	Resolving
	Authenticated
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Resolving:
		return "resolving"
	case Authenticated:
		return "authenticated"
	default:
		return ""
	}
}

// Snapshot is the observable session state.
type Snapshot struct {
	State    State
	Identity *models.Identity
}

// Authenticated reports whether the snapshot carries a resolved identity.
func (s Snapshot) Authenticated() bool {
	return s.State == Authenticated && s.Identity != nil
}

// API is the part of the backend the controller talks to.
type API interface {
	User(ctx context.Context) (*services.APIResponse, error)
	Logout(ctx context.Context) error
}

// Redirector sends the user agent to a backend path.
type Redirector interface {
	Redirect(ctx context.Context, path string) error
}

// Controller owns the session state.
type Controller struct {
	api      API
	store    cache.Store
	redirect Redirector
	logger   *log.Logger

	mu       sync.Mutex
	state    State
	identity *models.Identity

	observers shared.Observers[Snapshot]
}

// NewController creates a controller in the [Unauthenticated] state.
func NewController(api API, store cache.Store, redirect Redirector, logger *log.Logger) *Controller {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Controller{
		api:      api,
		store:    store,
		redirect: redirect,
		logger:   shared.WithLogger(logger, "component", "session"),
		state:    Unauthenticated,
	}
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{State: c.state, Identity: c.identity}
}

// State returns the current state.
func (c *Controller) State() State { return c.Snapshot().State }

// Identity returns the resolved identity, or nil.
func (c *Controller) Identity() *models.Identity { return c.Snapshot().Identity }

// Authenticated reports whether an identity is resolved.
func (c *Controller) Authenticated() bool { return c.Snapshot().Authenticated() }

// Subscribe registers fn for every state change.
func (c *Controller) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	return c.observers.Subscribe(fn)
}

// Resolve determines the current identity, returning nil when unauthenticated. It does not retry.
//
// The result is read back after subscribers ran, so a subscriber that drops the session makes Resolve return nil.
func (c *Controller) Resolve(ctx context.Context) *models.Identity {
	c.set(Resolving, nil)

	raw, err := c.store.Get(cache.IdentityKey)
	switch {
	case err == nil:
		identity, err := models.ParseIdentity(raw)
		if err != nil {
			c.logger.Info("cached identity rejected", "error", err)
			return c.demote()
		}
		c.logger.Debug("identity restored from cache", "id", identity.ID)
		c.set(Authenticated, identity)
		return c.Identity()
	case errors.Is(err, cache.ErrNotFound):
	default:
		c.logger.Warn("identity cache read failed, asking the backend", "error", err)
	}

	resp, err := c.api.User(ctx)
	if err != nil {
		c.logger.Warn("failed to check login status", "error", err)
		return c.demote()
	}
	if !resp.OK() {
		c.logger.Info("backend reports no session", "status", resp.StatusCode)
		return c.demote()
	}

	identity, err := models.ParseIdentity(resp.Body)
	if err != nil {
		c.logger.Info("backend identity rejected", "error", err)
		return c.demote()
	}

	if err := c.store.Set(cache.IdentityKey, resp.Body); err != nil {
		c.logger.Warn("failed to cache identity", "error", err)
	}

	c.set(Authenticated, identity)
	return c.Identity()
}

// Login redirects the user agent to the backend login page.
func (c *Controller) Login(ctx context.Context) error {
	return c.redirect.Redirect(ctx, LoginPath)
}

// Logout clears the session locally first, then notifies the backend best-effort and redirects to the root.
func (c *Controller) Logout(ctx context.Context) {
	c.purge()
	c.set(Unauthenticated, nil)

	if err := c.api.Logout(ctx); err != nil {
		c.logger.Warn("logout notification failed", "error", err)
	}
	if err := c.redirect.Redirect(ctx, LogoutPath); err != nil {
		c.logger.Warn("post-logout redirect failed", "error", err)
	}
}

// Invalidate drops the session without contacting the backend, e.g. after a request was answered with 401.
func (c *Controller) Invalidate() {
	c.demote()
}

func (c *Controller) demote() *models.Identity {
	c.purge()
	c.set(Unauthenticated, nil)
	return nil
}

func (c *Controller) purge() {
	if err := c.store.Delete(cache.IdentityKey); err != nil {
		c.logger.Warn("failed to purge cached identity", "error", err)
	}
}

func (c *Controller) set(state State, identity *models.Identity) {
	c.mu.Lock()
	c.state = state
	c.identity = identity
	c.observers.Publish(Snapshot{State: state, Identity: identity})
	c.mu.Unlock()

	c.observers.Flush()
}
