package main

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/desertthunder/shffl/internal/server"
	"github.com/desertthunder/shffl/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Login starts the callback listener, redirects to the backend login page, and stores the token it sends back.
func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	a, err := r.App(ctx)
	if err != nil {
		return err
	}

	token, err := r.awaitLogin(ctx, cmd.Duration("timeout"))
	if err != nil {
		return err
	}

	identity := a.Authorize(token)
	if identity == nil {
		return fmt.Errorf("%w: backend rejected the new session", shared.ErrAuthFailed)
	}

	r.logger.Info("login successful", "user", identity.Name())
	return r.writePlain("✓ Logged in as %s\n", identity.Name())
}

// awaitLogin runs one login round trip and persists the resulting token.
func (r *Runner) awaitLogin(ctx context.Context, timeout time.Duration) (*oauth2.Token, error) {
	a, err := r.App(ctx)
	if err != nil {
		return nil, err
	}

	state := shared.GenerateID()
	handler := server.NewCallbackHandler(state)

	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger))
	router.Handler(handler)

	listener, err := server.Listen(r.config.Server.Addr(), router)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := listener.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("callback listener shutdown failed", "error", err)
		}
	}()

	r.redirector.LoginQuery = url.Values{
		"redirect_uri": {r.config.Server.CallbackURL()},
		"state":        {state},
	}
	r.logger.Debug("waiting for login callback", "addr", listener.Addr())

	if err := a.Session.Login(ctx); err != nil {
		r.logger.Warn("failed to open browser", "error", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var token *oauth2.Token
	select {
	case result := <-handler.Result():
		if err := result.Error(); err != nil {
			return nil, err
		}
		token = result.Token
	case err := <-listener.Errors():
		return nil, fmt.Errorf("%w: callback listener: %v", shared.ErrServiceUnavailable, err)
	case <-waitCtx.Done():
		return nil, fmt.Errorf("%w: no login callback within %v", shared.ErrTimeout, timeout)
	}

	if err := r.config.Session.Update(token); err != nil {
		return nil, err
	}
	if err := r.saveConfig(); err != nil {
		r.logger.Warn("failed to save session", "error", err)
	}
	return token, nil
}

// Logout ends the backend session, clears the cached identity, and forgets the stored token.
func (r *Runner) Logout(ctx context.Context, cmd *cli.Command) error {
	a, err := r.App(ctx)
	if err != nil {
		return err
	}

	a.Logout(ctx)

	if err := r.config.Session.Update(nil); err != nil {
		return err
	}
	if err := r.saveConfig(); err != nil {
		return err
	}
	return r.writePlain("✓ Logged out\n")
}

// WhoAmI resolves the session, from the cache when possible.
func (r *Runner) WhoAmI(ctx context.Context, cmd *cli.Command) error {
	a, err := r.App(ctx)
	if err != nil {
		return err
	}

	identity := a.Session.Resolve(ctx)
	if identity == nil {
		return fmt.Errorf("%w: no session", shared.ErrNotAuthenticated)
	}

	if cmd.Bool("json") {
		return r.writeRaw(identity.Raw)
	}
	return r.writePlain("Logged in as %s (%s)\n", identity.Name(), identity.ID)
}
