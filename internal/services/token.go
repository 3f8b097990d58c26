package services

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/desertthunder/shffl/internal/shared"
	"golang.org/x/oauth2"
)

// SessionToken is the backend session credential. It implements [oauth2.TokenSource] and can be replaced after a
// login without rebuilding the clients that use it.
type SessionToken struct {
	mu    sync.RWMutex
	token *oauth2.Token
}

// NewSessionToken holds token, which may be nil.
func NewSessionToken(token *oauth2.Token) *SessionToken {
	return &SessionToken{token: token}
}

// Token returns the held token, or [shared.ErrNotAuthenticated] when there is none or it has expired.
func (s *SessionToken) Token() (*oauth2.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.token.Valid() {
		return nil, fmt.Errorf("%w: no valid session token", shared.ErrNotAuthenticated)
	}
	return s.token, nil
}

// Set replaces the token. nil clears it.
func (s *SessionToken) Set(token *oauth2.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// sessionTransport attaches the session token when one is held and sends the request bare otherwise, so the backend
// answers 401 instead of the transport failing.
type sessionTransport struct {
	source *SessionToken
	base   http.RoundTripper
}

func (t *sessionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.source.Token()
	if err != nil {
		return t.base.RoundTrip(req)
	}
	authorized := &oauth2.Transport{Source: oauth2.StaticTokenSource(token), Base: t.base}
	return authorized.RoundTrip(req)
}

// NewSessionHTTPClient returns an [http.Client] that sends the current session token as a bearer credential.
// A nil base uses [http.DefaultTransport].
func NewSessionHTTPClient(source *SessionToken, base http.RoundTripper) *http.Client {
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{Transport: &sessionTransport{source: source, base: base}}
}
