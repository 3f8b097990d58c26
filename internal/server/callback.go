package server

import (
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/desertthunder/shffl/internal/shared"
	"golang.org/x/oauth2"
)

// CallbackPath is where the backend sends the browser after login.
const CallbackPath = "/callback"

// CallbackResult contains the outcome of a login.
type CallbackResult struct {
	Token *oauth2.Token
	err   error
}

func (c *CallbackResult) Error() error {
	return c.err
}

// CallbackHandler receives the session token from the backend login redirect.
type CallbackHandler struct {
	state       string
	resultChan  chan CallbackResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
	now         func() time.Time
}

// NewCallbackHandler creates a handler that accepts a single callback carrying state.
func NewCallbackHandler(state string) *CallbackHandler {
	return &CallbackHandler{
		state:      state,
		resultChan: make(chan CallbackResult, 1),
		now:        time.Now,
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{CallbackPath}
}

// ServeHTTP validates the callback and sends the result through the result channel.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	q := r.URL.Query()

	if q.Get("state") != h.state {
		h.Send(CallbackResult{err: fmt.Errorf("%w: invalid state parameter", shared.ErrAuthFailed)})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	if errParam := q.Get("error"); errParam != "" {
		h.Send(CallbackResult{err: fmt.Errorf("%w: %s - %s", shared.ErrAuthFailed, errParam, q.Get("error_description"))})
		http.Error(w, "Login failed", http.StatusBadRequest)
		return
	}

	token := &oauth2.Token{AccessToken: q.Get("token"), TokenType: q.Get("token_type")}
	if token.AccessToken == "" {
		h.Send(CallbackResult{err: fmt.Errorf("%w: callback carried no token", shared.ErrAuthFailed)})
		http.Error(w, "Login failed", http.StatusBadRequest)
		return
	}
	if token.TokenType == "" {
		token.TokenType = "Bearer"
	}
	if s := q.Get("expires_in"); s != "" {
		secs, err := strconv.Atoi(s)
		if err != nil || secs <= 0 {
			h.Send(CallbackResult{err: fmt.Errorf("%w: invalid expires_in %q", shared.ErrAuthFailed, s)})
			http.Error(w, "Login failed", http.StatusBadRequest)
			return
		}
		token.Expiry = h.now().Add(time.Duration(secs) * time.Second)
	}

	h.Send(CallbackResult{Token: token})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	successPage.Execute(w, nil)
}

// Send sends the result through the channel (only once).
func (h *CallbackHandler) Send(result CallbackResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving login completion.
//
// Channel will receive exactly one result and then be closed.
func (h *CallbackHandler) Result() <-chan CallbackResult {
	return h.resultChan
}

var successPage = template.Must(template.New("success").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Logged in to Shffl</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #121212; }
        .container { text-align: center; background: #181818; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.4); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #b3b3b3; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>✓ Logged in</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`))
