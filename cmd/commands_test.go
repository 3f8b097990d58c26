package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/shffl/internal/models"
	"github.com/desertthunder/shffl/internal/shared"
	"github.com/urfave/cli/v3"
)

// backend is a fake Shffl server that accepts the bearer token "tok".
type backend struct {
	mu          sync.Mutex
	total       int
	frames      []string
	queueStatus int
	logouts     int
	listings    int
}

func (b *backend) handler() http.Handler {
	mux := http.NewServeMux()
	authorized := func(r *http.Request) bool {
		return r.Header.Get("Authorization") == "Bearer tok"
	}

	mux.HandleFunc("GET /user", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		io.WriteString(w, `{"id":"u1","display_name":"Ada"}`)
	})

	mux.HandleFunc("GET /logout", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.logouts++
	})

	mux.HandleFunc("GET /playlists", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.listings++
		b.mu.Unlock()
		if !authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		names := []string{"Road Trip", "Focus", "Running Mix"}

		items := []map[string]any{}
		for i := offset; i < min(offset+limit, b.total); i++ {
			items = append(items, map[string]any{
				"id":          fmt.Sprintf("pl%d", i),
				"name":        fmt.Sprintf("%s %d", names[i%len(names)], i),
				"tracks":      map[string]any{"total": 10 + i},
				"modified_at": time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(-time.Duration(i) * time.Hour).Format(time.RFC3339),
			})
		}
		json.NewEncoder(w).Encode(map[string]any{"items": items, "total": b.total})
	})

	mux.HandleFunc("GET /queue-playlist/{id}", func(w http.ResponseWriter, r *http.Request) {
		if b.queueStatus != 0 {
			w.WriteHeader(b.queueStatus)
			return
		}
		flusher := w.(http.Flusher)
		w.Header().Set("Content-Type", "text/event-stream")
		for _, frame := range b.frames {
			fmt.Fprintf(w, "data: %s\n\n", frame)
			flusher.Flush()
		}
		<-r.Context().Done()
	})

	return mux
}

func (b *backend) Logouts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.logouts
}

// Listings counts /playlists requests.
func (b *backend) Listings() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.listings
}

// newTestRunner points a runner at a fake backend with a config file under t.TempDir.
func newTestRunner(t *testing.T, b *backend, token string) (*Runner, *bytes.Buffer, string) {
	t.Helper()

	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)

	config := shared.DefaultConfig()
	config.Client.BaseURL = srv.URL
	config.Client.OpenBrowser = false
	config.Client.CompletionHold = shared.Duration{Duration: 10 * time.Millisecond}
	config.Cache.Driver = "memory"
	config.Session.AccessToken = token

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := shared.SaveConfig(path, config); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: path,
		Logger:     shared.NewLogger(io.Discard),
		Output:     output,
	})
	t.Cleanup(func() { runner.Close() })
	return runner, output, path
}

func run(r *Runner, args ...string) error {
	root := &cli.Command{Name: "shffl", Commands: r.register()}
	return root.Run(context.Background(), append([]string{"shffl"}, args...))
}

func TestWhoAmI(t *testing.T) {
	t.Run("prints the identity", func(t *testing.T) {
		b := &backend{total: 10}
		runner, output, _ := newTestRunner(t, b, "tok")

		if err := run(runner, "whoami"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := output.String(); got != "Logged in as Ada (u1)\n" {
			t.Errorf("unexpected output %q", got)
		}
		if n := b.Listings(); n != 0 {
			t.Errorf("expected no playlist requests, got %d", n)
		}
	})

	t.Run("json prints the verbatim payload", func(t *testing.T) {
		runner, output, _ := newTestRunner(t, &backend{}, "tok")

		if err := run(runner, "whoami", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := output.String(); got != `{"id":"u1","display_name":"Ada"}`+"\n" {
			t.Errorf("unexpected output %q", got)
		}
	})

	t.Run("without a session", func(t *testing.T) {
		runner, _, _ := newTestRunner(t, &backend{}, "")

		err := run(runner, "whoami")
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}

func TestPlaylists(t *testing.T) {
	t.Run("first page as a table", func(t *testing.T) {
		runner, output, _ := newTestRunner(t, &backend{total: 60}, "tok")

		if err := run(runner, "playlists"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		got := output.String()
		if !strings.Contains(got, "Your Playlists (50)") {
			t.Errorf("expected first page header, got %q", got)
		}
		if !strings.Contains(got, "Showing 50 of 60") {
			t.Errorf("expected more-available hint, got %q", got)
		}
	})

	t.Run("all pages as json", func(t *testing.T) {
		runner, output, _ := newTestRunner(t, &backend{total: 60}, "tok")

		if err := run(runner, "playlists", "--all", "--rps", "100", "--format", "json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var playlists []models.Playlist
		if err := json.Unmarshal(output.Bytes(), &playlists); err != nil {
			t.Fatalf("expected JSON output, got %v: %q", err, output.String())
		}
		if len(playlists) != 60 {
			t.Errorf("expected 60 playlists, got %d", len(playlists))
		}
	})

	t.Run("filter keeps fuzzy matches", func(t *testing.T) {
		runner, output, _ := newTestRunner(t, &backend{total: 6}, "tok")

		if err := run(runner, "playlists", "--filter", "road", "--format", "txt"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		got := output.String()
		if !strings.Contains(got, "Road Trip 0") || !strings.Contains(got, "Road Trip 3") {
			t.Errorf("expected road trip playlists, got %q", got)
		}
		if strings.Contains(got, "Focus") {
			t.Errorf("expected Focus to be filtered out, got %q", got)
		}
	})

	t.Run("output file", func(t *testing.T) {
		runner, output, _ := newTestRunner(t, &backend{total: 3}, "tok")
		path := filepath.Join(t.TempDir(), "out", "playlists.csv")

		if err := run(runner, "playlists", "--format", "csv", "--output", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("expected export file, got %v", err)
		}
		if !strings.HasPrefix(string(data), "ID,Name,Tracks,Modified,Cover") {
			t.Errorf("unexpected csv %q", data)
		}
		if !strings.Contains(output.String(), "Exported 3 playlists") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		runner, _, _ := newTestRunner(t, &backend{}, "tok")

		if err := run(runner, "playlists", "--format", "yaml"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("without a session", func(t *testing.T) {
		runner, _, _ := newTestRunner(t, &backend{total: 3}, "")

		if err := run(runner, "playlists"); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}

func TestShuffle(t *testing.T) {
	t.Run("prints each status change", func(t *testing.T) {
		b := &backend{frames: []string{`{"current":0,"total":4}`, `{"current":2,"total":4}`, `{"complete":true}`}}
		runner, output, _ := newTestRunner(t, b, "tok")

		if err := run(runner, "shuffle", "pl0"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if n := b.Listings(); n != 0 {
			t.Errorf("expected no playlist requests, got %d", n)
		}

		got := output.String()
		for _, want := range []string{"Queueing tracks...", "Queueing tracks... 2/4", "Queued 2/4 tracks.", "Done."} {
			if !strings.Contains(got, want+"\n") {
				t.Errorf("expected %q in output, got %q", want, got)
			}
		}
	})

	t.Run("stream failure", func(t *testing.T) {
		runner, output, _ := newTestRunner(t, &backend{queueStatus: http.StatusInternalServerError}, "tok")

		err := run(runner, "shuffle", "pl0")
		if !errors.Is(err, shared.ErrStreamFailed) {
			t.Errorf("expected ErrStreamFailed, got %v", err)
		}
		if !strings.Contains(output.String(), "Failed to queue tracks. Please try again.\n") {
			t.Errorf("expected the error message, got %q", output.String())
		}
		if got := runner.app.Queue.Snapshot().State.String(); got != "idle" {
			t.Errorf("expected the queue to be closed, got %s", got)
		}
	})

	t.Run("missing id", func(t *testing.T) {
		runner, _, _ := newTestRunner(t, &backend{}, "tok")

		if err := run(runner, "shuffle"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestLogout(t *testing.T) {
	b := &backend{}
	runner, output, path := newTestRunner(t, b, "tok")

	if err := run(runner, "logout"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if b.Logouts() != 1 {
		t.Errorf("expected one backend logout, got %d", b.Logouts())
	}
	if !strings.Contains(output.String(), "Logged out") {
		t.Errorf("unexpected output %q", output.String())
	}

	saved, err := shared.LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}
	if saved.Session.AccessToken != "" {
		t.Error("expected the saved token to be cleared")
	}
}

func TestCacheClear(t *testing.T) {
	runner, output, _ := newTestRunner(t, &backend{}, "tok")

	if err := run(runner, "whoami"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := run(runner, "cache", "clear"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if _, err := runner.app.Store.Get("user"); err == nil {
		t.Error("expected the cached identity to be gone")
	}
	if !strings.Contains(output.String(), "Cache cleared") {
		t.Errorf("unexpected output %q", output.String())
	}
}

func TestConfig(t *testing.T) {
	t.Run("init writes the defaults", func(t *testing.T) {
		runner, output, _ := newTestRunner(t, &backend{}, "")
		path := filepath.Join(t.TempDir(), "new.toml")

		if err := run(runner, "config", "init", "--config", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, err := shared.LoadConfig(path); err != nil {
			t.Errorf("expected a loadable config, got %v", err)
		}
		if !strings.Contains(output.String(), "Wrote "+path) {
			t.Errorf("unexpected output %q", output.String())
		}

		if err := run(runner, "config", "init", "--config", path); err == nil {
			t.Error("expected an error for an existing file")
		}
	})

	t.Run("show redacts the token", func(t *testing.T) {
		runner, output, _ := newTestRunner(t, &backend{}, "secret-token")

		if err := run(runner, "config", "show"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if strings.Contains(output.String(), "secret-token") {
			t.Error("expected the token to be redacted")
		}
		if runner.config.Session.AccessToken != "secret-token" {
			t.Error("expected the runner config to be untouched")
		}
	})
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find a free port: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestLogin(t *testing.T) {
	t.Run("stores the callback token", func(t *testing.T) {
		runner, output, path := newTestRunner(t, &backend{}, "")
		runner.config.Server.Port = freePort(t)

		runner.redirector.Open = func(target string) error {
			u, err := url.Parse(target)
			if err != nil {
				return err
			}
			callback := u.Query().Get("redirect_uri") + "?" + url.Values{
				"state": {u.Query().Get("state")},
				"token": {"tok"},
			}.Encode()
			go func() {
				resp, err := http.Get(callback)
				if err == nil {
					resp.Body.Close()
				}
			}()
			return nil
		}

		if err := run(runner, "login", "--timeout", "5s"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if got := output.String(); got != "✓ Logged in as Ada\n" {
			t.Errorf("unexpected output %q", got)
		}

		saved, err := shared.LoadConfig(path)
		if err != nil {
			t.Fatalf("failed to reload config: %v", err)
		}
		if saved.Session.AccessToken != "tok" {
			t.Errorf("expected saved token, got %q", saved.Session.AccessToken)
		}
	})

	t.Run("times out without a callback", func(t *testing.T) {
		runner, _, _ := newTestRunner(t, &backend{}, "")
		runner.config.Server.Port = freePort(t)

		err := run(runner, "login", "--timeout", "50ms")
		if !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
	})

	t.Run("rejected callback", func(t *testing.T) {
		runner, _, _ := newTestRunner(t, &backend{}, "")
		runner.config.Server.Port = freePort(t)

		runner.redirector.Open = func(target string) error {
			u, _ := url.Parse(target)
			go func() {
				resp, err := http.Get(u.Query().Get("redirect_uri") + "?state=wrong&token=tok")
				if err == nil {
					resp.Body.Close()
				}
			}()
			return nil
		}

		err := run(runner, "login", "--timeout", "5s")
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})
}
