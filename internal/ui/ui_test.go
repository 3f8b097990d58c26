package ui

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/shffl/internal/app"
	"github.com/desertthunder/shffl/internal/cache"
	"github.com/desertthunder/shffl/internal/models"
	"github.com/desertthunder/shffl/internal/session"
	"github.com/desertthunder/shffl/internal/shared"
	"github.com/desertthunder/shffl/internal/tasks"
	tu "github.com/desertthunder/shffl/internal/testing"
	"golang.org/x/oauth2"
)

type noopRedirector struct{}

func (noopRedirector) Redirect(context.Context, string) error { return nil }

// fakeBackend answers /user with 200 for bearer requests or once authorized, and fails the queue stream.
type fakeBackend struct {
	mu         sync.Mutex
	authorized bool
}

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /user", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if !f.authorized && r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		io.WriteString(w, `{"id":"u1","display_name":"Ada"}`)
	})
	mux.HandleFunc("GET /playlists", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"items":[],"total":0}`)
	})
	mux.HandleFunc("GET /queue-playlist/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	return mux
}

func newTestModel(t *testing.T, login LoginFunc) (*Model, *fakeBackend) {
	t.Helper()

	b := &fakeBackend{}
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)

	cfg := shared.DefaultConfig()
	cfg.Client.BaseURL = srv.URL
	cfg.Client.ScrollDebounce = shared.Duration{Duration: 10 * time.Millisecond}
	cfg.Client.CompletionHold = shared.Duration{Duration: 10 * time.Millisecond}
	cfg.Cache.Driver = "memory"

	a, err := app.New(context.Background(), cfg, app.Options{
		Logger:     shared.NewLogger(io.Discard),
		Store:      cache.NewMemoryStore(),
		Redirector: noopRedirector{},
	})
	if err != nil {
		t.Fatalf("failed to build app: %v", err)
	}

	m := NewModel(a, login)
	t.Cleanup(func() {
		m.Close()
		a.Close()
	})
	return m, b
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func authenticated(name string) session.Snapshot {
	identity, _ := models.ParseIdentity([]byte(`{"id":"u1","display_name":"` + name + `"}`))
	return session.Snapshot{State: session.Authenticated, Identity: identity}
}

func TestModel(t *testing.T) {
	t.Run("starts on the login view while resolving", func(t *testing.T) {
		m, _ := newTestModel(t, nil)

		if m.view != LoginView {
			t.Errorf("expected LoginView, got %v", m.view)
		}
		if !strings.Contains(m.View(), "Checking session...") {
			t.Errorf("expected resolving hint, got %q", m.View())
		}

		m.Update(resolvedMsg(nil))
		if !strings.Contains(m.View(), "Press l to log in") {
			t.Errorf("expected login prompt, got %q", m.View())
		}
	})

	t.Run("session changes switch views", func(t *testing.T) {
		m, _ := newTestModel(t, nil)

		m.Update(sessionChangedMsg(authenticated("Ada")))
		if m.view != PlaylistListView {
			t.Fatalf("expected PlaylistListView, got %v", m.view)
		}
		if !strings.Contains(m.View(), "Logged in as Ada") {
			t.Errorf("expected greeting, got %q", m.View())
		}

		m.Update(sessionChangedMsg(session.Snapshot{State: session.Unauthenticated}))
		if m.view != LoginView {
			t.Errorf("expected LoginView after logout, got %v", m.view)
		}
	})

	t.Run("pager changes fill the list", func(t *testing.T) {
		m, _ := newTestModel(t, nil)
		m.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
		m.Update(sessionChangedMsg(authenticated("Ada")))

		state := tasks.PagerState{
			Collection: []models.Playlist{{ID: "a", Name: "Alpha", TrackCount: 1}, {ID: "b", Name: "Beta", TrackCount: 2}},
			Cursor:     models.Cursor{NextOffset: 2, HasMore: true, IsLoading: true},
			Total:      4,
		}
		m.Update(pagerChangedMsg(state))

		if got := len(m.list.Items()); got != 2 {
			t.Errorf("expected 2 items, got %d", got)
		}
		view := m.View()
		if !strings.Contains(view, "Your Playlists (2)") {
			t.Errorf("expected title with count, got %q", view)
		}
		if !strings.Contains(view, "Loading more...") {
			t.Errorf("expected loading footer, got %q", view)
		}
	})

	t.Run("progress overlay shows counts", func(t *testing.T) {
		m, _ := newTestModel(t, nil)
		m.Update(sessionChangedMsg(authenticated("Ada")))

		m.Update(queueChangedMsg(tasks.QueueSnapshot{State: tasks.QueueStreaming, Progress: &models.Progress{}}))
		if view := m.View(); !strings.Contains(view, "Queueing tracks...") || strings.Contains(view, "0/0") {
			t.Errorf("expected indeterminate overlay, got %q", view)
		}

		m.Update(queueChangedMsg(tasks.QueueSnapshot{State: tasks.QueueStreaming, Progress: &models.Progress{Current: 3, Total: 10}}))
		if view := m.View(); !strings.Contains(view, "3/10 tracks") {
			t.Errorf("expected 3/10 tracks, got %q", view)
		}

		m.Update(queueChangedMsg(tasks.QueueSnapshot{State: tasks.QueueIdle}))
		if view := m.View(); strings.Contains(view, "Queueing tracks") {
			t.Errorf("expected overlay gone, got %q", view)
		}
	})

	t.Run("keys are ignored behind the progress overlay", func(t *testing.T) {
		m, _ := newTestModel(t, nil)
		m.Update(sessionChangedMsg(authenticated("Ada")))
		m.Update(pagerChangedMsg(tasks.PagerState{Collection: []models.Playlist{{ID: "a", Name: "Alpha"}}}))
		m.Update(queueChangedMsg(tasks.QueueSnapshot{State: tasks.QueueStreaming, Progress: &models.Progress{}}))

		m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		if got := m.app.Queue.Snapshot().State; got != tasks.QueueIdle {
			t.Errorf("expected no new job while busy, got %v", got)
		}
	})

	t.Run("quit", func(t *testing.T) {
		m, _ := newTestModel(t, nil)

		_, cmd := m.Update(runes("q"))
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
	})
}

func TestModel_ErrorDialog(t *testing.T) {
	m, _ := newTestModel(t, nil)
	m.Update(sessionChangedMsg(authenticated("Ada")))
	m.Update(pagerChangedMsg(tasks.PagerState{Collection: []models.Playlist{{ID: "a", Name: "Alpha"}}}))

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if !tu.WaitFor(t, 2*time.Second, func() bool { return m.app.Queue.Snapshot().State == tasks.QueueErrored }) {
		t.Fatalf("expected errored queue, got %v", m.app.Queue.Snapshot().State)
	}
	m.Update(queueChangedMsg(m.app.Queue.Snapshot()))

	view := m.View()
	if !strings.Contains(view, tasks.QueueErrorMessage) {
		t.Errorf("expected error dialog, got %q", view)
	}

	m.Update(runes("o"))
	if m.app.Queue.Snapshot().State != tasks.QueueErrored {
		t.Error("expected other keys to leave the dialog open")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if got := m.app.Queue.Snapshot().State; got != tasks.QueueIdle {
		t.Errorf("expected dismiss to return to idle, got %v", got)
	}
}

func TestModel_Login(t *testing.T) {
	t.Run("successful login authorizes the app", func(t *testing.T) {
		var calls int
		login := func(ctx context.Context) (*oauth2.Token, error) {
			calls++
			return &oauth2.Token{AccessToken: "tok", TokenType: "Bearer"}, nil
		}
		m, _ := newTestModel(t, login)
		m.Update(resolvedMsg(nil))

		_, cmd := m.Update(runes("l"))
		if cmd == nil {
			t.Fatal("expected login command")
		}
		msg := cmd()
		m.Update(msg)

		if calls != 1 {
			t.Errorf("expected login to run once, got %d", calls)
		}
		if !m.app.Session.Authenticated() {
			t.Error("expected authenticated session after login")
		}
		if m.loginErr != nil {
			t.Errorf("expected no login error, got %v", m.loginErr)
		}
	})

	t.Run("failed login is shown", func(t *testing.T) {
		login := func(ctx context.Context) (*oauth2.Token, error) {
			return nil, errors.New("denied")
		}
		m, _ := newTestModel(t, login)
		m.Update(resolvedMsg(nil))

		_, cmd := m.Update(runes("l"))
		m.Update(cmd())

		if view := m.View(); !strings.Contains(view, "Login failed: denied") {
			t.Errorf("expected login error, got %q", view)
		}
	})

	t.Run("login is ignored while resolving", func(t *testing.T) {
		m, _ := newTestModel(t, nil)

		if _, cmd := m.Update(runes("l")); cmd != nil {
			t.Error("expected no command while resolving")
		}
	})
}

func TestModel_Events(t *testing.T) {
	m, b := newTestModel(t, nil)
	b.mu.Lock()
	b.authorized = true
	b.mu.Unlock()

	go m.app.Start()

	deadline := time.After(2 * time.Second)
	for {
		done := make(chan tea.Msg, 1)
		go func() { done <- m.waitForEvent()() }()

		select {
		case raw := <-done:
			msg, ok := raw.(Msg)
			if !ok {
				t.Fatalf("expected Msg, got %T", raw)
			}
			m.Update(msg)
			if msg.kind == MsgSessionChanged && m.session.State == session.Authenticated {
				if m.view != PlaylistListView {
					t.Errorf("expected PlaylistListView, got %v", m.view)
				}
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for the authenticated snapshot")
		}
	}
}

func TestModel_ScrollPosition(t *testing.T) {
	m, _ := newTestModel(t, nil)
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 26})
	playlists := make([]models.Playlist, 10)
	for i := range playlists {
		playlists[i] = models.Playlist{ID: string(rune('a' + i)), Name: "p"}
	}
	m.Update(pagerChangedMsg(tasks.PagerState{Collection: playlists}))
	m.list.Select(4)

	pos := m.scrollPosition()
	if pos.Top != 4*itemRows*cellPixels {
		t.Errorf("unexpected Top %d", pos.Top)
	}
	if pos.Height != 10*itemRows*cellPixels {
		t.Errorf("unexpected Height %d", pos.Height)
	}
	if pos.ClientHeight != m.list.Height()*cellPixels {
		t.Errorf("unexpected ClientHeight %d", pos.ClientHeight)
	}
}
