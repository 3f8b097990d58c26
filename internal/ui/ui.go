package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/shffl/internal/app"
	"github.com/desertthunder/shffl/internal/models"
	"github.com/desertthunder/shffl/internal/session"
	"github.com/desertthunder/shffl/internal/tasks"
	"golang.org/x/oauth2"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LoginView ViewState = iota
	PlaylistListView
)

// Each list entry is a title and a description line plus one blank spacer row.
const (
	itemRows = 3
	// cellPixels converts terminal rows to the pixel units the scroll threshold is configured in.
	cellPixels = 16
)

// LoginFunc runs the login flow and returns the new session token.
type LoginFunc func(ctx context.Context) (*oauth2.Token, error)

// Model represents the TUI application state.
type Model struct {
	app     *app.App
	login   LoginFunc
	events  chan tea.Msg
	unsubs  []func()
	view    ViewState
	width   int
	height  int
	list    list.Model
	spinner spinner.Model
	bar     progress.Model
	help    help.Model
	keys    keyMap
	now     func() time.Time

	session   session.Snapshot
	pager     tasks.PagerState
	queue     tasks.QueueSnapshot
	resolving bool
	loginErr  error
}

// NewModel creates the shell for a and subscribes to its controllers. login may be nil, in which case l only
// redirects the browser to the backend login page.
func NewModel(a *app.App, login LoginFunc) *Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Your Playlists (0)"
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	m := &Model{
		app:       a,
		login:     login,
		events:    make(chan tea.Msg, 64),
		view:      LoginView,
		list:      l,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.ok)),
		bar:       progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		help:      help.New(),
		keys:      newKeyMap(),
		now:       time.Now,
		resolving: true,
		pager:     a.Pager.State(),
	}

	m.unsubs = []func(){
		a.Session.Subscribe(func(s session.Snapshot) { m.forward(sessionChangedMsg(s)) }),
		a.Pager.Subscribe(func(s tasks.PagerState) { m.forward(pagerChangedMsg(s)) }),
		a.Queue.Subscribe(func(s tasks.QueueSnapshot) { m.forward(queueChangedMsg(s)) }),
	}
	return m
}

// Close removes the controller subscriptions.
func (m *Model) Close() {
	for _, unsubscribe := range m.unsubs {
		unsubscribe()
	}
}

// forward hands a controller snapshot to the update loop. It gives up once the app is closed.
func (m *Model) forward(msg tea.Msg) {
	select {
	case m.events <- msg:
	case <-m.app.Context().Done():
	}
}

// Init resolves the session and starts draining controller events.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.resolve(), m.waitForEvent())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-6)
		m.bar.Width = min(40, max(10, msg.Width-20))
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		return m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgSessionChanged:
		m.session = msg.data.(session.Snapshot)
		switch m.session.State {
		case session.Authenticated:
			m.view = PlaylistListView
			m.loginErr = nil
		case session.Unauthenticated:
			m.view = LoginView
		}
		return m, m.waitForEvent()

	case MsgPagerChanged:
		m.pager = msg.data.(tasks.PagerState)
		index := m.list.Index()
		cmd := m.list.SetItems(playlistItems(m.pager.Collection, m.now()))
		m.list.Title = fmt.Sprintf("Your Playlists (%d)", len(m.pager.Collection))
		if index < len(m.pager.Collection) {
			m.list.Select(index)
		}
		return m, tea.Batch(cmd, m.waitForEvent())

	case MsgQueueChanged:
		m.queue = msg.data.(tasks.QueueSnapshot)
		return m, m.waitForEvent()

	case MsgResolved:
		m.resolving = false
		return m, nil

	case MsgLoginDone:
		m.resolving = false
		if err, _ := msg.data.(error); err != nil {
			m.loginErr = err
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.quit) && msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.queue.State == tasks.QueueErrored {
		if key.Matches(msg, m.keys.dismiss) {
			m.app.Queue.Dismiss()
		}
		return m, nil
	}

	if key.Matches(msg, m.keys.quit) {
		return m, tea.Quit
	}

	switch m.view {
	case LoginView:
		if key.Matches(msg, m.keys.login) && !m.resolving {
			m.resolving = true
			m.loginErr = nil
			return m, m.startLogin()
		}
		return m, nil

	case PlaylistListView:
		switch {
		case key.Matches(msg, m.keys.shuffle):
			if m.busy() {
				return m, nil
			}
			if item, ok := m.list.SelectedItem().(playlistItem); ok {
				m.app.Shuffle(item.playlist.ID)
			}
			return m, nil
		case key.Matches(msg, m.keys.logout):
			return m, m.logout()
		}

		if m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		m.app.Scrolled(m.scrollPosition())
		return m, cmd
	}
	return m, nil
}

// busy reports whether the progress overlay covers the list.
func (m *Model) busy() bool {
	return m.queue.State == tasks.QueueStreaming || m.queue.State == tasks.QueueCompleting
}

// scrollPosition describes the list viewport around the cursor in pixel units.
func (m *Model) scrollPosition() tasks.ScrollPosition {
	return tasks.ScrollPosition{
		Top:          m.list.Index() * itemRows * cellPixels,
		Height:       len(m.list.Items()) * itemRows * cellPixels,
		ClientHeight: m.list.Height() * cellPixels,
	}
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-m.events:
			return msg
		case <-m.app.Context().Done():
			return nil
		}
	}
}

func (m *Model) resolve() tea.Cmd {
	return func() tea.Msg {
		return resolvedMsg(m.app.Start())
	}
}

func (m *Model) startLogin() tea.Cmd {
	ctx := m.app.Context()
	return func() tea.Msg {
		if m.login == nil {
			return loginDoneMsg(m.app.Session.Login(ctx))
		}
		token, err := m.login(ctx)
		if err != nil {
			return loginDoneMsg(err)
		}
		m.app.Authorize(token)
		return loginDoneMsg(nil)
	}
}

func (m *Model) logout() tea.Cmd {
	ctx := m.app.Context()
	return func() tea.Msg {
		m.app.Logout(ctx)
		return nil
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case LoginView:
		body = m.renderLogin()
	case PlaylistListView:
		body = m.renderPlaylistList()
	}

	switch {
	case m.queue.State == tasks.QueueErrored:
		return m.place(m.renderError())
	case m.queue.Progress != nil:
		return m.place(m.renderProgress())
	}
	return body
}

// place centers a box in the window, or returns it as-is before the first resize.
func (m *Model) place(box string) string {
	if m.width == 0 || m.height == 0 {
		return box
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m *Model) renderLogin() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Shffl"))
	b.WriteString("\nShuffle your Spotify playlists and queue them up.\n\n")

	if m.resolving {
		b.WriteString(m.spinner.View() + " Checking session...\n")
	} else {
		b.WriteString(styles.ok.Render("Press l to log in with Spotify") + "\n")
	}
	if m.loginErr != nil {
		b.WriteString("\n" + styles.err.Render(fmt.Sprintf("Login failed: %v", m.loginErr)) + "\n")
	}

	b.WriteString("\n" + m.help.ShortHelpView([]key.Binding{m.keys.login, m.keys.quit}))
	return b.String()
}

func (m *Model) renderPlaylistList() string {
	var header string
	if m.session.Identity != nil {
		header = styles.help.Render("Logged in as "+m.session.Identity.Name()) + "\n"
	}

	var footer string
	switch {
	case m.pager.Cursor.IsLoading && len(m.pager.Collection) == 0:
		footer = m.spinner.View() + " Loading playlists..."
	case m.pager.Cursor.IsLoading:
		footer = m.spinner.View() + " Loading more..."
	case len(m.pager.Collection) == 0:
		footer = styles.warn.Render("No playlists found.")
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.shuffle, m.keys.logout, m.keys.quit})
	return fmt.Sprintf("%s%s\n%s\n\n%s", header, m.list.View(), footer, helpView)
}

func (m *Model) renderProgress() string {
	p := m.queue.Progress
	lines := []string{m.spinner.View() + " Queueing tracks..."}
	if p.Total > 0 {
		lines = append(lines, "", m.bar.ViewAs(p.Fraction()), progressLabel(p))
	}
	return styles.overlay.Render(strings.Join(lines, "\n"))
}

func progressLabel(p *models.Progress) string {
	return fmt.Sprintf("%s tracks", p)
}

func (m *Model) renderError() string {
	body := styles.err.Render(m.queue.Error) + "\n\n" + m.help.ShortHelpView([]key.Binding{m.keys.dismiss})
	return styles.dialog.Render(body)
}
