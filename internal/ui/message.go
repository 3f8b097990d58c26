package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/shffl/internal/models"
	"github.com/desertthunder/shffl/internal/session"
	"github.com/desertthunder/shffl/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgSessionChanged MsgKind = iota
	MsgPagerChanged
	MsgQueueChanged
	MsgResolved
	MsgLoginDone
)

// sessionChangedMsg is the constructor for [MsgSessionChanged]
func sessionChangedMsg(s session.Snapshot) Msg {
	return Msg{kind: MsgSessionChanged, data: s}
}

// pagerChangedMsg is the constructor for [MsgPagerChanged]
func pagerChangedMsg(s tasks.PagerState) Msg {
	return Msg{kind: MsgPagerChanged, data: s}
}

// queueChangedMsg is the constructor for [MsgQueueChanged]
func queueChangedMsg(s tasks.QueueSnapshot) Msg {
	return Msg{kind: MsgQueueChanged, data: s}
}

// resolvedMsg is the constructor for [MsgResolved]
func resolvedMsg(identity *models.Identity) Msg {
	return Msg{kind: MsgResolved, data: identity}
}

// loginDoneMsg is the constructor for [MsgLoginDone]
func loginDoneMsg(err error) Msg {
	return Msg{kind: MsgLoginDone, data: err}
}
