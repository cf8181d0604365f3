package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytdash/internal/dashboard"
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
	MsgStateLoaded MsgKind = iota
	MsgStatePushed
	MsgStreamClosed
	MsgOpenFailed
)

// stateLoadedMsg is the constructor for [MsgStateLoaded], the result of a load or refresh
func stateLoadedMsg(state dashboard.State) Msg {
	return Msg{kind: MsgStateLoaded, data: state}
}

// statePushedMsg is the constructor for [MsgStatePushed], a state from the background run loop
func statePushedMsg(state dashboard.State) Msg {
	return Msg{kind: MsgStatePushed, data: state}
}

// streamClosedMsg is the constructor for [MsgStreamClosed]
func streamClosedMsg() Msg {
	return Msg{kind: MsgStreamClosed}
}

// openFailedMsg is the constructor for [MsgOpenFailed]
func openFailedMsg(err error) Msg {
	return Msg{kind: MsgOpenFailed, data: err}
}
