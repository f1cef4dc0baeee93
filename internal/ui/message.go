package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/lyrx/internal/shared"
	"github.com/desertthunder/lyrx/internal/tasks"
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
	MsgEvent MsgKind = iota
	MsgQueueClosed
	MsgFrame
	MsgRefresh
	MsgConfigReloaded
)

// eventMsg is the constructor for [MsgEvent]
func eventMsg(ev tasks.Event) Msg {
	return Msg{kind: MsgEvent, data: ev}
}

// queueClosedMsg is the constructor for [MsgQueueClosed]
func queueClosedMsg() Msg {
	return Msg{kind: MsgQueueClosed}
}

// frameMsg is the constructor for [MsgFrame]; gen identifies the fade it belongs to.
func frameMsg(gen int) Msg {
	return Msg{kind: MsgFrame, data: gen}
}

// refreshMsg is the constructor for [MsgRefresh]
func refreshMsg() Msg {
	return Msg{kind: MsgRefresh}
}

// ConfigReloaded wraps new overlay settings for delivery with [tea.Program.Send].
func ConfigReloaded(cfg shared.OverlayConfig) Msg {
	return Msg{kind: MsgConfigReloaded, data: cfg}
}
