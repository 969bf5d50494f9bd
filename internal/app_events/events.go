package appevents

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rescp17/deskTransfer/pkg/transfer"
)

// AppUIMessage is a marker interface for messages sent from a running
// transfer to the TUI. It uses an unexported method so that only types from
// this package (by embedding UIMessage) can satisfy it.
type AppUIMessage interface {
	isUIMessage()
}

// UIMessage can be embedded in other types to implement AppUIMessage.
type UIMessage struct{}

func (UIMessage) isUIMessage() {}

// SessionEventMsg carries one event of the transfer's stream.
type SessionEventMsg struct {
	UIMessage
	Event transfer.Event
}

// StreamClosedMsg is sent once the event stream is closed: the transfer, or
// the receiver, has stopped for good.
type StreamClosedMsg struct {
	UIMessage
}

// WaitForEvent reads the next event from events. The model must issue it
// again after every SessionEventMsg to keep listening.
func WaitForEvent(events <-chan transfer.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return StreamClosedMsg{}
		}
		return SessionEventMsg{Event: ev}
	}
}
