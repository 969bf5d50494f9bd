package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	appevents "github.com/rescp17/deskTransfer/internal/app_events"
	"github.com/rescp17/deskTransfer/internal/util"
	"github.com/rescp17/deskTransfer/pkg/transfer"
)

type Mode int

const (
	Sender Mode = iota
	Receiver
)

// maxFileLines bounds the list of finished files shown.
const maxFileLines = 12

const nameWidth = 32

type KeyMap struct {
	Quit key.Binding
}

var DefaultKeyMap = KeyMap{
	Quit: key.NewBinding(key.WithKeys("ctrl+c", "q", "esc"), key.WithHelp("q", "stop")),
}

type fileLine struct {
	name string
	size uint64
	err  error
}

type model struct {
	mode   Mode
	title  string
	events <-chan transfer.Event
	cancel func()

	spinner  spinner.Model
	progress progress.Model

	peers    map[string]string
	active   map[string]transfer.ProgressEvent
	order    []string
	files    []fileLine
	notes    []string
	summary  *transfer.BatchCompleteEvent
	err      error
	stopping bool
	done     bool
}

func newModel(mode Mode, title string, events <-chan transfer.Event, cancel func()) model {
	if cancel == nil {
		cancel = func() {}
	}
	return model{
		mode:     mode,
		title:    title,
		events:   events,
		cancel:   cancel,
		spinner:  NewSpinner(),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		peers:    make(map[string]string),
		active:   make(map[string]transfer.ProgressEvent),
	}
}

// Run shows the progress of a running transfer until events is closed. The
// first quit key calls cancel and keeps rendering until the stream ends; a
// second one leaves immediately.
func Run(ctx context.Context, mode Mode, title string, events <-chan transfer.Event, cancel func()) error {
	p := tea.NewProgram(newModel(mode, title, events, cancel), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("run progress ui: %w", err)
	}
	if m, ok := final.(model); ok && m.mode == Sender && m.err != nil {
		return m.err
	}
	return nil
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, appevents.WaitForEvent(m.events))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !key.Matches(msg, DefaultKeyMap.Quit) {
			return m, nil
		}
		if m.done || m.stopping {
			return m, tea.Quit
		}
		m.stopping = true
		m.cancel()
		return m, nil

	case tea.WindowSizeMsg:
		w := msg.Width - nameWidth - 16
		if w > 60 {
			w = 60
		}
		if w < 10 {
			w = 10
		}
		m.progress.Width = w
		return m, nil

	case appevents.SessionEventMsg:
		m.apply(msg.Event)
		return m, appevents.WaitForEvent(m.events)

	case appevents.StreamClosedMsg:
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *model) apply(ev transfer.Event) {
	switch e := ev.(type) {
	case transfer.ConnectedEvent:
		name := e.PeerName
		if name == "" {
			name = e.Peer
		}
		m.peers[e.SessionID] = name
		m.note(fmt.Sprintf("Connected to %s (%s)", name, e.Peer))
	case transfer.ProgressEvent:
		if _, ok := m.active[e.SessionID]; !ok {
			m.order = append(m.order, e.SessionID)
		}
		m.active[e.SessionID] = e
	case transfer.FileCompleteEvent:
		m.addFile(fileLine{name: e.FileName, size: e.Size})
	case transfer.FileFailedEvent:
		m.addFile(fileLine{name: e.FileName, err: e.Err})
	case transfer.PeerErrorEvent:
		m.note(WarningStyle.Render(fmt.Sprintf("%s reported: %s", m.peerName(e.SessionID), e.Message)))
	case transfer.BatchCompleteEvent:
		m.finish(e.SessionID)
		summary := e
		m.summary = &summary
		m.note(SuccessStyle.Render(fmt.Sprintf("Batch from %s done: %d files, %s, %d failed",
			m.peerName(e.SessionID), len(e.Files), util.FormatSize(int64(e.TotalBytes)), e.Failed)))
	case transfer.SessionErrorEvent:
		m.finish(e.SessionID)
		m.err = e.Err
		m.note(ErrorStyle.Render(fmt.Sprintf("Session with %s ended: %v", m.peerName(e.SessionID), e.Err)))
	}
}

func (m *model) finish(sessionID string) {
	delete(m.active, sessionID)
	for i, id := range m.order {
		if id == sessionID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

func (m *model) addFile(f fileLine) {
	m.files = append(m.files, f)
	if len(m.files) > maxFileLines {
		m.files = m.files[len(m.files)-maxFileLines:]
	}
}

func (m *model) note(s string) {
	m.notes = append(m.notes, s)
	if len(m.notes) > maxFileLines {
		m.notes = m.notes[len(m.notes)-maxFileLines:]
	}
}

func (m model) peerName(sessionID string) string {
	if name, ok := m.peers[sessionID]; ok && name != "" {
		return name
	}
	if m.mode == Sender {
		return "receiver"
	}
	return "sender"
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(m.title))
	b.WriteString("\n\n")

	if len(m.order) == 0 && !m.done {
		status := "Connecting..."
		if m.mode == Receiver {
			status = "Waiting for senders..."
		}
		if m.stopping {
			status = "Stopping..."
		}
		fmt.Fprintf(&b, " %s %s\n", m.spinner.View(), status)
	}
	for _, id := range m.order {
		p := m.active[id]
		fmt.Fprintf(&b, " %s [%d/%d] %s %s %3d%%\n", m.spinner.View(), p.CurrentFile, p.FileCount,
			util.PadRight(p.FileName, nameWidth), m.progress.ViewAs(float64(p.Percent)/100), p.Percent)
	}

	if len(m.files) > 0 {
		b.WriteString("\n")
	}
	for _, f := range m.files {
		if f.err != nil {
			fmt.Fprintf(&b, " %s %s %s\n", ErrorStyle.Render("✗"), util.PadRight(f.name, nameWidth), ErrorStyle.Render(f.err.Error()))
			continue
		}
		fmt.Fprintf(&b, " %s %s %s\n", SuccessStyle.Render("✓"), util.PadRight(f.name, nameWidth), InfoStyle.Render(util.FormatSize(int64(f.size))))
	}

	if len(m.notes) > 0 {
		b.WriteString("\n")
		for _, n := range m.notes {
			fmt.Fprintf(&b, " %s\n", n)
		}
	}

	if !m.done {
		help := DefaultKeyMap.Quit.Help()
		hint := fmt.Sprintf("%s: %s", help.Key, help.Desc)
		if m.stopping {
			hint = fmt.Sprintf("%s again: quit now", help.Key)
		}
		b.WriteString("\n" + HelpStyle.Render(hint) + "\n")
	}
	return b.String()
}
