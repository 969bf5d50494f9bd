package multiFilePicker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rescp17/deskTransfer/internal/util"
	"github.com/rescp17/deskTransfer/pkg/fileInfo"
)

// ErrAborted is returned by Pick when the user quits without confirming.
var ErrAborted = errors.New("file selection aborted")

type mode int

const (
	modeBrowse mode = iota
	modeInput
)

var (
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	dirStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true)
	mutedStyle    = lipgloss.NewStyle().Faint(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

type KeyMap struct {
	Up           key.Binding
	Down         key.Binding
	Left         key.Binding // Page up
	Right        key.Binding // Page down
	Open         key.Binding
	Parent       key.Binding
	ToggleSelect key.Binding
	ToggleInput  key.Binding
	Confirm      key.Binding
	Quit         key.Binding
}

var DefaultKeyMap = KeyMap{
	Up:           key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "move up")),
	Down:         key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "move down")),
	Left:         key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "page up")),
	Right:        key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "page down")),
	Open:         key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open dir")),
	Parent:       key.NewBinding(key.WithKeys("backspace", "u"), key.WithHelp("u", "parent dir")),
	ToggleSelect: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "select")),
	ToggleInput:  key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "type path")),
	Confirm:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
	Quit:         key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "quit/back")),
}

// Model browses directories and collects files and folders to send.
type Model struct {
	path       string
	items      []fs.DirEntry
	selected   map[string]struct{}
	mimes      map[string]string
	cursor     int
	offset     int
	height     int
	keys       KeyMap
	mode       mode
	input      textinput.Model
	inputErr   error
	imagesOnly bool
	confirmed  bool
	quitting   bool
}

// New starts browsing dir. With imagesOnly set, files without an image
// extension are shown dimmed since the sender will skip them.
func New(dir string, imagesOnly bool) (Model, error) {
	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 80
	ti.Cursor.Style = cursorStyle
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("99"))

	m := Model{
		selected:   make(map[string]struct{}),
		mimes:      make(map[string]string),
		keys:       DefaultKeyMap,
		input:      ti,
		imagesOnly: imagesOnly,
	}
	if err := m.SetPath(dir); err != nil {
		return Model{}, err
	}
	return m, nil
}

// Pick runs the picker on the terminal and returns the confirmed paths in
// lexical order.
func Pick(ctx context.Context, dir string, imagesOnly bool) ([]string, error) {
	m, err := New(dir, imagesOnly)
	if err != nil {
		return nil, err
	}
	final, err := tea.NewProgram(m, tea.WithContext(ctx)).Run()
	if err != nil {
		return nil, fmt.Errorf("run file picker: %w", err)
	}
	fm := final.(Model)
	if !fm.confirmed {
		return nil, ErrAborted
	}
	return fm.Selected(), nil
}

func (m Model) Init() tea.Cmd {
	return nil
}

// Selected lists the chosen paths in lexical order.
func (m Model) Selected() []string {
	paths := make([]string, 0, len(m.selected))
	for p := range m.selected {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.quitting || m.confirmed {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			if m.mode == modeInput {
				m.mode = modeBrowse
				m.input.Blur()
				m.input.Reset()
				m.inputErr = nil
				return m, nil
			}
			m.quitting = true
			return m, tea.Quit
		}
		if m.mode == modeInput {
			return m.updateInput(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	visible := m.visibleItems()
	switch {
	case key.Matches(msg, m.keys.ToggleInput):
		m.mode = modeInput
		m.input.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Right):
		m.cursor = min(m.cursor+visible, len(m.items)-1)

	case key.Matches(msg, m.keys.Left):
		m.cursor = max(m.cursor-visible, 0)

	case key.Matches(msg, m.keys.Open):
		if len(m.items) > 0 && m.items[m.cursor].IsDir() {
			if err := m.SetPath(filepath.Join(m.path, m.items[m.cursor].Name())); err != nil {
				m.inputErr = err
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.Parent):
		if err := m.SetPath(filepath.Dir(m.path)); err != nil {
			m.inputErr = err
		}
		return m, nil

	case key.Matches(msg, m.keys.ToggleSelect):
		if len(m.items) == 0 {
			return m, nil
		}
		path := filepath.Join(m.path, m.items[m.cursor].Name())
		if _, ok := m.selected[path]; ok {
			delete(m.selected, path)
		} else {
			m.selected[path] = struct{}{}
		}

	case key.Matches(msg, m.keys.Confirm):
		if len(m.selected) > 0 {
			m.confirmed = true
			return m, tea.Quit
		}
	}
	m.scrollToCursor(visible)
	return m, nil
}

func (m *Model) scrollToCursor(visible int) {
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Confirm) {
		path := m.input.Value()
		if !filepath.IsAbs(path) {
			path = filepath.Join(m.path, path)
		}
		if err := m.SetPath(path); err != nil {
			m.inputErr = err
			return m, nil
		}
		m.input.Blur()
		m.input.Reset()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// SetPath switches to browsing dir.
func (m *Model) SetPath(dir string) error {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("path does not exist: %s", absPath)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", absPath)
	}
	items, err := os.ReadDir(absPath)
	if err != nil {
		return fmt.Errorf("could not read directory: %w", err)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Name() < items[j].Name()
	})

	m.path = absPath
	m.items = items
	m.cursor = 0
	m.offset = 0
	m.inputErr = nil
	m.mode = modeBrowse
	return nil
}

func (m Model) View() string {
	var s strings.Builder

	s.WriteString("Select files or folders to send. " + m.helpView() + "\n\n")
	if m.mode == modeInput {
		s.WriteString(m.input.View() + "\n")
	}
	if m.inputErr != nil {
		s.WriteString(errorStyle.Render(m.inputErr.Error()) + "\n")
	}
	fmt.Fprintf(&s, "Browsing: %s   (%d selected)\n\n", m.path, len(m.selected))

	const (
		nameWidth = 36
		timeWidth = 20
		sizeWidth = 12
	)
	header := lipgloss.NewStyle().Bold(true)
	s.WriteString(header.Render(util.PadRight("", 6)+
		util.PadRight("Name", nameWidth)+" "+
		util.PadRight("Last Modified", timeWidth)+" "+
		util.PadLeft("Size", sizeWidth)+"  Type") + "\n")

	end := min(m.offset+m.visibleItems(), len(m.items))
	for i := m.offset; i < end; i++ {
		item := m.items[i]
		path := filepath.Join(m.path, item.Name())

		prefix := "  "
		if i == m.cursor {
			prefix = cursorStyle.Render(">") + " "
		}
		box := "[ ] "
		if _, ok := m.selected[path]; ok {
			box = selectedStyle.Render("[x]") + " "
		}

		modTime, size, typ := "", "", ""
		if info, err := item.Info(); err == nil {
			modTime = info.ModTime().Format("2006-01-02 15:04:05")
			if info.IsDir() {
				size = "<DIR>"
			} else {
				size = util.FormatSize(info.Size())
				typ = m.mimeOf(path)
			}
		}

		name := item.Name()
		if item.IsDir() {
			name += "/"
		}
		nameCell := util.PadRight(name, nameWidth)
		row := nameCell + " " + util.PadRight(modTime, timeWidth) + " " + util.PadLeft(size, sizeWidth) + "  " + typ
		switch {
		case item.IsDir():
			row = dirStyle.Render(nameCell) + row[len(nameCell):]
		case m.imagesOnly && !fileInfo.HasImageExtension(item.Name()):
			row = mutedStyle.Render(row + "  (not an image)")
		}
		s.WriteString(prefix + box + row + "\n")
	}

	if len(m.items) > m.visibleItems() {
		fmt.Fprintf(&s, "\n... %d/%d ...\n", m.cursor+1, len(m.items))
	}
	return s.String()
}

func (m Model) mimeOf(path string) string {
	if t, ok := m.mimes[path]; ok {
		return t
	}
	t := ""
	if mt, err := mimetype.DetectFile(path); err == nil {
		t = mt.String()
	}
	m.mimes[path] = t
	return t
}

func (m Model) helpView() string {
	k := m.keys
	return mutedStyle.Render(fmt.Sprintf("%s %s, %s %s, %s %s, %s %s, %s %s",
		k.ToggleSelect.Help().Key, k.ToggleSelect.Help().Desc,
		k.Open.Help().Key, k.Open.Help().Desc,
		k.Parent.Help().Key, k.Parent.Help().Desc,
		k.Confirm.Help().Key, k.Confirm.Help().Desc,
		k.Quit.Help().Key, k.Quit.Help().Desc))
}

func (m Model) visibleItems() int {
	const headerHeight = 7
	visible := m.height - headerHeight
	if visible < 1 {
		visible = 15
	}
	return visible
}
