// Package tui is the interactive backup browser: a three-screen navigator
// (preference paths, their backups, a backup's decoded content) over the
// backup store, with a pannable pager for the content view.
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/v2/key"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"

	"github.com/sudowork/rgbfix/internal/backup"
	"github.com/sudowork/rgbfix/internal/plist"
)

type screen int

const (
	screenPaths screen = iota
	screenBackups
	screenContent
)

// Style definitions for the browser.
var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
)

type pathEntry struct {
	path    string
	backups int
}

// Model is the navigator state machine. Each screen owns its own selection
// index, and list screens re-query the store on every entry because a
// restore can change what backups exist.
type Model struct {
	store    backup.Store
	paths    []string
	readFile func(string) ([]byte, error)

	scr    screen
	width  int
	height int

	pathList  []pathEntry
	pathIndex int

	selectedPath string
	entries      []backup.Entry
	entryIndex   int

	pager        *Pager
	contentTitle string
	status       string

	keyMap KeyMap
}

// New creates a navigator over the candidate preference paths.
func New(store backup.Store, paths []string) *Model {
	return &Model{
		store:    store,
		paths:    paths,
		readFile: os.ReadFile,
		pager:    NewPager(),
		keyMap:   DefaultKeyMap(),
	}
}

// Init loads the first path listing.
func (m *Model) Init() tea.Cmd {
	m.refreshPaths()
	return nil
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.pager.SetSize(m.width, m.contentHeight())
		return m, nil
	case tea.KeyPressMsg:
		switch m.scr {
		case screenPaths:
			return m.updatePaths(msg)
		case screenBackups:
			return m.updateBackups(msg)
		case screenContent:
			return m.updateContent(msg)
		}
	}
	return m, nil
}

// contentHeight leaves room for the title row and the status row.
func (m *Model) contentHeight() int {
	return max(0, m.height-2)
}

// pagerSize falls back to a conventional terminal size until the first
// window size message arrives, so the content view never opens with a
// zero viewport.
func (m *Model) pagerSize() (int, int) {
	if m.width == 0 || m.height == 0 {
		return 80, 22
	}
	return m.width, m.contentHeight()
}

func (m *Model) updatePaths(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keyMap.Up):
		m.pathIndex = max(0, m.pathIndex-1)
	case key.Matches(msg, m.keyMap.Down):
		m.pathIndex = min(len(m.pathList)-1, m.pathIndex+1)
		m.pathIndex = max(0, m.pathIndex)
	case key.Matches(msg, m.keyMap.Select):
		if len(m.pathList) == 0 {
			break
		}
		m.selectedPath = m.pathList[m.pathIndex].path
		m.refreshBackups()
		m.status = ""
		m.scr = screenBackups
	}
	return m, nil
}

func (m *Model) updateBackups(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Back):
		m.refreshPaths()
		m.scr = screenPaths
	case key.Matches(msg, m.keyMap.Up):
		m.entryIndex = max(0, m.entryIndex-1)
	case key.Matches(msg, m.keyMap.Down):
		m.entryIndex = min(len(m.entries)-1, m.entryIndex+1)
		m.entryIndex = max(0, m.entryIndex)
	case key.Matches(msg, m.keyMap.ViewXML):
		m.openContent(contentXML)
	case key.Matches(msg, m.keyMap.ViewJSON):
		m.openContent(contentJSON)
	case key.Matches(msg, m.keyMap.Restore):
		m.restoreSelected()
	}
	return m, nil
}

func (m *Model) updateContent(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Back):
		m.refreshBackups()
		m.scr = screenBackups
	case key.Matches(msg, m.keyMap.Up):
		m.pager.MoveBy(-1, 0)
	case key.Matches(msg, m.keyMap.Down):
		m.pager.MoveBy(1, 0)
	case key.Matches(msg, m.keyMap.Left):
		m.pager.MoveBy(0, -1)
	case key.Matches(msg, m.keyMap.Right):
		m.pager.MoveBy(0, 1)
	case key.Matches(msg, m.keyMap.HalfUp):
		m.pager.MoveBy(-m.pager.HalfPage(), 0)
	case key.Matches(msg, m.keyMap.HalfDown):
		m.pager.MoveBy(m.pager.HalfPage(), 0)
	case key.Matches(msg, m.keyMap.PageUp):
		m.pager.MoveBy(-m.pager.FullPage(), 0)
	case key.Matches(msg, m.keyMap.PageDown):
		m.pager.MoveBy(m.pager.FullPage(), 0)
	}
	return m, nil
}

// refreshPaths re-queries the store for every candidate path; only paths
// with at least one backup get a row.
func (m *Model) refreshPaths() {
	m.pathList = m.pathList[:0]
	for _, p := range m.paths {
		if n := len(m.store.List(p)); n > 0 {
			m.pathList = append(m.pathList, pathEntry{path: p, backups: n})
		}
	}
	m.pathIndex = min(m.pathIndex, max(0, len(m.pathList)-1))
}

// refreshBackups re-queries the selected path's backups and re-clamps the
// selection against the possibly-changed length.
func (m *Model) refreshBackups() {
	m.entries = m.store.List(m.selectedPath)
	m.entryIndex = min(m.entryIndex, max(0, len(m.entries)-1))
}

// contentFormat selects the browser's rendering of a backup: the primary
// XML form or the diagnostic JSON form.
type contentFormat int

const (
	contentXML contentFormat = iota
	contentJSON
)

func (m *Model) openContent(format contentFormat) {
	if len(m.entries) == 0 {
		return
	}
	entry := m.entries[m.entryIndex]

	var label string
	var content string
	data, err := m.readFile(entry.Path)
	switch {
	case err != nil:
		label = "error"
		content = fmt.Sprintf("could not read %s: %v", entry.Path, err)
	case format == contentXML:
		label = "XML"
		doc, derr := plist.Decode(data)
		if derr != nil {
			content = fmt.Sprintf("could not decode %s: %v", entry.Path, derr)
			label = "error"
			break
		}
		out, eerr := plist.EncodeAs(doc, plist.FormatXML)
		if eerr != nil {
			content = fmt.Sprintf("could not render %s: %v", entry.Path, eerr)
			label = "error"
			break
		}
		content = string(out)
	default:
		label = "JSON"
		out, jerr := plist.JSONView(data)
		if jerr != nil {
			content = fmt.Sprintf("could not decode %s: %v", entry.Path, jerr)
			label = "error"
			break
		}
		content = string(out)
	}

	m.contentTitle = fmt.Sprintf("%s (%s)", filepath.Base(entry.Path), label)
	m.pager.SetContent(content)
	m.pager.SetSize(m.pagerSize())
	m.scr = screenContent
}

func (m *Model) restoreSelected() {
	if len(m.entries) == 0 {
		return
	}
	entry := m.entries[m.entryIndex]
	if err := m.store.Restore(entry); err != nil {
		m.status = fmt.Sprintf("restore failed: %v", err)
	} else {
		m.status = fmt.Sprintf("restored %s from %s", entry.LogicalPath, entry.Label())
	}
	// The restore may have changed what backups exist.
	m.refreshBackups()
}

// View renders the current screen.
func (m *Model) View() tea.View {
	switch m.scr {
	case screenBackups:
		return tea.NewView(m.viewBackups())
	case screenContent:
		return tea.NewView(m.viewContent())
	default:
		return tea.NewView(m.viewPaths())
	}
}

func (m *Model) viewPaths() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Select file to restore:"))
	b.WriteString("\n\n")

	if len(m.pathList) == 0 {
		b.WriteString("  no backups found\n\n")
		b.WriteString(helpStyle.Render("Press 'q' to exit."))
		return b.String()
	}

	for i, entry := range m.pathList {
		line := fmt.Sprintf("  %s %s (%d backups)", marker(i == m.pathIndex, "❯"), entry.path, entry.backups)
		if i == m.pathIndex {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(fmt.Sprintf("Press <Enter> to view backups for `%s`.", m.pathList[m.pathIndex].path)))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("Press 'q' to exit at any time."))
	return b.String()
}

func (m *Model) viewBackups() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Backups for %s", m.selectedPath)))
	b.WriteString("\n\n")

	if len(m.entries) == 0 {
		b.WriteString("  no backups found\n")
	}
	for i, entry := range m.entries {
		line := fmt.Sprintf("  %s [%s] %s", marker(i == m.entryIndex, "↠"), entry.Label(), filepath.Base(entry.Path))
		if i == m.entryIndex {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("Press 'v' or <Enter> to view the file as XML."))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("Press 'j' to view the file as JSON."))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("Press 'r' to restore this backup."))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("Press 'q' to return to previous screen."))
	return b.String()
}

func (m *Model) viewContent() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.contentTitle))
	b.WriteString("\n")
	b.WriteString(m.pager.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("'q' to return · arrows to move · ^D/^U half page · ^F/^B full page"))
	return b.String()
}

func marker(selected bool, glyph string) string {
	if selected {
		return glyph
	}
	return " "
}

// Run launches the browser full screen over the controlling terminal and
// blocks until the user quits.
func Run(store backup.Store, paths []string) error {
	p := tea.NewProgram(New(store, paths), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
