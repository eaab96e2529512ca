package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pdxmph/companies-tui/internal/tristate"
)

// SelectionChangedMsg is emitted after every change to a MultiSelect
type SelectionChangedMsg struct {
	Source   string
	Snapshot tristate.Snapshot
}

type msFocus int

const (
	focusOptions msFocus = iota
	focusTags
)

// Rows of the rendered component, relative to its origin
const (
	rowTrigger = iota
	rowTags
	rowSearch
	rowFirstOption
)

const maxOptionRows = 8

// MultiSelect is a searchable dropdown whose options cycle through
// included, excluded and unselected. Non-default selections are listed
// as removable tags under the trigger line.
type MultiSelect struct {
	label    string
	sel      *tristate.Selector
	search   textinput.Model
	open     bool
	focus    msFocus
	cursor   int
	offset   int
	tagIndex int
	pending  *tristate.Snapshot

	// where the host drew us
	x, y  int
	width int
}

// NewMultiSelect creates a closed dropdown with every option included
func NewMultiSelect(label string, options []string) *MultiSelect {
	search := textinput.New()
	search.Placeholder = "search..."
	search.Prompt = "/ "
	search.CharLimit = 64

	m := &MultiSelect{
		label:  label,
		sel:    tristate.New(options),
		search: search,
		width:  40,
	}
	m.sel.OnChange = func(snap tristate.Snapshot) {
		m.pending = &snap
	}
	return m
}

// SetPosition records the screen cell of the component's top-left corner
func (m *MultiSelect) SetPosition(x, y int) {
	m.x, m.y = x, y
}

// SetWidth sets the render width used for drawing and hit testing
func (m *MultiSelect) SetWidth(width int) {
	if width > 0 {
		m.width = width
		m.search.Width = width - 4
	}
}

// Height returns the number of rows View produces
func (m *MultiSelect) Height() int {
	if !m.open {
		return rowSearch
	}
	return rowFirstOption + m.shownRows()
}

func (m *MultiSelect) shownRows() int {
	n := len(m.sel.Visible()) - m.offset
	if n > maxOptionRows {
		n = maxOptionRows
	}
	if n < 1 {
		n = 1
	}
	return n
}

// SetOptions replaces the option set. All options become included and
// earlier exclusions are lost.
func (m *MultiSelect) SetOptions(options []string) tea.Cmd {
	m.sel.SetOptions(options)
	m.cursor, m.offset, m.tagIndex = 0, 0, 0
	m.focus = focusOptions
	return m.flush()
}

// Options returns every option, sorted
func (m *MultiSelect) Options() []string {
	return m.sel.Options()
}

// Snapshot returns the current selection
func (m *MultiSelect) Snapshot() tristate.Snapshot {
	return m.sel.Snapshot()
}

// StateOf returns the state of one option
func (m *MultiSelect) StateOf(label string) (tristate.State, bool) {
	return m.sel.StateOf(label)
}

// Visible returns the options matching the search text
func (m *MultiSelect) Visible() []string {
	return m.sel.Visible()
}

// Toggle cycles an option. Only options visible under the current search
// can be toggled.
func (m *MultiSelect) Toggle(label string) tea.Cmd {
	if !m.isVisible(label) {
		return nil
	}
	m.sel.Toggle(label)
	return m.flush()
}

// RemoveTag sends an option straight to unselected
func (m *MultiSelect) RemoveTag(label string) tea.Cmd {
	if !m.sel.Remove(label) {
		return nil
	}
	tags := m.sel.Tags()
	if len(tags) == 0 {
		m.tagIndex = 0
		if m.focus == focusTags {
			m.focus = focusOptions
			m.search.Focus()
		}
	} else {
		m.clampTag()
	}
	return m.flush()
}

func (m *MultiSelect) isVisible(label string) bool {
	for _, option := range m.sel.Visible() {
		if option == label {
			return true
		}
	}
	return false
}

func (m *MultiSelect) flush() tea.Cmd {
	if m.pending == nil {
		return nil
	}
	snap := *m.pending
	m.pending = nil
	source := m.label
	return func() tea.Msg {
		return SelectionChangedMsg{Source: source, Snapshot: snap}
	}
}

// Open shows the option list and focuses the search box
func (m *MultiSelect) Open() tea.Cmd {
	m.open = true
	m.focus = focusOptions
	m.clampCursor()
	return m.search.Focus()
}

// Close hides the option list. The search text is kept.
func (m *MultiSelect) Close() {
	m.open = false
	m.search.Blur()
}

// ToggleOpen opens a closed dropdown and closes an open one
func (m *MultiSelect) ToggleOpen() tea.Cmd {
	if m.open {
		m.Close()
		return nil
	}
	return m.Open()
}

// IsOpen reports whether the option list is showing
func (m *MultiSelect) IsOpen() bool {
	return m.open
}

// Update handles keys while open and mouse presses at any time. The
// bool reports whether the message was consumed by the component.
func (m *MultiSelect) Update(msg tea.Msg) (tea.Cmd, bool) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !m.open {
			return nil, false
		}
		return m.handleKey(msg), true
	case tea.MouseMsg:
		return m.handleMouse(msg)
	}
	return nil, false
}

func (m *MultiSelect) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.Close()
		return nil
	case "tab", "shift+tab":
		if m.focus == focusOptions && len(m.sel.Tags()) > 0 {
			m.focus = focusTags
			m.clampTag()
			m.search.Blur()
			return nil
		}
		m.focus = focusOptions
		return m.search.Focus()
	}

	if m.focus == focusTags {
		return m.handleTagKey(msg)
	}

	switch msg.String() {
	case "up", "ctrl+p":
		m.moveCursor(-1)
		return nil
	case "down", "ctrl+n":
		m.moveCursor(1)
		return nil
	case " ", "enter":
		visible := m.sel.Visible()
		if m.cursor < len(visible) {
			return m.Toggle(visible[m.cursor])
		}
		return nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() != m.sel.Filter() {
		m.sel.SetFilter(m.search.Value())
		m.cursor, m.offset = 0, 0
	}
	return cmd
}

func (m *MultiSelect) handleTagKey(msg tea.KeyMsg) tea.Cmd {
	tags := m.sel.Tags()
	if len(tags) == 0 {
		m.focus = focusOptions
		return m.search.Focus()
	}

	switch msg.String() {
	case "left", "h":
		if m.tagIndex > 0 {
			m.tagIndex--
		}
	case "right", "l":
		if m.tagIndex < renderTags(m).shown()-1 {
			m.tagIndex++
		}
	case "x", "backspace", "delete":
		m.clampTag()
		return renderTags(m).remove(tags[m.tagIndex].Label)
	}
	return nil
}

func (m *MultiSelect) handleMouse(msg tea.MouseMsg) (tea.Cmd, bool) {
	inside := m.contains(msg.X, msg.Y)
	if msg.Action != tea.MouseActionPress {
		return nil, inside
	}
	if !inside {
		if m.open {
			m.Close()
		}
		return nil, false
	}

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.moveCursor(-1)
		return nil, true
	case tea.MouseButtonWheelDown:
		m.moveCursor(1)
		return nil, true
	case tea.MouseButtonLeft:
	default:
		return nil, true
	}

	row, col := msg.Y-m.y, msg.X-m.x
	switch {
	case row == rowTrigger:
		return m.ToggleOpen(), true
	case row == rowTags:
		bar := renderTags(m)
		if label, ok := bar.labelAt(col); ok {
			return bar.remove(label), true
		}
	case m.open && row >= rowFirstOption:
		index := m.offset + row - rowFirstOption
		visible := m.sel.Visible()
		if index < len(visible) {
			m.cursor = index
			return m.Toggle(visible[index]), true
		}
	}
	return nil, true
}

func (m *MultiSelect) contains(x, y int) bool {
	col, row := x-m.x, y-m.y
	return col >= 0 && col < m.width && row >= 0 && row < m.Height()
}

func (m *MultiSelect) moveCursor(delta int) {
	n := len(m.sel.Visible())
	if n == 0 {
		m.cursor, m.offset = 0, 0
		return
	}
	m.cursor = (m.cursor + delta + n) % n
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+maxOptionRows {
		m.offset = m.cursor - maxOptionRows + 1
	}
}

func (m *MultiSelect) clampCursor() {
	n := len(m.sel.Visible())
	if m.cursor >= n {
		m.cursor = 0
		m.offset = 0
	}
}

// clampTag keeps tag focus on a tag the row actually shows
func (m *MultiSelect) clampTag() {
	if n := renderTags(m).shown(); m.tagIndex >= n {
		m.tagIndex = n - 1
	}
	if m.tagIndex < 0 {
		m.tagIndex = 0
	}
}

// View renders the trigger, the tag row and, when open, the search box
// and the visible options.
func (m *MultiSelect) View() string {
	clip := lipgloss.NewStyle().MaxWidth(m.width)

	lines := []string{
		clip.Render(m.triggerLine()),
		clip.Render(renderTags(m).View()),
	}
	if m.open {
		lines = append(lines, clip.Render(m.search.View()))
		visible := m.sel.Visible()
		if len(visible) == 0 {
			lines = append(lines, labelStyle.Render("  no matching categories"))
		}
		for i := m.offset; i < len(visible) && i < m.offset+maxOptionRows; i++ {
			lines = append(lines, clip.Render(m.optionLine(visible[i], i == m.cursor)))
		}
	}
	return strings.Join(lines, "\n")
}

func (m *MultiSelect) triggerLine() string {
	arrow := "▸"
	if m.open {
		arrow = "▾"
	}
	snap := m.sel.Snapshot()
	summary := labelStyle.Render(fmt.Sprintf("%d included, %d excluded", len(snap.Included), len(snap.Excluded)))
	return fmt.Sprintf("%s %s  %s", arrow, m.label, summary)
}

func (m *MultiSelect) optionLine(option string, atCursor bool) string {
	state, _ := m.sel.StateOf(option)
	marker := "[ ]"
	switch state {
	case tristate.Included:
		marker = "[+]"
	case tristate.Excluded:
		marker = "[-]"
	}
	line := fmt.Sprintf("  %s %s", marker, option)
	if atCursor && m.focus == focusOptions {
		return selectedStyle.Width(m.width).Render(line)
	}
	if state == tristate.Excluded {
		return excludedRowStyle.Render(line)
	}
	return line
}

// tagBar draws the tag summary for one MultiSelect. Removal goes back
// through the owner that rendered it.
type tagBar struct {
	owner *MultiSelect
}

type tagSpan struct {
	label      string
	start, end int
}

func renderTags(owner *MultiSelect) tagBar {
	return tagBar{owner: owner}
}

// moreReserve keeps room on the tag row for the "+N more" marker
const moreReserve = len(" +99 more")

// layout places the tags that fit in the owner's width. Spans cover only
// the tags shown; the rest are summed up by a trailing marker.
func (b tagBar) layout() ([]string, []tagSpan) {
	tags := b.owner.sel.Tags()
	pieces := make([]string, 0, len(tags)+1)
	spans := make([]tagSpan, 0, len(tags))
	col := 0
	for i, tag := range tags {
		style := includedTagStyle
		sign := "+"
		if tag.State == tristate.Excluded {
			style = excludedTagStyle
			sign = "-"
		}
		if b.owner.focus == focusTags && b.owner.open && i == b.owner.tagIndex {
			style = selectedStyle
		}
		piece := style.Render(fmt.Sprintf(" %s%s × ", sign, tag.Label))
		width := lipgloss.Width(piece)

		end := col + width
		if i < len(tags)-1 {
			end += moreReserve
		}
		if b.owner.width > 0 && i > 0 && end > b.owner.width {
			break
		}
		spans = append(spans, tagSpan{label: tag.Label, start: col, end: col + width})
		pieces = append(pieces, piece)
		col += width + 1
	}
	if hidden := len(tags) - len(spans); hidden > 0 {
		pieces = append(pieces, labelStyle.Render(fmt.Sprintf("+%d more", hidden)))
	}
	return pieces, spans
}

// shown is the number of tags that fit on the row
func (b tagBar) shown() int {
	_, spans := b.layout()
	return len(spans)
}

func (b tagBar) labelAt(col int) (string, bool) {
	_, spans := b.layout()
	for _, span := range spans {
		if col >= span.start && col < span.end {
			return span.label, true
		}
	}
	return "", false
}

func (b tagBar) remove(label string) tea.Cmd {
	return b.owner.RemoveTag(label)
}
