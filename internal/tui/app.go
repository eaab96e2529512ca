package tui

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pdxmph/companies-tui/internal/db"
	"github.com/pdxmph/companies-tui/internal/notes"
	"github.com/pdxmph/companies-tui/internal/tristate"
)

// uncategorized stands in for companies without a category
const uncategorized = "uncategorized"

// Store is what the screen reads companies from
type Store interface {
	ListCompanies(ctx context.Context) ([]db.Company, error)
	Categories(ctx context.Context) ([]string, error)
	NoteHistory(ctx context.Context, companyID int64, limit int) ([]db.NoteChange, error)
}

// Options configures a Model
type Options struct {
	Saver                notes.Saver
	Logger               *slog.Logger
	NotificationDuration time.Duration
}

// Model represents the main application state
type Model struct {
	store      Store
	logger     *slog.Logger
	companies  []db.Company
	selected   int
	width      int
	height     int
	filterMode bool
	filter     textinput.Model

	categories *MultiSelect
	selection  tristate.Snapshot
	dialog     *NotesDialog
	notifier   *Notifier
}

// companiesLoadedMsg carries the result of a reload
type companiesLoadedMsg struct {
	companies  []db.Company
	categories []string
	err        error
}

// New creates the screen and loads the initial company list
func New(store Store, opts Options) (*Model, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	loaded := load(store)
	if loaded.err != nil {
		return nil, loaded.err
	}

	// Setup filter input
	ti := textinput.New()
	ti.Placeholder = "Filter companies..."
	ti.Width = 30
	ti.CharLimit = 50
	ti.Prompt = "> "
	ti.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("230"))
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	ti.PlaceholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))

	saver := opts.Saver
	if saver == nil {
		saver = &notes.NoopBackend{}
	}

	categories := NewMultiSelect("Categories", loaded.categories)
	notifier := NewNotifier(opts.NotificationDuration)
	dialog := NewNotesDialog(saver, notifier, logger)
	dialog.OnSaved = func() tea.Cmd {
		return reload(store)
	}

	return &Model{
		store:      store,
		logger:     logger,
		companies:  loaded.companies,
		filter:     ti,
		categories: categories,
		selection:  categories.Snapshot(),
		dialog:     dialog,
		notifier:   notifier,
	}, nil
}

func load(store Store) companiesLoadedMsg {
	ctx := context.Background()
	companies, err := store.ListCompanies(ctx)
	if err != nil {
		return companiesLoadedMsg{err: fmt.Errorf("loading companies: %w", err)}
	}
	categories, err := store.Categories(ctx)
	if err != nil {
		return companiesLoadedMsg{err: fmt.Errorf("loading categories: %w", err)}
	}
	for _, c := range companies {
		if c.Category == "" {
			categories = append(categories, uncategorized)
			break
		}
	}
	return companiesLoadedMsg{companies: companies, categories: categories}
}

func reload(store Store) tea.Cmd {
	return func() tea.Msg {
		return load(store)
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.width > 0 {
			listWidth := m.width / 3
			m.filter.Width = listWidth - 4
		}
		m.categories.SetPosition(0, 0)
		m.categories.SetWidth(m.width)
		m.dialog.SetWidth(m.width)
		return m, nil

	case companiesLoadedMsg:
		if msg.err != nil {
			m.logger.Error("reloading companies failed", "error", msg.err)
			_, cmd := m.notifier.Push("Reload failed: " + msg.err.Error())
			return m, cmd
		}
		m.companies = msg.companies
		var cmd tea.Cmd
		if !sameOptions(m.categories.Options(), msg.categories) {
			m.logger.Debug("category set changed, resetting selection", "categories", msg.categories)
			cmd = m.categories.SetOptions(msg.categories)
		}
		m.selected = m.ensureValidSelection()
		return m, cmd

	case SelectionChangedMsg:
		m.selection = msg.Snapshot
		m.selected = m.ensureValidSelection()
		m.logger.Debug("category selection changed",
			"included", msg.Snapshot.Included, "excluded", msg.Snapshot.Excluded)
		return m, nil

	case notificationExpiredMsg:
		m.notifier.Update(msg)
		return m, nil

	case notesSavedMsg:
		cmd, _ := m.dialog.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		if m.dialog.IsOpen() {
			return m, nil
		}
		// measured before the dropdown can close and shift the rows
		notificationsTop := m.notificationsTop()
		if cmd, consumed := m.categories.Update(msg); consumed {
			return m, cmd
		}
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
			m.dismissNotificationAt(msg.Y, notificationsTop)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.dialog.IsOpen() {
		cmd, _ := m.dialog.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.dialog.IsOpen() {
		cmd, _ := m.dialog.Update(msg)
		return m, cmd
	}

	if m.categories.IsOpen() {
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		cmd, _ := m.categories.Update(msg)
		return m, cmd
	}

	if m.filterMode {
		switch msg.String() {
		case "esc":
			m.filterMode = false
			m.filter.Reset()
			m.filter.Blur()
			m.selected = m.ensureValidSelection()
			return m, nil
		case "enter":
			m.filterMode = false
			m.filter.Blur()
			return m, nil
		case "up", "ctrl+p":
			if m.selected > 0 {
				m.selected--
			}
			return m, nil
		case "down", "ctrl+n":
			if m.selected < len(m.filteredCompanies())-1 {
				m.selected++
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.selected = m.ensureValidSelection()
		return m, cmd
	}

	// Normal mode handling
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "j", "down":
		if m.selected < len(m.filteredCompanies())-1 {
			m.selected++
		}

	case "k", "up":
		if m.selected > 0 {
			m.selected--
		}

	case "/":
		m.filterMode = true
		m.filter.Reset()
		m.filter.Focus()
		return m, textinput.Blink

	case "esc":
		if m.filter.Value() != "" {
			m.filter.Reset()
			m.selected = m.ensureValidSelection()
		}

	case "f":
		return m, m.categories.ToggleOpen()

	case "e":
		companies := m.filteredCompanies()
		if len(companies) == 0 || m.selected >= len(companies) {
			return m, nil
		}
		c := companies[m.selected]
		return m, m.dialog.Open(CompanyRef{ID: c.ID, Name: c.Name}, c.NotesText(), c.SalespersonText())

	case "r":
		return m, reload(m.store)

	case "x":
		m.notifier.DismissLatest()

	case "C":
		// Clear all filters
		m.filter.Reset()
		m.selected = 0
		return m, m.categories.SetOptions(m.categories.Options())
	}

	return m, nil
}

// dismissNotificationAt dismisses the notification drawn on row y, one
// row per notification starting at top.
func (m Model) dismissNotificationAt(y, top int) {
	ids := m.notifier.ActiveIDs(m.notifier.now())
	if i := y - top; i >= 0 && i < len(ids) {
		m.notifier.Dismiss(ids[i])
	}
}

// notificationsTop is the screen row of the first notification
func (m Model) notificationsTop() int {
	top, content, _ := m.layout()
	return lipgloss.Height(top) + lipgloss.Height(content)
}

func sameOptions(current, next []string) bool {
	next = slices.Clone(next)
	slices.Sort(next)
	next = slices.Compact(next)
	return slices.Equal(current, next)
}

func categoryOf(c db.Company) string {
	if c.Category == "" {
		return uncategorized
	}
	return c.Category
}

func (m Model) filteredCompanies() []db.Company {
	var filtered []db.Company
	filter := strings.ToLower(m.filter.Value())

	for _, c := range m.companies {
		if !m.selection.Matches(categoryOf(c)) {
			continue
		}
		if filter != "" && !strings.Contains(strings.ToLower(c.Name), filter) {
			continue
		}
		filtered = append(filtered, c)
	}

	return filtered
}

// ensureValidSelection ensures the current selection is within bounds
func (m Model) ensureValidSelection() int {
	companies := m.filteredCompanies()
	if len(companies) == 0 {
		return 0
	}
	if m.selected >= len(companies) {
		return len(companies) - 1
	}
	if m.selected < 0 {
		return 0
	}
	return m.selected
}

// View renders the UI
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	// Overlay the notes dialog when open
	if m.dialog.IsOpen() {
		return m.dialog.View(m.width, m.height)
	}

	top, content, notifications := m.layout()

	parts := []string{top, content}
	if notifications != "" {
		parts = append(parts, notifications)
	}
	parts = append(parts, m.renderHelp())

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// layout renders the dropdown, the two panes and the notifications, top
// to bottom. The panes never shrink below three rows, so on a small
// screen the result can be taller than m.height.
func (m Model) layout() (top, content, notifications string) {
	top = m.categories.View()
	notifications = m.notifier.View(m.width)
	notificationLines := 0
	if notifications != "" {
		notificationLines = lipgloss.Height(notifications)
	}

	paneHeight := m.height - m.categories.Height() - notificationLines - 3
	if paneHeight < 3 {
		paneHeight = 3
	}

	// Calculate pane widths
	listWidth := m.width / 3
	detailWidth := m.width - listWidth - 3

	content = lipgloss.JoinHorizontal(
		lipgloss.Top,
		borderStyle.Width(listWidth).Height(paneHeight).Render(m.renderList(listWidth, paneHeight)),
		borderStyle.Width(detailWidth).Height(paneHeight).Render(m.renderDetail(detailWidth, paneHeight)),
	)
	return top, content, notifications
}

// renderList renders the company list
func (m Model) renderList(width, height int) string {
	var lines []string

	if m.filterMode {
		lines = append(lines, m.filter.View())
		lines = append(lines, "")
		height -= 2
	}

	companies := m.filteredCompanies()

	// Calculate visible range
	visibleHeight := height - 2
	startIdx := 0
	if m.selected >= visibleHeight {
		startIdx = m.selected - visibleHeight + 1
	}

	header := fmt.Sprintf("Companies (%d)", len(companies))
	if n := len(m.selection.Excluded); n > 0 {
		header += fmt.Sprintf(" [%d excluded]", n)
	}
	if m.filter.Value() != "" && !m.filterMode {
		header += " [name:" + m.filter.Value() + "]"
	}

	lines = append(lines, header)
	lines = append(lines, strings.Repeat("─", max(width-2, 0)))

	for i := startIdx; i < len(companies) && i < startIdx+visibleHeight; i++ {
		c := companies[i]

		line := "  " + c.Name
		if i == m.selected {
			line = selectedStyle.Render(line)
		} else {
			line += " " + labelStyle.Render("["+categoryOf(c)+"]")
		}

		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}

// renderDetail renders the company detail view
func (m Model) renderDetail(width, height int) string {
	companies := m.filteredCompanies()
	if len(companies) == 0 || m.selected >= len(companies) {
		return "No company selected"
	}

	c := companies[m.selected]
	var lines []string

	lines = append(lines, c.Name)
	lines = append(lines, strings.Repeat("─", max(width-2, 0)))
	lines = append(lines, "")

	lines = append(lines, "Category: "+categoryStyle.Render(categoryOf(c)))
	if s := c.SalespersonText(); s != "" {
		lines = append(lines, "Salesperson: "+s)
	} else {
		lines = append(lines, "Salesperson: "+labelStyle.Render("unassigned"))
	}
	lines = append(lines, "Updated: "+c.UpdatedAt.Format("2006-01-02 15:04"))
	lines = append(lines, "")

	if notesText := c.NotesText(); notesText != "" {
		lines = append(lines, "Notes:")
		lines = append(lines, wrapText(notesText, width-4)...)
		lines = append(lines, "")
	}

	// Notes history
	history, err := m.store.NoteHistory(context.Background(), c.ID, 5)
	if err != nil {
		m.logger.Warn("loading note history failed", "company_id", c.ID, "error", err)
	}
	if len(history) > 0 {
		lines = append(lines, "Recent Changes:")
		lines = append(lines, strings.Repeat("─", max(width-2, 0)))
		for _, change := range history {
			entry := change.ChangedAt.Format("2006-01-02 15:04")
			if change.AssignedSalesperson.Valid {
				entry += " " + labelStyle.Render("["+change.AssignedSalesperson.String+"]")
			}
			lines = append(lines, entry)
			if change.Notes.Valid && change.Notes.String != "" {
				for _, noteLine := range wrapText(change.Notes.String, width-4) {
					lines = append(lines, "  "+noteLine)
				}
			}
			lines = append(lines, "")
		}
	}

	if len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}

// renderHelp renders the help line
func (m Model) renderHelp() string {
	if m.categories.IsOpen() {
		return " type to search • ↑/↓: navigate • space/enter: cycle • tab: tags • x: remove tag • esc: close"
	}

	if m.filterMode {
		return " Type to filter • ↑/↓: navigate • Enter: confirm • Esc: cancel"
	}

	help := " j/k: navigate • /: filter • f: categories • e: edit notes • r: reload"

	if m.notifier.Len() > 0 {
		help += " • x: dismiss"
	}

	if len(m.selection.Excluded) > 0 || len(m.selection.Included) < len(m.categories.Options()) || m.filter.Value() != "" {
		help += " • C: clear all"
	}

	help += " • q: quit"

	return help
}
