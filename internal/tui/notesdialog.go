package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pdxmph/companies-tui/internal/notes"
)

const saveTimeout = 30 * time.Second

// CompanyRef identifies the company a dialog session edits
type CompanyRef struct {
	ID   int64
	Name string
}

// notesSavedMsg carries the reply of one save back to the dialog
type notesSavedMsg struct {
	session   int
	companyID int64
	err       error
}

type dialogField int

const (
	fieldNotes dialogField = iota
	fieldSalesperson
)

// NotesDialog is the modal that edits a company's notes and assigned
// salesperson. Each Open starts a new session; replies to older sessions
// and to cancelled ones are ignored.
type NotesDialog struct {
	saver    notes.Saver
	notifier *Notifier
	logger   *slog.Logger

	// OnSaved runs after a successful save. The command it returns is
	// batched with the notification timer.
	OnSaved func() tea.Cmd

	open        bool
	session     int
	company     CompanyRef
	notes       textarea.Model
	salesperson textinput.Model
	focus       dialogField
	alert       string

	// live stays set after a save closes the dialog until every
	// outstanding reply of the session has arrived.
	live        bool
	outstanding int
	width       int
}

// NewNotesDialog creates a closed dialog saving through saver
func NewNotesDialog(saver notes.Saver, notifier *Notifier, logger *slog.Logger) *NotesDialog {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ta := textarea.New()
	ta.Placeholder = "Notes about this company..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 10000
	ta.SetWidth(56)
	ta.SetHeight(8)

	ti := textinput.New()
	ti.Placeholder = "Salesperson"
	ti.Prompt = ""
	ti.CharLimit = 200
	ti.Width = 56

	return &NotesDialog{
		saver:       saver,
		notifier:    notifier,
		logger:      logger,
		notes:       ta,
		salesperson: ti,
		width:       56,
	}
}

// Open shows the dialog for company with the given field values
func (d *NotesDialog) Open(company CompanyRef, notesText, salesperson string) tea.Cmd {
	d.session++
	d.company = company
	d.open = true
	d.live = true
	d.outstanding = 0
	d.alert = ""

	d.notes.SetValue(notesText)
	d.salesperson.SetValue(salesperson)
	d.salesperson.Blur()
	d.focus = fieldNotes

	d.logger.Debug("notes dialog opened", "company_id", company.ID, "session", d.session)
	return d.notes.Focus()
}

// Cancel closes the dialog and abandons the session
func (d *NotesDialog) Cancel() {
	if d.open {
		d.logger.Debug("notes dialog cancelled", "company_id", d.company.ID, "session", d.session)
	}
	d.live = false
	d.close()
}

func (d *NotesDialog) close() {
	d.open = false
	d.alert = ""
	d.notes.Blur()
	d.salesperson.Blur()
}

// IsOpen reports whether the dialog is showing
func (d *NotesDialog) IsOpen() bool {
	return d.open
}

// Company returns the company of the current session
func (d *NotesDialog) Company() CompanyRef {
	return d.company
}

// Alert returns the pending error text, empty when none
func (d *NotesDialog) Alert() string {
	return d.alert
}

// Saving reports whether a save is waiting for its reply
func (d *NotesDialog) Saving() bool {
	return d.live && d.outstanding > 0
}

// SetWidth fits the fields to the screen
func (d *NotesDialog) SetWidth(screenWidth int) {
	width := screenWidth - 12
	if width > 72 {
		width = 72
	}
	if width < 20 {
		width = 20
	}
	d.width = width
	d.notes.SetWidth(width)
	d.salesperson.Width = width
}

// Save submits the current field values. Saves may overlap and the last
// reply to arrive wins: a success closes the dialog and notifies, a
// failure reopens it with the error. Replies keep counting after a
// success closes the dialog, until Cancel or the next Open.
func (d *NotesDialog) Save() tea.Cmd {
	if !d.open {
		return nil
	}
	req := notes.UpdateRequest{
		Notes:               d.notes.Value(),
		AssignedSalesperson: d.salesperson.Value(),
	}
	session, companyID, saver := d.session, d.company.ID, d.saver
	d.outstanding++

	d.logger.Debug("saving notes", "company_id", companyID, "backend", saver.Name())
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		err := saver.UpdateCompanyNotes(ctx, companyID, req)
		return notesSavedMsg{session: session, companyID: companyID, err: err}
	}
}

// Update handles save replies and, while open, keyboard input. The bool
// reports whether the message was meant for the dialog.
func (d *NotesDialog) Update(msg tea.Msg) (tea.Cmd, bool) {
	switch msg := msg.(type) {
	case notesSavedMsg:
		return d.handleSaved(msg), true
	case tea.KeyMsg:
		if !d.open {
			return nil, false
		}
		return d.handleKey(msg), true
	}

	if !d.open {
		return nil, false
	}
	// cursor blink and friends
	var cmd tea.Cmd
	if d.focus == fieldNotes {
		d.notes, cmd = d.notes.Update(msg)
	} else {
		d.salesperson, cmd = d.salesperson.Update(msg)
	}
	return cmd, false
}

func (d *NotesDialog) handleSaved(msg notesSavedMsg) tea.Cmd {
	if !d.live || msg.session != d.session {
		d.logger.Debug("dropping notes reply for ended session",
			"company_id", msg.companyID, "session", msg.session, "error", msg.err)
		return nil
	}
	if d.outstanding > 0 {
		d.outstanding--
	}
	defer func() {
		if !d.open && d.outstanding == 0 {
			d.live = false
		}
	}()

	if msg.err != nil {
		d.logger.Error("saving notes failed", "company_id", msg.companyID, "error", msg.err)
		d.alert = "Error saving notes: " + notes.Message(msg.err)
		if d.open {
			return nil
		}
		// the field values survive close, so a late failure can reopen
		d.open = true
		return d.focusField()
	}

	name := d.company.Name
	d.logger.Info("notes saved", "company_id", msg.companyID)
	d.close()

	var cmds []tea.Cmd
	if d.notifier != nil {
		_, cmd := d.notifier.Push("Notes saved for " + name)
		cmds = append(cmds, cmd)
	}
	if d.OnSaved != nil {
		cmds = append(cmds, d.OnSaved())
	}
	return tea.Batch(cmds...)
}

func (d *NotesDialog) handleKey(msg tea.KeyMsg) tea.Cmd {
	// The alert blocks everything until acknowledged
	if d.alert != "" {
		switch msg.String() {
		case "enter", "esc":
			d.alert = ""
		}
		return nil
	}

	switch msg.String() {
	case "esc":
		d.Cancel()
		return nil
	case "ctrl+s":
		return d.Save()
	case "tab", "shift+tab":
		return d.switchField()
	case "enter":
		if d.focus == fieldSalesperson {
			return d.Save()
		}
	}

	var cmd tea.Cmd
	if d.focus == fieldNotes {
		d.notes, cmd = d.notes.Update(msg)
	} else {
		d.salesperson, cmd = d.salesperson.Update(msg)
	}
	return cmd
}

func (d *NotesDialog) switchField() tea.Cmd {
	if d.focus == fieldNotes {
		d.focus = fieldSalesperson
	} else {
		d.focus = fieldNotes
	}
	return d.focusField()
}

func (d *NotesDialog) focusField() tea.Cmd {
	if d.focus == fieldSalesperson {
		d.notes.Blur()
		return d.salesperson.Focus()
	}
	d.salesperson.Blur()
	return d.notes.Focus()
}

// View renders the dialog centered on a width x height screen, or the
// alert when one is pending.
func (d *NotesDialog) View(width, height int) string {
	if !d.open {
		return ""
	}
	if d.alert != "" {
		alert := alertStyle.Render(d.alert + "\n\n" + labelStyle.Render("enter: OK"))
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, alert)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Notes for %s\n\n", lipgloss.NewStyle().Bold(true).Render(d.company.Name)))
	b.WriteString(labelStyle.Render("Notes:") + "\n")
	b.WriteString(d.notes.View() + "\n\n")
	b.WriteString(labelStyle.Render("Assigned salesperson:") + "\n")
	b.WriteString(d.salesperson.View() + "\n\n")
	if d.Saving() {
		b.WriteString(categoryStyle.Render("Saving...") + "\n")
	}
	b.WriteString(labelStyle.Render("ctrl+s: save • tab: switch field • esc: cancel"))

	return centerBox(b.String(), width, height)
}
