package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdxmph/companies-tui/internal/notes"
)

type savedCall struct {
	companyID int64
	req       notes.UpdateRequest
}

type fakeSaver struct {
	mu    sync.Mutex
	calls []savedCall
	err   error
	// errs answers calls in order before falling back to err
	errs []error
}

func (f *fakeSaver) Name() string    { return "fake" }
func (f *fakeSaver) IsEnabled() bool { return true }

func (f *fakeSaver) UpdateCompanyNotes(ctx context.Context, companyID int64, req notes.UpdateRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, savedCall{companyID: companyID, req: req})
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return err
	}
	return f.err
}

func (f *fakeSaver) Calls() []savedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]savedCall(nil), f.calls...)
}

var blueHarbor = CompanyRef{ID: 7, Name: "Blue Harbor Foods"}

func TestSaveWithoutEditsSubmitsOpenedValues(t *testing.T) {
	saver := &fakeSaver{}
	notifier := NewNotifier(3 * time.Second)
	d := NewNotesDialog(saver, notifier, nil)
	refreshed := 0
	d.OnSaved = func() tea.Cmd {
		refreshed++
		return nil
	}

	d.Open(blueHarbor, "Follow up Friday", "Alex")
	require.True(t, d.IsOpen())

	cmd := d.Save()
	require.NotNil(t, cmd)
	assert.True(t, d.Saving())
	msg := cmd()

	require.Len(t, saver.Calls(), 1)
	assert.Equal(t, savedCall{
		companyID: 7,
		req:       notes.UpdateRequest{Notes: "Follow up Friday", AssignedSalesperson: "Alex"},
	}, saver.Calls()[0])

	next, handled := d.Update(msg)
	assert.True(t, handled)
	assert.NotNil(t, next)
	assert.False(t, d.IsOpen())
	assert.False(t, d.Saving())
	assert.Empty(t, d.Alert())
	assert.Equal(t, 1, refreshed)
	assert.Equal(t, []string{"Notes saved for Blue Harbor Foods"}, notifier.Active(time.Now()))
}

func TestSaveSendsEditedValues(t *testing.T) {
	saver := &fakeSaver{}
	d := NewNotesDialog(saver, NewNotifier(0), nil)
	d.Open(CompanyRef{ID: 3, Name: "Acme"}, "", "")

	d.Update(typed("Met at expo"))
	d.Update(tea.KeyMsg{Type: tea.KeyTab})
	d.Update(typed("Sam"))

	cmd, handled := d.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, handled)
	require.NotNil(t, cmd)
	cmd()

	require.Len(t, saver.Calls(), 1)
	assert.Equal(t, notes.UpdateRequest{Notes: "Met at expo", AssignedSalesperson: "Sam"}, saver.Calls()[0].req)
}

func TestEndpointErrorKeepsDialogOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(notes.Result{Success: false, Error: "DB locked"})
	}))
	defer srv.Close()

	notifier := NewNotifier(0)
	d := NewNotesDialog(notes.NewHTTPBackend(srv.URL, time.Second, nil), notifier, nil)
	d.OnSaved = func() tea.Cmd {
		t.Fatal("refresh hook must not run on failure")
		return nil
	}

	d.Open(blueHarbor, "Follow up Friday", "Alex")
	d.Update(d.Save()())

	assert.True(t, d.IsOpen())
	assert.Equal(t, "Error saving notes: DB locked", d.Alert())
	assert.Equal(t, 0, notifier.Len())
	assert.Contains(t, d.View(100, 40), "Error saving notes: DB locked")

	// typing is blocked until the alert is acknowledged
	d.Update(typed("zzz"))
	assert.Equal(t, "Follow up Friday", d.notes.Value())

	d.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, d.Alert())
	assert.True(t, d.IsOpen())
	assert.Equal(t, "Follow up Friday", d.notes.Value())
	assert.Equal(t, "Alex", d.salesperson.Value())
}

func TestTransportErrorShowsAlert(t *testing.T) {
	saver := &fakeSaver{err: fmt.Errorf("%w: connection refused", notes.ErrTransport)}
	d := NewNotesDialog(saver, NewNotifier(0), nil)

	d.Open(blueHarbor, "", "")
	d.Update(d.Save()())

	assert.True(t, d.IsOpen())
	assert.Equal(t, "Error saving notes: notes transport failure: connection refused", d.Alert())
}

func TestReplyForClosedSessionIsDropped(t *testing.T) {
	saver := &fakeSaver{}
	notifier := NewNotifier(0)
	d := NewNotesDialog(saver, notifier, nil)

	d.Open(blueHarbor, "Follow up Friday", "Alex")
	pending := d.Save()
	d.Cancel()
	assert.False(t, d.IsOpen())

	d.Open(CompanyRef{ID: 9, Name: "Globex"}, "", "")
	cmd, handled := d.Update(pending())

	assert.True(t, handled)
	assert.Nil(t, cmd)
	assert.True(t, d.IsOpen())
	assert.Equal(t, int64(9), d.Company().ID)
	assert.Equal(t, 0, notifier.Len())
}

func TestLateFailureAfterSuccessReopensDialog(t *testing.T) {
	saver := &fakeSaver{errs: []error{nil, &notes.AppError{Message: "DB locked"}}}
	notifier := NewNotifier(0)
	d := NewNotesDialog(saver, notifier, nil)

	d.Open(blueHarbor, "Follow up Friday", "Alex")
	first, second := d.Save(), d.Save()
	succeeded, failed := first(), second()

	d.Update(succeeded)
	assert.False(t, d.IsOpen())
	assert.True(t, d.Saving())
	assert.Equal(t, []string{"Notes saved for Blue Harbor Foods"}, notifier.Active(time.Now()))

	_, handled := d.Update(failed)
	assert.True(t, handled)
	assert.True(t, d.IsOpen())
	assert.False(t, d.Saving())
	assert.Equal(t, "Error saving notes: DB locked", d.Alert())
	assert.Equal(t, "Follow up Friday", d.notes.Value())

	// acknowledging the alert leaves the fields editable
	d.Update(tea.KeyMsg{Type: tea.KeyEnter})
	d.Update(typed("!"))
	assert.Equal(t, "Follow up Friday!", d.notes.Value())
}

func TestLateSuccessAfterFailureCloses(t *testing.T) {
	saver := &fakeSaver{errs: []error{&notes.AppError{Message: "DB locked"}, nil}}
	notifier := NewNotifier(0)
	d := NewNotesDialog(saver, notifier, nil)

	d.Open(blueHarbor, "Follow up Friday", "Alex")
	first, second := d.Save(), d.Save()
	failed, succeeded := first(), second()

	d.Update(failed)
	assert.True(t, d.IsOpen())
	assert.Equal(t, "Error saving notes: DB locked", d.Alert())

	d.Update(succeeded)
	assert.False(t, d.IsOpen())
	assert.Empty(t, d.Alert())
	assert.Equal(t, []string{"Notes saved for Blue Harbor Foods"}, notifier.Active(time.Now()))
}

func TestEverySuccessfulReplyNotifies(t *testing.T) {
	saver := &fakeSaver{}
	notifier := NewNotifier(0)
	d := NewNotesDialog(saver, notifier, nil)
	refreshed := 0
	d.OnSaved = func() tea.Cmd {
		refreshed++
		return nil
	}

	d.Open(blueHarbor, "Follow up Friday", "Alex")
	first, second := d.Save(), d.Save()
	d.Update(first())
	d.Update(second())

	assert.False(t, d.IsOpen())
	assert.Equal(t, 2, notifier.Len())
	assert.Equal(t, 2, refreshed)

	// the session has ended once every reply is in
	stray := notesSavedMsg{session: d.session, companyID: blueHarbor.ID}
	d.Update(stray)
	assert.Equal(t, 2, notifier.Len())
}

func TestReplyAfterCancelIsDropped(t *testing.T) {
	saver := &fakeSaver{errs: []error{nil, &notes.AppError{Message: "DB locked"}}}
	notifier := NewNotifier(0)
	d := NewNotesDialog(saver, notifier, nil)

	d.Open(blueHarbor, "Follow up Friday", "Alex")
	first, second := d.Save(), d.Save()
	d.Cancel()

	d.Update(first())
	d.Update(second())
	assert.False(t, d.IsOpen())
	assert.Empty(t, d.Alert())
	assert.Equal(t, 0, notifier.Len())
}

func TestEscCancelsDialog(t *testing.T) {
	d := NewNotesDialog(&fakeSaver{}, NewNotifier(0), nil)
	d.Open(blueHarbor, "Follow up Friday", "Alex")
	assert.Contains(t, d.View(100, 40), "Notes for Blue Harbor Foods")

	_, handled := d.Update(tea.KeyMsg{Type: tea.KeyEscape})
	assert.True(t, handled)
	assert.False(t, d.IsOpen())
	assert.Nil(t, d.Save())
	assert.Empty(t, d.View(100, 40))
}
