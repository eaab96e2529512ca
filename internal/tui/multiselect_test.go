package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdxmph/companies-tui/internal/tristate"
)

func newTestMultiSelect() *MultiSelect {
	ms := NewMultiSelect("Categories", []string{"vendor", "customer", "partner", "customer"})
	ms.SetPosition(0, 0)
	ms.SetWidth(60)
	return ms
}

func press(x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}
}

func typed(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func changedSnapshot(t *testing.T, cmd tea.Cmd) tristate.Snapshot {
	t.Helper()
	require.NotNil(t, cmd)
	msg, ok := cmd().(SelectionChangedMsg)
	require.True(t, ok, "expected SelectionChangedMsg")
	assert.Equal(t, "Categories", msg.Source)
	return msg.Snapshot
}

func TestNewMultiSelectIncludesAllOptions(t *testing.T) {
	ms := newTestMultiSelect()

	assert.Equal(t, []string{"customer", "partner", "vendor"}, ms.Options())
	assert.Equal(t, []string{"customer", "partner", "vendor"}, ms.Snapshot().Included)
	assert.Empty(t, ms.Snapshot().Excluded)
	assert.False(t, ms.IsOpen())
}

func TestKeyboardCyclesOptionUnderCursor(t *testing.T) {
	ms := newTestMultiSelect()
	ms.Open()

	cmd, consumed := ms.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.True(t, consumed)
	assert.Nil(t, cmd)

	snap := changedSnapshot(t, mustCmd(ms.Update(tea.KeyMsg{Type: tea.KeyEnter})))
	assert.Equal(t, []string{"customer", "vendor"}, snap.Included)
	assert.Equal(t, []string{"partner"}, snap.Excluded)

	snap = changedSnapshot(t, mustCmd(ms.Update(typed(" "))))
	assert.Equal(t, []string{"customer", "vendor"}, snap.Included)
	assert.Empty(t, snap.Excluded)

	state, ok := ms.StateOf("partner")
	require.True(t, ok)
	assert.Equal(t, tristate.Unselected, state)
}

func mustCmd(cmd tea.Cmd, consumed bool) tea.Cmd {
	if !consumed {
		return nil
	}
	return cmd
}

func TestSearchNarrowsWithoutChangingSelection(t *testing.T) {
	ms := newTestMultiSelect()
	ms.Open()

	ms.Update(typed("VEN"))
	assert.Equal(t, []string{"vendor"}, ms.Visible())
	assert.Equal(t, []string{"customer", "partner", "vendor"}, ms.Snapshot().Included)

	snap := changedSnapshot(t, mustCmd(ms.Update(tea.KeyMsg{Type: tea.KeyEnter})))
	assert.Equal(t, []string{"vendor"}, snap.Excluded)
}

func TestToggleIgnoresHiddenOptions(t *testing.T) {
	ms := newTestMultiSelect()
	ms.Open()
	ms.Update(typed("cust"))

	assert.Nil(t, ms.Toggle("vendor"))
	state, _ := ms.StateOf("vendor")
	assert.Equal(t, tristate.Included, state)

	assert.NotNil(t, ms.Toggle("customer"))
}

func TestEscCloses(t *testing.T) {
	ms := newTestMultiSelect()
	ms.ToggleOpen()
	require.True(t, ms.IsOpen())

	_, consumed := ms.Update(tea.KeyMsg{Type: tea.KeyEscape})
	assert.True(t, consumed)
	assert.False(t, ms.IsOpen())

	// closed dropdowns leave keys to the host
	_, consumed = ms.Update(typed("q"))
	assert.False(t, consumed)
}

func TestPressOutsideCloses(t *testing.T) {
	ms := newTestMultiSelect()
	ms.Open()

	cmd, consumed := ms.Update(press(5, 30))
	assert.Nil(t, cmd)
	assert.False(t, consumed)
	assert.False(t, ms.IsOpen())
}

func TestPressInsideIsConsumed(t *testing.T) {
	ms := newTestMultiSelect()
	ms.Open()
	require.Equal(t, rowFirstOption+3, ms.Height())

	// search row is inert
	cmd, consumed := ms.Update(press(3, rowSearch))
	assert.True(t, consumed)
	assert.Nil(t, cmd)
	assert.True(t, ms.IsOpen())

	// third option row is vendor
	cmd, consumed = ms.Update(press(3, rowFirstOption+2))
	assert.True(t, consumed)
	snap := changedSnapshot(t, cmd)
	assert.Equal(t, []string{"vendor"}, snap.Excluded)
	assert.True(t, ms.IsOpen())

	// the trigger closes it again
	_, consumed = ms.Update(press(0, rowTrigger))
	assert.True(t, consumed)
	assert.False(t, ms.IsOpen())
}

func TestPressOnTagRemovesIt(t *testing.T) {
	ms := newTestMultiSelect()

	cmd, consumed := ms.Update(press(1, rowTags))
	assert.True(t, consumed)
	snap := changedSnapshot(t, cmd)
	assert.Equal(t, []string{"partner", "vendor"}, snap.Included)
	assert.Empty(t, snap.Excluded)
}

func TestTagRemovalStaysWithOwner(t *testing.T) {
	a := newTestMultiSelect()
	b := newTestMultiSelect()
	a.Toggle("customer")

	renderTags(a).remove("customer")

	state, _ := a.StateOf("customer")
	assert.Equal(t, tristate.Unselected, state)
	state, _ = b.StateOf("customer")
	assert.Equal(t, tristate.Included, state)
}

func TestTagFocusRemovesWithKeyboard(t *testing.T) {
	ms := newTestMultiSelect()
	ms.Open()

	_, consumed := ms.Update(tea.KeyMsg{Type: tea.KeyTab})
	require.True(t, consumed)
	ms.Update(tea.KeyMsg{Type: tea.KeyRight})

	snap := changedSnapshot(t, mustCmd(ms.Update(typed("x"))))
	assert.Equal(t, []string{"customer", "vendor"}, snap.Included)

	assert.Contains(t, ms.View(), "+customer")
	assert.NotContains(t, ms.View(), "+partner")
}

func TestNarrowTagRowSummarizesHiddenTags(t *testing.T) {
	ms := newTestMultiSelect()
	ms.SetWidth(24)
	ms.Open()

	view := ms.View()
	assert.Contains(t, view, "+customer")
	assert.Contains(t, view, "+2 more")
	assert.NotContains(t, view, "+partner")

	// focus stays on tags the row shows
	ms.Update(tea.KeyMsg{Type: tea.KeyTab})
	ms.Update(tea.KeyMsg{Type: tea.KeyRight})
	ms.Update(tea.KeyMsg{Type: tea.KeyRight})
	snap := changedSnapshot(t, mustCmd(ms.Update(typed("x"))))
	assert.Equal(t, []string{"partner", "vendor"}, snap.Included)

	view = ms.View()
	assert.Contains(t, view, "+partner")
	assert.Contains(t, view, "+vendor")
	assert.NotContains(t, view, "more")
}

func TestSetOptionsResetsExclusions(t *testing.T) {
	ms := newTestMultiSelect()
	ms.Toggle("vendor")
	require.Equal(t, []string{"vendor"}, ms.Snapshot().Excluded)

	snap := changedSnapshot(t, ms.SetOptions([]string{"vendor", "prospect"}))
	assert.Equal(t, []string{"prospect", "vendor"}, snap.Included)
	assert.Empty(t, snap.Excluded)
}

func TestViewShowsStates(t *testing.T) {
	ms := newTestMultiSelect()
	ms.Toggle("partner")
	ms.Toggle("vendor")
	ms.Toggle("vendor")
	ms.Open()

	view := ms.View()
	assert.Contains(t, view, "[+] customer")
	assert.Contains(t, view, "[-] partner")
	assert.Contains(t, view, "[ ] vendor")
	assert.Contains(t, view, "-partner")
	assert.Contains(t, view, "1 included, 1 excluded")
}
