package tui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const defaultNotificationDuration = 3 * time.Second

type notification struct {
	id      int
	text    string
	expires time.Time
}

// notificationExpiredMsg fires when a notification's timer runs out
type notificationExpiredMsg struct {
	id int
}

// Notifier keeps the stack of transient notifications. Each one has its
// own timer; an explicit dismissal removes it before the timer fires.
type Notifier struct {
	items    []notification
	nextID   int
	duration time.Duration
	now      func() time.Time
}

// NewNotifier creates a notifier whose messages live for duration
func NewNotifier(duration time.Duration) *Notifier {
	if duration <= 0 {
		duration = defaultNotificationDuration
	}
	return &Notifier{duration: duration, now: time.Now}
}

// Push adds a notification and returns its id and the timer command
func (n *Notifier) Push(text string) (int, tea.Cmd) {
	n.nextID++
	id := n.nextID
	n.items = append(n.items, notification{
		id:      id,
		text:    strings.TrimSpace(text),
		expires: n.now().Add(n.duration),
	})
	return id, tea.Tick(n.duration, func(time.Time) tea.Msg {
		return notificationExpiredMsg{id: id}
	})
}

// Dismiss removes a notification. Unknown ids are ignored.
func (n *Notifier) Dismiss(id int) bool {
	for i, item := range n.items {
		if item.id == id {
			n.items = append(n.items[:i], n.items[i+1:]...)
			return true
		}
	}
	return false
}

// Expire removes a notification whose timer fired
func (n *Notifier) Expire(id int) bool {
	return n.Dismiss(id)
}

// DismissLatest removes the most recent notification
func (n *Notifier) DismissLatest() bool {
	if len(n.items) == 0 {
		return false
	}
	return n.Dismiss(n.items[len(n.items)-1].id)
}

// Update handles timer messages. It reports whether msg was consumed.
func (n *Notifier) Update(msg tea.Msg) bool {
	expired, ok := msg.(notificationExpiredMsg)
	if !ok {
		return false
	}
	n.Expire(expired.id)
	return true
}

// Active returns the texts of notifications still alive at the given time
func (n *Notifier) Active(at time.Time) []string {
	var texts []string
	for _, item := range n.activeItems(at) {
		texts = append(texts, item.text)
	}
	return texts
}

// ActiveIDs returns the ids of live notifications in display order
func (n *Notifier) ActiveIDs(at time.Time) []int {
	var ids []int
	for _, item := range n.activeItems(at) {
		ids = append(ids, item.id)
	}
	return ids
}

func (n *Notifier) activeItems(at time.Time) []notification {
	var items []notification
	for _, item := range n.items {
		if at.Before(item.expires) {
			items = append(items, item)
		}
	}
	return items
}

// Len returns the number of notifications not yet removed
func (n *Notifier) Len() int {
	return len(n.items)
}

// View renders active notifications right-aligned, newest last
func (n *Notifier) View(width int) string {
	texts := n.Active(n.now())
	if len(texts) == 0 || width <= 0 {
		return ""
	}
	lines := make([]string, 0, len(texts))
	for _, text := range texts {
		pill := notificationStyle.Render(text + "  ×")
		lines = append(lines, lipgloss.PlaceHorizontal(width, lipgloss.Right, pill))
	}
	return strings.Join(lines, "\n")
}
