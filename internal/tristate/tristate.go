// Package tristate implements a selection model where every option is
// included, excluded or unselected. It holds no rendering state, so it
// can be driven and inspected without a terminal.
package tristate

import (
	"sort"
	"strings"
)

// State is the selection state of a single option.
type State int

const (
	Included State = iota
	Excluded
	Unselected
)

func (s State) String() string {
	switch s {
	case Included:
		return "included"
	case Excluded:
		return "excluded"
	default:
		return "unselected"
	}
}

// Next returns the state that follows s in the cycle
// included -> excluded -> unselected -> included.
func (s State) Next() State {
	switch s {
	case Included:
		return Excluded
	case Excluded:
		return Unselected
	default:
		return Included
	}
}

// Snapshot is the derived selection. Unselected options appear in neither list.
type Snapshot struct {
	Included []string `json:"included"`
	Excluded []string `json:"excluded"`
}

// Tag describes one option that is not unselected.
type Tag struct {
	Label string
	State State
}

// Op is a state transition applied to one option.
type Op int

const (
	OpToggle Op = iota
	OpRemove
)

// Apply computes the next state of label under op. It reports false when
// label is unknown or the operation would not change anything.
func Apply(states map[string]State, label string, op Op) (State, bool) {
	current, ok := states[label]
	if !ok {
		return current, false
	}
	switch op {
	case OpToggle:
		return current.Next(), true
	case OpRemove:
		if current == Unselected {
			return current, false
		}
		return Unselected, true
	}
	return current, false
}

// Selector owns the option set, per-option state and the search filter.
// It is not safe for concurrent use.
type Selector struct {
	options []string
	states  map[string]State
	filter  string

	// OnChange, if set, is called after every state mutation.
	OnChange func(Snapshot)
}

// New returns a selector with the given options, all included.
func New(options []string) *Selector {
	s := &Selector{states: map[string]State{}}
	s.replace(options)
	return s
}

// SetOptions replaces the whole option set. Every option becomes included;
// earlier exclusions are discarded.
func (s *Selector) SetOptions(options []string) {
	s.replace(options)
	s.changed()
}

func (s *Selector) replace(options []string) {
	states := make(map[string]State, len(options))
	sorted := make([]string, 0, len(options))
	for _, option := range options {
		if _, seen := states[option]; seen {
			continue
		}
		states[option] = Included
		sorted = append(sorted, option)
	}
	sort.Strings(sorted)
	s.options = sorted
	s.states = states
}

// Toggle advances label one step through the cycle. Unknown labels are ignored.
func (s *Selector) Toggle(label string) bool {
	return s.apply(label, OpToggle)
}

// Remove moves label straight to unselected, as removing its tag does.
func (s *Selector) Remove(label string) bool {
	return s.apply(label, OpRemove)
}

func (s *Selector) apply(label string, op Op) bool {
	next, ok := Apply(s.states, label, op)
	if !ok {
		return false
	}
	s.states[label] = next
	s.changed()
	return true
}

func (s *Selector) changed() {
	if s.OnChange != nil {
		s.OnChange(s.Snapshot())
	}
}

// StateOf returns the state of label and whether label is a known option.
func (s *Selector) StateOf(label string) (State, bool) {
	state, ok := s.states[label]
	return state, ok
}

// Options returns every option in sorted order.
func (s *Selector) Options() []string {
	return append([]string(nil), s.options...)
}

// SetFilter sets the case-insensitive substring used by Visible.
func (s *Selector) SetFilter(filter string) {
	s.filter = filter
}

// Filter returns the current search filter.
func (s *Selector) Filter() string {
	return s.filter
}

// Visible returns the options whose label contains the filter.
func (s *Selector) Visible() []string {
	if s.filter == "" {
		return s.Options()
	}
	needle := strings.ToLower(s.filter)
	var visible []string
	for _, option := range s.options {
		if strings.Contains(strings.ToLower(option), needle) {
			visible = append(visible, option)
		}
	}
	return visible
}

// Snapshot returns the included and excluded options in option order.
func (s *Selector) Snapshot() Snapshot {
	snap := Snapshot{Included: []string{}, Excluded: []string{}}
	for _, option := range s.options {
		switch s.states[option] {
		case Included:
			snap.Included = append(snap.Included, option)
		case Excluded:
			snap.Excluded = append(snap.Excluded, option)
		}
	}
	return snap
}

// Tags returns one tag per option that is not unselected.
func (s *Selector) Tags() []Tag {
	var tags []Tag
	for _, option := range s.options {
		if state := s.states[option]; state != Unselected {
			tags = append(tags, Tag{Label: option, State: state})
		}
	}
	return tags
}

// Matches reports whether value passes the selection: it must be included.
// Excluded and unselected values never match.
func (snap Snapshot) Matches(value string) bool {
	for _, v := range snap.Included {
		if v == value {
			return true
		}
	}
	return false
}
