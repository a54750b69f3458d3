// Package selection is the multi-selection state machine behind gallery
// views. State changes only through Reduce, which is pure; Controller wraps
// it with the current visible ordering for UI code.
package selection

import "slices"

type Mode string

const (
	ModeSingle Mode = "single"
	ModeMulti  Mode = "multi"
)

// State is an ordered set of selected names plus the anchor used as one
// end of a range selection. The zero value is an empty selection.
type State struct {
	Selected     []string
	LastSelected string
}

// Mode is single for zero or one selected names and multi otherwise.
func (s State) Mode() Mode {
	if len(s.Selected) > 1 {
		return ModeMulti
	}
	return ModeSingle
}

func (s State) Contains(name string) bool {
	return slices.Contains(s.Selected, name)
}

// Action is one of Add, Remove, Toggle, Range, SelectAll or Clear.
type Action interface {
	apply(State) State
}

// Add unions Names into the selection; the last name becomes the anchor.
type Add struct{ Names []string }

// Remove drops Names from the selection. The anchor is kept.
type Remove struct{ Names []string }

// Toggle flips membership of Name. A newly added name becomes the anchor;
// toggling a name off leaves the anchor alone.
type Toggle struct{ Name string }

// Range adds every name between Start and End in Visible, inclusive and in
// either direction, and anchors on End. If either end is not visible the
// state is unchanged.
type Range struct {
	Start, End string
	Visible    []string
}

// SelectAll replaces the selection with Visible and anchors on its last name.
type SelectAll struct{ Visible []string }

// Clear empties the selection and the anchor.
type Clear struct{}

// Reduce returns the state after applying a. s is never modified.
func Reduce(s State, a Action) State {
	if a == nil {
		return s
	}
	return a.apply(s)
}

func (a Add) apply(s State) State {
	next := union(s.Selected, a.Names)
	anchor := s.LastSelected
	for _, n := range a.Names {
		if n != "" {
			anchor = n
		}
	}
	return State{Selected: next, LastSelected: anchor}
}

func (a Remove) apply(s State) State {
	drop := make(map[string]struct{}, len(a.Names))
	for _, n := range a.Names {
		drop[n] = struct{}{}
	}
	next := make([]string, 0, len(s.Selected))
	for _, n := range s.Selected {
		if _, ok := drop[n]; !ok {
			next = append(next, n)
		}
	}
	return State{Selected: next, LastSelected: s.LastSelected}
}

func (a Toggle) apply(s State) State {
	if a.Name == "" {
		return s
	}
	if s.Contains(a.Name) {
		return Remove{Names: []string{a.Name}}.apply(s)
	}
	return Add{Names: []string{a.Name}}.apply(s)
}

func (a Range) apply(s State) State {
	i := slices.Index(a.Visible, a.Start)
	j := slices.Index(a.Visible, a.End)
	if i < 0 || j < 0 {
		return s
	}
	if i > j {
		i, j = j, i
	}
	next := union(s.Selected, a.Visible[i:j+1])
	return State{Selected: next, LastSelected: a.End}
}

func (a SelectAll) apply(State) State {
	next := union(nil, a.Visible)
	var anchor string
	if len(next) > 0 {
		anchor = next[len(next)-1]
	}
	return State{Selected: next, LastSelected: anchor}
}

func (Clear) apply(State) State {
	return State{}
}

func union(base, add []string) []string {
	out := make([]string, 0, len(base)+len(add))
	out = append(out, base...)
	seen := make(map[string]struct{}, len(base)+len(add))
	for _, n := range base {
		seen[n] = struct{}{}
	}
	for _, n := range add {
		if _, ok := seen[n]; n == "" || ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
