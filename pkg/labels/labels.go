// Package labels tracks named sets of point indices used to curate tiles.
package labels

import (
	"sort"

	"golang.org/x/exp/slices"

	"synaptogram/internal/models"
)

// Selected is the reserved label holding the current selection. It never
// contains more than one index.
const Selected = "selected"

// Common curation labels
const (
	Artifact = "artifact"
	Orphan   = "orphan"
)

// Snapshot is a serializable copy of a label set: label name to sorted indices
type Snapshot map[string][]int

// Change describes one observable mutation of a Set
type Change struct {
	// Label is the affected label name
	Label string

	// Index is the affected point index
	Index int

	// Added is true when Index joined Label and false when it left
	Added bool
}

// Listener is notified after each observable change
type Listener func(Change)

// Set maps label names to sets of point indices. Notifications are delivered
// synchronously in registration order; listeners must not mutate the set.
type Set struct {
	sets      map[string]map[int]struct{}
	listeners []Listener
	muted     int
}

// NewSet creates an empty label set
func NewSet() *Set {
	return &Set{sets: make(map[string]map[int]struct{})}
}

// FromSnapshot creates a label set holding the contents of snap
func FromSnapshot(snap Snapshot) *Set {
	s := NewSet()
	s.restore(snap)
	return s
}

// Subscribe registers a change listener
func (s *Set) Subscribe(listener Listener) {
	s.listeners = append(s.listeners, listener)
}

// Mute suppresses notifications until the returned function is called.
// Calls nest.
func (s *Set) Mute() func() {
	s.muted++
	return func() { s.muted-- }
}

func (s *Set) notify(c Change) {
	if s.muted > 0 {
		return
	}
	for _, listener := range s.listeners {
		listener(c)
	}
}

func (s *Set) add(name string, i int) bool {
	set, ok := s.sets[name]
	if !ok {
		set = make(map[int]struct{})
		s.sets[name] = set
	}
	if _, ok := set[i]; ok {
		return false
	}
	set[i] = struct{}{}
	return true
}

func (s *Set) remove(name string, i int) bool {
	set, ok := s.sets[name]
	if !ok {
		return false
	}
	if _, ok := set[i]; !ok {
		return false
	}
	delete(set, i)
	if len(set) == 0 {
		delete(s.sets, name)
	}
	return true
}

// Label adds index i to the named label. Labelling models.NoTile is a no-op.
// The selection label cannot be set this way; use Select.
func (s *Set) Label(i int, name string) {
	if i == models.NoTile || name == Selected {
		return
	}
	if s.add(name, i) {
		s.notify(Change{Label: name, Index: i, Added: true})
	}
}

// Unlabel removes index i from the named labels. Without names it removes i
// from every label except the selection.
func (s *Set) Unlabel(i int, names ...string) {
	if i == models.NoTile {
		return
	}
	if len(names) == 0 {
		names = s.Names()
	}
	for _, name := range names {
		if name == Selected {
			continue
		}
		if s.remove(name, i) {
			s.notify(Change{Label: name, Index: i, Added: false})
		}
	}
}

// Select replaces the selection with index i. Selecting models.NoTile is a no-op.
func (s *Set) Select(i int) {
	if i == models.NoTile {
		return
	}
	previous, ok := s.Selection()
	if ok && previous == i {
		return
	}
	if ok {
		s.remove(Selected, previous)
		s.notify(Change{Label: Selected, Index: previous, Added: false})
	}
	s.add(Selected, i)
	s.notify(Change{Label: Selected, Index: i, Added: true})
}

// ClearSelection empties the selection
func (s *Set) ClearSelection() {
	if previous, ok := s.Selection(); ok {
		s.remove(Selected, previous)
		s.notify(Change{Label: Selected, Index: previous, Added: false})
	}
}

// Selection returns the selected index, if any
func (s *Set) Selection() (int, bool) {
	for i := range s.sets[Selected] {
		return i, true
	}
	return models.NoTile, false
}

// Has reports whether index i carries the named label
func (s *Set) Has(i int, name string) bool {
	_, ok := s.sets[name][i]
	return ok
}

// Members returns the sorted indices of the named label
func (s *Set) Members(name string) []int {
	members := make([]int, 0, len(s.sets[name]))
	for i := range s.sets[name] {
		members = append(members, i)
	}
	slices.Sort(members)
	return members
}

// LabelsOf returns the sorted names of all labels carried by index i,
// excluding the selection
func (s *Set) LabelsOf(i int) []string {
	var names []string
	for name, set := range s.sets {
		if name == Selected {
			continue
		}
		if _, ok := set[i]; ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Names returns the sorted names of all non-empty labels
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.sets))
	for name := range s.sets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns a copy of the set. Empty labels are omitted.
func (s *Set) Snapshot() Snapshot {
	snap := make(Snapshot, len(s.sets))
	for name := range s.sets {
		snap[name] = s.Members(name)
	}
	return snap
}

// Restore replaces the contents with snap and sends a single notification per
// affected index. A selection in snap with several members keeps only the
// smallest index.
func (s *Set) Restore(snap Snapshot) {
	old := s.Snapshot()
	s.restore(snap)
	for name, members := range old {
		for _, i := range members {
			if !s.Has(i, name) {
				s.notify(Change{Label: name, Index: i, Added: false})
			}
		}
	}
	for _, name := range s.Names() {
		for _, i := range s.Members(name) {
			if !slices.Contains(old[name], i) {
				s.notify(Change{Label: name, Index: i, Added: true})
			}
		}
	}
}

func (s *Set) restore(snap Snapshot) {
	s.sets = make(map[string]map[int]struct{}, len(snap))
	for name, members := range snap {
		if name == Selected {
			if len(members) > 0 {
				s.add(Selected, slices.Min(members))
			}
			continue
		}
		for _, i := range members {
			if i != models.NoTile {
				s.add(name, i)
			}
		}
	}
}
