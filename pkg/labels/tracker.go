package labels

import (
	"golang.org/x/exp/slices"
)

// HasUnsavedChanges reports whether current differs from saved, ignoring the
// selection. Index lists are compared as sorted sets.
func HasUnsavedChanges(saved, current Snapshot) bool {
	a, b := normalize(saved), normalize(current)
	if len(a) != len(b) {
		return true
	}
	for name, indices := range a {
		other, ok := b[name]
		if !ok || !slices.Equal(indices, other) {
			return true
		}
	}
	return false
}

func normalize(snap Snapshot) map[string][]int {
	out := make(map[string][]int, len(snap))
	for name, indices := range snap {
		if name == Selected {
			continue
		}
		sorted := slices.Clone(indices)
		slices.Sort(sorted)
		out[name] = slices.Compact(sorted)
	}
	return out
}

// Tracker remembers the last saved snapshot of a Set
type Tracker struct {
	saved Snapshot
}

// NewTracker creates a tracker whose baseline is saved
func NewTracker(saved Snapshot) *Tracker {
	return &Tracker{saved: saved}
}

// MarkSaved records snap as the new baseline
func (t *Tracker) MarkSaved(snap Snapshot) {
	t.saved = snap
}

// Saved returns the baseline
func (t *Tracker) Saved() Snapshot {
	return t.saved
}

// Dirty reports whether current has unsaved changes against the baseline
func (t *Tracker) Dirty(current Snapshot) bool {
	return HasUnsavedChanges(t.saved, current)
}
