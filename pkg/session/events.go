package session

// EventType identifies different session events.
type EventType int

const (
	// EventSelectionChanged carries *models.Selection, nil when cleared
	EventSelectionChanged EventType = iota
	// EventLabelsChanged carries labels.Change
	EventLabelsChanged
	// EventOrderingChanged carries the new ordering []int
	EventOrderingChanged
	// EventRedraw carries nil
	EventRedraw
	// EventSaved carries the saved labels.Snapshot
	EventSaved
	// EventDirtyChanged carries the new dirty state as bool
	EventDirtyChanged
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// On registers an event listener for the specified event type. Listeners of
// one event type run in registration order.
func (s *Session) On(event EventType, listener EventListener) {
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *Session) Emit(event EventType, data interface{}) {
	for _, listener := range s.listeners[event] {
		listener(data)
	}
}
