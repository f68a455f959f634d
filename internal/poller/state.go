package poller

import (
	"time"

	"calnotify/internal/window"
)

// SeenSet holds the ids already notified today.
type SeenSet map[string]struct{}

// Has reports whether id was already notified.
func (s SeenSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Add marks id as notified.
func (s SeenSet) Add(id string) {
	s[id] = struct{}{}
}

func (s SeenSet) clone() SeenSet {
	out := make(SeenSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// State is the dedup state carried from one poll cycle to the next.
// Event and task ids are tracked independently. Both sets are cleared
// together when the local date moves past Date.
type State struct {
	SeenEvents SeenSet
	SeenTasks  SeenSet
	Date       string // YYYY-MM-DD of the day the sets belong to
}

// NewState returns an empty state for now's local date.
func NewState(now time.Time) State {
	return State{
		SeenEvents: make(SeenSet),
		SeenTasks:  make(SeenSet),
		Date:       window.DateKey(now),
	}
}

func (s State) clone() State {
	return State{
		SeenEvents: s.SeenEvents.clone(),
		SeenTasks:  s.SeenTasks.clone(),
		Date:       s.Date,
	}
}

// rollover clears both sets if now falls on a different date than s.Date.
func (s State) rollover(now time.Time) (State, bool) {
	today := window.DateKey(now)
	if today == s.Date {
		return s, false
	}
	return NewState(now), true
}
