// Package window computes the local-day query window used to scope fetches.
package window

import "time"

// Window is the half-open range of the current local day that has elapsed so far.
type Window struct {
	Start time.Time // Local midnight of the current date
	End   time.Time // The instant the window was computed
}

// Today returns the window from local midnight of now's date up to now.
// Both bounds are expressed in now's location.
func Today(now time.Time) Window {
	return Window{
		Start: StartOfDay(now),
		End:   now,
	}
}

// StartOfDay returns the first instant of t's date in t's location. That is
// midnight, except in zones whose clocks skip past midnight, where it is the
// first wall time after the jump.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	for !sameDate(start, t) {
		start = start.Add(15 * time.Minute)
	}
	return start
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DateKey returns t's local date as YYYY-MM-DD.
func DateKey(t time.Time) string {
	return t.Format(time.DateOnly)
}

// StartRFC3339 serializes the lower bound for API query parameters.
func (w Window) StartRFC3339() string {
	return w.Start.Format(time.RFC3339)
}

// EndRFC3339 serializes the upper bound for API query parameters.
func (w Window) EndRFC3339() string {
	return w.End.Format(time.RFC3339)
}
