// Package display turns calendar items into short human-readable time labels.
package display

import (
	"time"

	"calnotify/internal/models"
)

const (
	allDayText   = "All day"
	rangeLayout  = "15:04"
	singleLayout = "2006-01-02 15:04"
)

// Label is the result of formatting an item. Fallback is set when the
// item's time fields could not be parsed and Text holds the raw value.
type Label struct {
	Text     string
	Fallback bool
}

func (l Label) String() string {
	return l.Text
}

// Formatter renders item times in a fixed location.
type Formatter struct {
	// Location used for rendering. Nil means time.Local.
	Location *time.Location
}

// NewFormatter creates a Formatter for loc.
func NewFormatter(loc *time.Location) *Formatter {
	return &Formatter{Location: loc}
}

// Format returns the display label for item. It never fails: unparseable
// times degrade to the raw start value.
func (f *Formatter) Format(item models.CalendarItem) Label {
	if item.AllDay {
		return Label{Text: allDayText}
	}

	start, err := time.Parse(time.RFC3339, item.Start)
	if err != nil {
		return fallback(item)
	}
	start = start.In(f.location())

	if item.End == "" {
		return Label{Text: start.Format(singleLayout)}
	}

	end, err := time.Parse(time.RFC3339, item.End)
	if err != nil {
		return fallback(item)
	}
	end = end.In(f.location())

	return Label{Text: start.Format(rangeLayout) + "–" + end.Format(rangeLayout)}
}

func (f *Formatter) location() *time.Location {
	if f.Location == nil {
		return time.Local
	}
	return f.Location
}

func fallback(item models.CalendarItem) Label {
	if item.Start != "" {
		return Label{Text: item.Start, Fallback: true}
	}
	return Label{Text: item.Date, Fallback: true}
}
