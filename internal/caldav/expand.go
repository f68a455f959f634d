package caldav

import (
	"cmp"
	"slices"
	"time"

	"calnotify/internal/models"
	"calnotify/internal/window"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"
)

// recurrenceIDLayout formats occurrence start times in expanded ids.
const recurrenceIDLayout = "20060102T150405Z"

type occurrence struct {
	start time.Time
	item  models.CalendarItem
}

// ExpandEvents returns the event occurrences from cals that overlap w,
// ordered by start time. Recurring events are expanded into one item per
// occurrence with id UID_YYYYMMDDTHHMMSSZ; overridden instances replace
// the occurrence they override.
func ExpandEvents(cals []*ical.Calendar, w window.Window, loc *time.Location) []models.CalendarItem {
	var masters []*ical.Component
	overrides := make(map[string]*ical.Component)

	for _, cal := range cals {
		for _, comp := range cal.Children {
			if comp.Name != ical.CompEvent {
				continue
			}
			if rid := comp.Props.Get(ical.PropRecurrenceID); rid != nil {
				uid := textProp(comp, ical.PropUID)
				if t, err := rid.DateTime(loc); err == nil && uid != "" {
					overrides[occurrenceID(uid, t)] = comp
				}
				continue
			}
			masters = append(masters, comp)
		}
	}

	var out []occurrence
	for _, comp := range masters {
		out = append(out, expandComponent(comp, w, loc, overrides)...)
	}
	for id, comp := range overrides {
		if occ, ok := newOccurrence(comp, id, loc); ok && overlaps(occ, comp, w, loc) {
			out = append(out, occ)
		}
	}

	slices.SortStableFunc(out, func(a, b occurrence) int {
		if c := a.start.Compare(b.start); c != 0 {
			return c
		}
		return cmp.Compare(a.item.ID, b.item.ID)
	})

	items := make([]models.CalendarItem, len(out))
	for i, occ := range out {
		items[i] = occ.item
	}
	return items
}

func expandComponent(comp *ical.Component, w window.Window, loc *time.Location, overrides map[string]*ical.Component) []occurrence {
	uid := textProp(comp, ical.PropUID)

	set, err := comp.RecurrenceSet(loc)
	if err != nil || set == nil {
		occ, ok := newOccurrence(comp, uid, loc)
		if !ok || !overlaps(occ, comp, w, loc) {
			return nil
		}
		return []occurrence{occ}
	}

	base, ok := newOccurrence(comp, uid, loc)
	if !ok {
		return nil
	}
	duration := eventDuration(comp, base.start, loc)

	var out []occurrence
	for _, start := range occurrenceStarts(set, w, duration) {
		id := occurrenceID(uid, start)
		if _, overridden := overrides[id]; overridden {
			continue
		}
		out = append(out, shift(base, id, start, duration))
	}
	return out
}

// occurrenceStarts returns the recurrence starts whose occurrence
// [start, start+duration) overlaps w.
func occurrenceStarts(set *rrule.Set, w window.Window, duration time.Duration) []time.Time {
	var out []time.Time
	for _, start := range set.Between(w.Start.Add(-duration), w.End, true) {
		if start.Add(duration).After(w.Start) || (duration == 0 && !start.Before(w.Start)) {
			out = append(out, start)
		}
	}
	return out
}

func newOccurrence(comp *ical.Component, id string, loc *time.Location) (occurrence, bool) {
	prop := comp.Props.Get(ical.PropDateTimeStart)
	if prop == nil {
		return occurrence{}, false
	}
	start, err := prop.DateTime(loc)
	if err != nil {
		return occurrence{}, false
	}

	item := models.CalendarItem{ID: id, Title: textProp(comp, ical.PropSummary)}
	if isDate(prop) {
		item.AllDay = true
		item.Date = start.Format(time.DateOnly)
		return occurrence{start: start, item: item}, true
	}

	item.Start = start.Format(time.RFC3339)
	if end := start.Add(eventDuration(comp, start, loc)); end.After(start) {
		item.End = end.Format(time.RFC3339)
	}
	return occurrence{start: start, item: item}, true
}

// shift moves base to another recurrence start.
func shift(base occurrence, id string, start time.Time, duration time.Duration) occurrence {
	item := base.item
	item.ID = id
	if item.AllDay {
		item.Date = start.Format(time.DateOnly)
	} else {
		item.Start = start.Format(time.RFC3339)
		if item.End != "" {
			item.End = start.Add(duration).Format(time.RFC3339)
		}
	}
	return occurrence{start: start, item: item}
}

func overlaps(occ occurrence, comp *ical.Component, w window.Window, loc *time.Location) bool {
	end := occ.start.Add(eventDuration(comp, occ.start, loc))
	if end.Equal(occ.start) {
		return !occ.start.Before(w.Start) && occ.start.Before(w.End)
	}
	return occ.start.Before(w.End) && end.After(w.Start)
}

// eventDuration derives the length from DTEND or DURATION. All-day events
// without either last one day.
func eventDuration(comp *ical.Component, start time.Time, loc *time.Location) time.Duration {
	ev := ical.Event{Component: comp}
	end, err := ev.DateTimeEnd(loc)
	if err == nil && end.After(start) {
		return end.Sub(start)
	}
	if prop := comp.Props.Get(ical.PropDateTimeStart); prop != nil && isDate(prop) {
		return 24 * time.Hour
	}
	return 0
}

// DueTasks returns the VTODOs from cals due at or after dueMin. Tasks
// without a due date are skipped.
func DueTasks(cals []*ical.Calendar, dueMin time.Time, loc *time.Location) []models.TaskItem {
	var out []models.TaskItem
	for _, cal := range cals {
		for _, comp := range cal.Children {
			if comp.Name != ical.CompToDo {
				continue
			}
			prop := comp.Props.Get(ical.PropDue)
			if prop == nil {
				continue
			}
			due, err := prop.DateTime(loc)
			if err != nil || due.Before(dueMin) {
				continue
			}
			out = append(out, models.TaskItem{
				ID:    textProp(comp, ical.PropUID),
				Title: textProp(comp, ical.PropSummary),
				Due:   due.Format(time.RFC3339),
			})
		}
	}
	return out
}

// occurrenceID is empty for events without a UID so that callers drop them
// like any other item without an id.
func occurrenceID(uid string, start time.Time) string {
	if uid == "" {
		return ""
	}
	return uid + "_" + start.UTC().Format(recurrenceIDLayout)
}

func isDate(prop *ical.Prop) bool {
	return prop.ValueType() == ical.ValueDate
}

func textProp(comp *ical.Component, name string) string {
	prop := comp.Props.Get(name)
	if prop == nil {
		return ""
	}
	v, err := prop.Text()
	if err != nil {
		return prop.Value
	}
	return v
}
