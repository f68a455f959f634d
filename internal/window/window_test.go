package window

import (
	"testing"
	"time"
)

func TestToday_StartIsMidnightAndNotAfterEnd(t *testing.T) {
	zones := []string{"UTC", "America/Los_Angeles", "Asia/Kolkata", "Pacific/Chatham"}
	instants := []time.Time{
		time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 15, 9, 30, 12, 500, time.UTC),
		time.Date(2024, 3, 10, 23, 59, 59, 999999999, time.UTC),
		time.Date(2024, 12, 31, 12, 0, 0, 0, time.UTC),
	}

	for _, name := range zones {
		loc, err := time.LoadLocation(name)
		if err != nil {
			t.Logf("timezone %s not available: %v", name, err)
			continue
		}
		for _, inst := range instants {
			now := inst.In(loc)
			w := Today(now)

			if w.Start.After(w.End) {
				t.Fatalf("%s: start %v after end %v", name, w.Start, w.End)
			}
			if h, m, s := w.Start.Clock(); h != 0 || m != 0 || s != 0 || w.Start.Nanosecond() != 0 {
				t.Fatalf("%s: start %v is not midnight", name, w.Start)
			}
			if DateKey(w.Start) != DateKey(now) {
				t.Fatalf("%s: start date %s, want %s", name, DateKey(w.Start), DateKey(now))
			}
			if !w.End.Equal(now) {
				t.Fatalf("%s: end %v, want %v", name, w.End, now)
			}
		}
	}
}

func TestToday_StartsAtFirstInstantWhenMidnightIsSkipped(t *testing.T) {
	tests := []struct {
		zone      string
		day       time.Time
		wantStart string
	}{
		{"America/Santiago", time.Date(2024, 9, 8, 12, 0, 0, 0, time.UTC), "2024-09-08T01:00:00-03:00"},
		{"America/Havana", time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC), "2024-03-10T01:00:00-04:00"},
		{"Asia/Beirut", time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC), "2024-03-31T01:00:00+03:00"},
	}

	for _, tt := range tests {
		t.Run(tt.zone, func(t *testing.T) {
			loc, err := time.LoadLocation(tt.zone)
			if err != nil {
				t.Skipf("timezone %s not available: %v", tt.zone, err)
			}
			now := tt.day.In(loc)
			w := Today(now)

			if got := w.StartRFC3339(); got != tt.wantStart {
				t.Fatalf("start = %s, want %s", got, tt.wantStart)
			}
			if DateKey(w.Start) != DateKey(now) {
				t.Fatalf("start date %s, want %s", DateKey(w.Start), DateKey(now))
			}
			if before := w.Start.Add(-time.Nanosecond); DateKey(before) == DateKey(now) {
				t.Fatalf("instant before start %v is still on %s", before, DateKey(now))
			}
			if w.Start.After(w.End) {
				t.Fatalf("start %v after end %v", w.Start, w.End)
			}
		})
	}
}

func TestWindow_RFC3339CarriesOffset(t *testing.T) {
	loc := time.FixedZone("PST", -8*60*60)
	w := Today(time.Date(2024, 1, 15, 9, 30, 0, 0, loc))

	if got, want := w.StartRFC3339(), "2024-01-15T00:00:00-08:00"; got != want {
		t.Fatalf("StartRFC3339() = %q, want %q", got, want)
	}
	if got, want := w.EndRFC3339(), "2024-01-15T09:30:00-08:00"; got != want {
		t.Fatalf("EndRFC3339() = %q, want %q", got, want)
	}
}
