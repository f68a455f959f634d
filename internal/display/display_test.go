package display

import (
	"testing"
	"time"

	"calnotify/internal/models"
)

func TestFormatter_Format(t *testing.T) {
	pst := time.FixedZone("PST", -8*60*60)
	f := NewFormatter(pst)

	tests := []struct {
		name         string
		item         models.CalendarItem
		want         string
		wantFallback bool
	}{
		{
			name: "all day",
			item: models.CalendarItem{AllDay: true, Date: "2024-01-15"},
			want: "All day",
		},
		{
			name: "all day ignores unparseable times",
			item: models.CalendarItem{AllDay: true, Date: "garbage", Start: "nope"},
			want: "All day",
		},
		{
			name: "timed range",
			item: models.CalendarItem{Start: "2024-01-15T09:30:00-08:00", End: "2024-01-15T10:15:00-08:00"},
			want: "09:30–10:15",
		},
		{
			name: "timed range converted to formatter location",
			item: models.CalendarItem{Start: "2024-01-15T17:30:00Z", End: "2024-01-15T18:15:00Z"},
			want: "09:30–10:15",
		},
		{
			name: "start only",
			item: models.CalendarItem{Start: "2024-01-15T09:30:00-08:00"},
			want: "2024-01-15 09:30",
		},
		{
			name:         "invalid start and end",
			item:         models.CalendarItem{Start: "invalid-datetime", End: "invalid-datetime"},
			want:         "invalid-datetime",
			wantFallback: true,
		},
		{
			name:         "valid start invalid end",
			item:         models.CalendarItem{Start: "2024-01-15T09:30:00-08:00", End: "later"},
			want:         "2024-01-15T09:30:00-08:00",
			wantFallback: true,
		},
		{
			name:         "no start falls back to date",
			item:         models.CalendarItem{Date: "2024-01-15"},
			want:         "2024-01-15",
			wantFallback: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.Format(tt.item)
			if got.Text != tt.want {
				t.Fatalf("Format() = %q, want %q", got.Text, tt.want)
			}
			if got.Fallback != tt.wantFallback {
				t.Fatalf("Format() fallback = %v, want %v", got.Fallback, tt.wantFallback)
			}
		})
	}
}

func TestFormatter_NilLocationUsesLocal(t *testing.T) {
	f := &Formatter{}
	start := time.Date(2024, 1, 15, 9, 30, 0, 0, time.Local)

	got := f.Format(models.CalendarItem{Start: start.Format(time.RFC3339)})
	if want := start.Format("2006-01-02 15:04"); got.String() != want {
		t.Fatalf("Format() = %q, want %q", got, want)
	}
}
