package poller

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestScheduleWaiter_ReturnsOnCancel(t *testing.T) {
	w, err := NewScheduleWaiter(DefaultSchedule, SystemClock{})
	if err != nil {
		t.Fatalf("NewScheduleWaiter() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := w.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Wait() error = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("Wait() did not return promptly on cancel")
	}
}

func TestIntervalWaiter_Elapses(t *testing.T) {
	w := NewIntervalWaiter(time.Second, SystemClock{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := w.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}

func TestParseSchedule(t *testing.T) {
	tests := []struct {
		spec    string
		wantErr bool
	}{
		{spec: "@every 60s"},
		{spec: "@every 5m"},
		{spec: "*/2 * * * *", wantErr: true},
		{spec: "0 9 * * *", wantErr: true},
		{spec: "@daily", wantErr: true},
		{spec: "@every soon", wantErr: true},
		{spec: "every minute", wantErr: true},
		{spec: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			_, err := ParseSchedule(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSchedule(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
			}
		})
	}
}

func TestSchedule_EveryIsConstantDelay(t *testing.T) {
	s, err := ParseSchedule(DefaultSchedule)
	if err != nil {
		t.Fatalf("ParseSchedule() error: %v", err)
	}
	now := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	if got := s.Next(now).Sub(now); got != time.Minute {
		t.Fatalf("delay = %v, want 1m", got)
	}
}
