package poller

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule polls once a minute.
const DefaultSchedule = "@every 60s"

// Clock supplies the current local time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in a fixed location.
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// Waiter blocks between poll cycles. Wait returns a non-nil error only
// when ctx is done.
type Waiter interface {
	Wait(ctx context.Context) error
}

// ScheduleWaiter sleeps until the next activation of a cron schedule.
type ScheduleWaiter struct {
	schedule cron.Schedule
	clock    Clock
}

// ParseSchedule parses a constant-delay descriptor such as "@every 60s".
// Calendar-style cron specs are rejected: cycles are a fixed interval apart.
func ParseSchedule(spec string) (cron.Schedule, error) {
	if !strings.HasPrefix(spec, "@every ") {
		return nil, fmt.Errorf("invalid poll schedule %q: want \"@every <duration>\"", spec)
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid poll schedule %q: %w", spec, err)
	}
	return schedule, nil
}

// NewScheduleWaiter creates a waiter for the given "@every" schedule.
func NewScheduleWaiter(spec string, clock Clock) (*ScheduleWaiter, error) {
	schedule, err := ParseSchedule(spec)
	if err != nil {
		return nil, err
	}
	return &ScheduleWaiter{schedule: schedule, clock: clock}, nil
}

// NewIntervalWaiter creates a waiter with a constant delay between cycles.
func NewIntervalWaiter(d time.Duration, clock Clock) *ScheduleWaiter {
	return &ScheduleWaiter{schedule: cron.Every(d), clock: clock}
}

func (w *ScheduleWaiter) Wait(ctx context.Context) error {
	now := w.clock.Now()
	timer := time.NewTimer(w.schedule.Next(now).Sub(now))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
