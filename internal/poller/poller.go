// Package poller runs the fetch, dedup and notify loop.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"calnotify/internal/display"
	"calnotify/internal/models"
	"calnotify/internal/window"

	"github.com/google/uuid"
)

const (
	FailureTitle   = "Failed to fetch google events and tasks!"
	FailureMessage = "Restart the application to try again"

	DefaultEventTitle = "(No title)"
	DefaultTaskTitle  = "Untitled Task"
)

// Fetcher lists today's items from a calendar service.
type Fetcher interface {
	ListEvents(ctx context.Context, w window.Window) ([]models.CalendarItem, error)
	ListTasks(ctx context.Context, dueMin time.Time) ([]models.TaskItem, error)
}

// Notifier shows a notification. It has no failure mode visible to the caller.
type Notifier interface {
	Notify(ctx context.Context, title, message string)
}

// Poller orchestrates the polling loop.
type Poller struct {
	logger    *slog.Logger
	fetcher   Fetcher
	notifier  Notifier
	formatter *display.Formatter
	clock     Clock
	waiter    Waiter
}

// NewPoller creates a new Poller.
func NewPoller(logger *slog.Logger, fetcher Fetcher, notifier Notifier, formatter *display.Formatter, clock Clock, waiter Waiter) *Poller {
	return &Poller{
		logger:    logger,
		fetcher:   fetcher,
		notifier:  notifier,
		formatter: formatter,
		clock:     clock,
		waiter:    waiter,
	}
}

// Run polls until ctx is canceled, starting from an empty state for today.
func (p *Poller) Run(ctx context.Context) error {
	state := NewState(p.clock.Now())
	p.logger.Info("Starting poller.", "date", state.Date)

	for {
		state = p.Cycle(ctx, state)
		if err := p.waiter.Wait(ctx); err != nil {
			p.logger.Info("Poller stopped.", "reason", err)
			return err
		}
	}
}

// RunOnce performs a single cycle from an empty state.
func (p *Poller) RunOnce(ctx context.Context) State {
	return p.Cycle(ctx, NewState(p.clock.Now()))
}

// fetchResult holds one cycle's items. Items are only used when both
// fetches succeeded.
type fetchResult struct {
	events []models.CalendarItem
	tasks  []models.TaskItem
}

// Cycle performs one fetch and notify pass and returns the state for the
// next cycle. The passed state is never modified. If either fetch fails a
// single failure notification is shown and state is returned as is.
func (p *Poller) Cycle(ctx context.Context, state State) State {
	logger := p.logger.With("cycle", uuid.NewString())
	logger.Debug("Starting poll cycle.")

	res, err := p.fetch(ctx, window.Today(p.clock.Now()))
	if err != nil {
		logger.Error("Poll cycle failed", "error", err)
		p.notifier.Notify(ctx, FailureTitle, FailureMessage)
		return state
	}

	next := state.clone()
	notified := p.notifyEvents(ctx, logger, res.events, next.SeenEvents)
	notified += p.notifyTasks(ctx, logger, res.tasks, next.SeenTasks)

	next, rolled := next.rollover(p.clock.Now())
	if rolled {
		logger.Info("Local date changed, clearing notified items.", "previous", state.Date, "date", next.Date)
	}

	logger.Info("Poll cycle finished.", "events", len(res.events), "tasks", len(res.tasks), "notified", notified)
	return next
}

func (p *Poller) fetch(ctx context.Context, w window.Window) (fetchResult, error) {
	events, err := p.fetcher.ListEvents(ctx, w)
	if err != nil {
		return fetchResult{}, fmt.Errorf("failed to fetch events: %w", err)
	}
	tasks, err := p.fetcher.ListTasks(ctx, w.Start)
	if err != nil {
		return fetchResult{}, fmt.Errorf("failed to fetch tasks: %w", err)
	}
	return fetchResult{events: events, tasks: tasks}, nil
}

func (p *Poller) notifyEvents(ctx context.Context, logger *slog.Logger, events []models.CalendarItem, seen SeenSet) int {
	count := 0
	for _, event := range events {
		if event.ID == "" {
			continue
		}
		if seen.Has(event.ID) {
			logger.Debug("Event already notified, skipping.", "id", event.ID)
			continue
		}

		title := event.Title
		if title == "" {
			title = DefaultEventTitle
		}
		logger.Info("New event found, notifying.", "title", title, "id", event.ID)
		p.notifier.Notify(ctx, title, p.formatter.Format(event).Text)
		seen.Add(event.ID)
		count++
	}
	return count
}

func (p *Poller) notifyTasks(ctx context.Context, logger *slog.Logger, tasks []models.TaskItem, seen SeenSet) int {
	count := 0
	for _, task := range tasks {
		if task.ID == "" {
			continue
		}
		if seen.Has(task.ID) {
			logger.Debug("Task already notified, skipping.", "id", task.ID)
			continue
		}

		title := task.Title
		if title == "" {
			title = DefaultTaskTitle
		}
		logger.Info("New task found, notifying.", "title", title, "id", task.ID)
		p.notifier.Notify(ctx, title, fmt.Sprintf("Task: %s Due today", title))
		seen.Add(task.ID)
		count++
	}
	return count
}
