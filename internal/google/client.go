// Package google fetches today's events and tasks from Google Calendar and Google Tasks.
package google

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"calnotify/internal/models"
	"calnotify/internal/window"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/tasks/v1"
)

const (
	DefaultCalendarID = "primary"
	DefaultTaskList   = "@default"
)

// Client provides read access to one calendar and one task list.
type Client struct {
	calendar   *calendar.Service
	tasks      *tasks.Service
	calendarID string
	taskList   string
	logger     *slog.Logger
}

// NewClient creates a new Google client on top of an authorized HTTP client.
func NewClient(ctx context.Context, logger *slog.Logger, httpClient *http.Client, calendarID, taskList string, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)

	calendarService, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	tasksService, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}

	if calendarID == "" {
		calendarID = DefaultCalendarID
	}
	if taskList == "" {
		taskList = DefaultTaskList
	}

	return &Client{
		calendar:   calendarService,
		tasks:      tasksService,
		calendarID: calendarID,
		taskList:   taskList,
		logger:     logger,
	}, nil
}

// ListEvents fetches the calendar's event occurrences overlapping w,
// with recurring events expanded and ordered by start time.
func (c *Client) ListEvents(ctx context.Context, w window.Window) ([]models.CalendarItem, error) {
	c.logger.Debug("Fetching events", "calendarID", c.calendarID, "timeMin", w.StartRFC3339(), "timeMax", w.EndRFC3339())

	var items []models.CalendarItem
	err := c.calendar.Events.List(c.calendarID).
		TimeMin(w.StartRFC3339()).
		TimeMax(w.EndRFC3339()).
		SingleEvents(true).
		OrderBy("startTime").
		Pages(ctx, func(page *calendar.Events) error {
			for _, e := range page.Items {
				items = append(items, toCalendarItem(e))
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve events: %w", err)
	}

	c.logger.Debug("Fetched events from Google Calendar", "count", len(items), "calendarID", c.calendarID)
	return items, nil
}

// ListTasks fetches the task list's tasks due at or after dueMin.
// There is no upper bound on the due date.
func (c *Client) ListTasks(ctx context.Context, dueMin time.Time) ([]models.TaskItem, error) {
	c.logger.Debug("Fetching tasks", "taskList", c.taskList, "dueMin", dueMin.Format(time.RFC3339))

	var items []models.TaskItem
	err := c.tasks.Tasks.List(c.taskList).
		DueMin(dueMin.Format(time.RFC3339)).
		Pages(ctx, func(page *tasks.Tasks) error {
			for _, t := range page.Items {
				items = append(items, models.TaskItem{ID: t.Id, Title: t.Title, Due: t.Due})
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve tasks: %w", err)
	}

	c.logger.Debug("Fetched tasks from Google Tasks", "count", len(items), "taskList", c.taskList)
	return items, nil
}

// toCalendarItem converts a Google Calendar event to the internal model.
// Time values are kept raw; parsing happens at display time.
func toCalendarItem(e *calendar.Event) models.CalendarItem {
	item := models.CalendarItem{ID: e.Id, Title: e.Summary}
	if e.Start != nil {
		if e.Start.Date != "" {
			item.AllDay = true
			item.Date = e.Start.Date
		} else {
			item.Start = e.Start.DateTime
		}
	}
	if e.End != nil {
		item.End = e.End.DateTime
	}
	return item
}
