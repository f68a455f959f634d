// Package caldav fetches today's events and tasks from a CalDAV collection.
package caldav

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"calnotify/internal/models"
	"calnotify/internal/window"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
)

// DefaultEndpoint is the iCloud CalDAV endpoint.
const DefaultEndpoint = "https://caldav.icloud.com/"

// customTransport handles adding Basic Auth and custom headers to requests.
type customTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

// RoundTrip adds required headers and authentication to each request.
func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if t.Username != "" {
		req.SetBasicAuth(t.Username, t.Password)
	}
	req.Header.Set("User-Agent", "calnotify/1.0")
	return t.Transport.RoundTrip(req)
}

// Client reads one calendar collection and one task collection.
type Client struct {
	caldavClient *caldav.Client
	logger       *slog.Logger
	calendarPath string
	taskPath     string
	location     *time.Location
}

// Options configures NewClient.
type Options struct {
	Endpoint     string
	Username     string
	Password     string
	CalendarName string // Calendar holding events; empty selects the first one
	TaskListName string // Collection holding VTODOs; empty means the event calendar
	Location     *time.Location
}

// NewClient creates and initializes a new CalDAV client, resolving the
// configured collections by display name.
func NewClient(ctx context.Context, logger *slog.Logger, opts Options) (*Client, error) {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	httpClient := &http.Client{Transport: &customTransport{
		Username:  opts.Username,
		Password:  opts.Password,
		Transport: http.DefaultTransport,
	}}

	caldavClient, err := caldav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}

	c := &Client{
		caldavClient: caldavClient,
		logger:       logger,
		location:     loc,
	}

	logger.Info("Finding CalDAV calendar", "calendarName", opts.CalendarName)
	calendars, err := c.listCalendars(ctx)
	if err != nil {
		return nil, err
	}
	c.calendarPath, err = findCalendar(calendars, opts.CalendarName)
	if err != nil {
		return nil, err
	}
	c.taskPath = c.calendarPath
	if opts.TaskListName != "" {
		c.taskPath, err = findCalendar(calendars, opts.TaskListName)
		if err != nil {
			return nil, err
		}
	}
	logger.Info("Successfully found CalDAV collections", "calendar", c.calendarPath, "tasks", c.taskPath)

	return c, nil
}

// ListEvents returns the event occurrences overlapping w, recurring
// events expanded, ordered by start time.
func (c *Client) ListEvents(ctx context.Context, w window.Window) ([]models.CalendarItem, error) {
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     ical.CompCalendar,
			AllProps: true,
			AllComps: true,
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{{
				Name:  ical.CompEvent,
				Start: w.Start.UTC(),
				End:   w.End.UTC(),
			}},
		},
	}

	objects, err := c.caldavClient.QueryCalendar(ctx, c.calendarPath, query)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve events: %w", err)
	}

	items := ExpandEvents(calendarsOf(objects), w, c.location)
	c.logger.Debug("Fetched events from CalDAV", "objects", len(objects), "count", len(items))
	return items, nil
}

// ListTasks returns the VTODOs due at or after dueMin.
func (c *Client) ListTasks(ctx context.Context, dueMin time.Time) ([]models.TaskItem, error) {
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     ical.CompCalendar,
			AllProps: true,
			AllComps: true,
		},
		CompFilter: caldav.CompFilter{
			Name:  ical.CompCalendar,
			Comps: []caldav.CompFilter{{Name: ical.CompToDo}},
		},
	}

	objects, err := c.caldavClient.QueryCalendar(ctx, c.taskPath, query)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve tasks: %w", err)
	}

	items := DueTasks(calendarsOf(objects), dueMin, c.location)
	c.logger.Debug("Fetched tasks from CalDAV", "objects", len(objects), "count", len(items))
	return items, nil
}

func (c *Client) listCalendars(ctx context.Context) ([]caldav.Calendar, error) {
	principalPath, err := c.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := c.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := c.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to find calendars: %w", err)
	}
	return calendars, nil
}

// findCalendar returns the path of the calendar with the given name, or
// of the first calendar when name is empty.
func findCalendar(calendars []caldav.Calendar, name string) (string, error) {
	for _, cal := range calendars {
		if name == "" || strings.EqualFold(cal.Name, name) {
			return cal.Path, nil
		}
	}
	if name == "" {
		return "", fmt.Errorf("no calendars found")
	}
	return "", fmt.Errorf("no calendar found with name '%s'", name)
}

func calendarsOf(objects []caldav.CalendarObject) []*ical.Calendar {
	cals := make([]*ical.Calendar, 0, len(objects))
	for _, obj := range objects {
		if obj.Data != nil {
			cals = append(cals, obj.Data)
		}
	}
	return cals
}
