package google

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"calnotify/internal/window"

	"google.golang.org/api/option"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := NewClient(context.Background(), logger, ts.Client(), "", "", option.WithEndpoint(ts.URL+"/"))
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func TestClient_ListEvents(t *testing.T) {
	loc := time.FixedZone("PST", -8*60*60)
	w := window.Today(time.Date(2024, 1, 15, 12, 0, 0, 0, loc))

	var requests int
	c := newTestClient(t, http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		requests++
		if !strings.HasSuffix(r.URL.Path, "/calendars/primary/events") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("timeMin") != "2024-01-15T00:00:00-08:00" || q.Get("timeMax") != "2024-01-15T12:00:00-08:00" {
			t.Errorf("unexpected window %s..%s", q.Get("timeMin"), q.Get("timeMax"))
		}
		if q.Get("singleEvents") != "true" || q.Get("orderBy") != "startTime" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}

		if q.Get("pageToken") == "" {
			writeJSON(t, rw, map[string]any{
				"nextPageToken": "page2",
				"items": []map[string]any{
					{
						"id":      "ev1",
						"summary": "Meeting",
						"start":   map[string]string{"dateTime": "2024-01-15T09:30:00-08:00"},
						"end":     map[string]string{"dateTime": "2024-01-15T10:15:00-08:00"},
					},
				},
			})
			return
		}
		writeJSON(t, rw, map[string]any{
			"items": []map[string]any{
				{
					"id":    "ev2",
					"start": map[string]string{"date": "2024-01-15"},
					"end":   map[string]string{"date": "2024-01-16"},
				},
			},
		})
	}))

	items, err := c.ListEvents(context.Background(), w)
	if err != nil {
		t.Fatalf("ListEvents() error: %v", err)
	}
	if requests != 2 {
		t.Fatalf("requests = %d, want 2", requests)
	}
	if len(items) != 2 {
		t.Fatalf("items = %+v, want 2", items)
	}
	if items[0].ID != "ev1" || items[0].Title != "Meeting" || items[0].AllDay ||
		items[0].Start != "2024-01-15T09:30:00-08:00" || items[0].End != "2024-01-15T10:15:00-08:00" {
		t.Fatalf("items[0] = %+v", items[0])
	}
	if items[1].ID != "ev2" || !items[1].AllDay || items[1].Date != "2024-01-15" || items[1].Title != "" {
		t.Fatalf("items[1] = %+v", items[1])
	}
}

func TestClient_ListTasks(t *testing.T) {
	dueMin := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	c := newTestClient(t, http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/tasks") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("dueMin") != "2024-01-15T00:00:00Z" {
			t.Errorf("dueMin = %q", q.Get("dueMin"))
		}
		if q.Has("dueMax") {
			t.Errorf("unexpected dueMax %q", q.Get("dueMax"))
		}
		writeJSON(t, rw, map[string]any{
			"items": []map[string]any{
				{"id": "t1", "title": "Buy milk", "due": "2024-01-15T00:00:00.000Z"},
			},
		})
	}))

	items, err := c.ListTasks(context.Background(), dueMin)
	if err != nil {
		t.Fatalf("ListTasks() error: %v", err)
	}
	if len(items) != 1 || items[0].ID != "t1" || items[0].Title != "Buy milk" || items[0].Due != "2024-01-15T00:00:00.000Z" {
		t.Fatalf("items = %+v", items)
	}
}

func TestClient_FetchErrorsPropagate(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		http.Error(rw, `{"error":{"code":401,"message":"unauthorized"}}`, http.StatusUnauthorized)
	}))

	if _, err := c.ListEvents(context.Background(), window.Today(time.Now())); err == nil {
		t.Fatalf("ListEvents() expected error")
	}
	if _, err := c.ListTasks(context.Background(), time.Now()); err == nil {
		t.Fatalf("ListTasks() expected error")
	}
}
