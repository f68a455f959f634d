package models

// CalendarItem represents a single calendar occurrence fetched for today.
// It is an internal representation, independent of any specific calendar provider.
type CalendarItem struct {
	ID     string // Unique identifier within the source calendar
	Title  string // Summary of the event, may be empty
	AllDay bool   // True when the event has a date but no time of day
	Date   string // Raw all-day date (YYYY-MM-DD), set only for all-day events
	Start  string // Raw RFC 3339 start instant as delivered by the source
	End    string // Raw RFC 3339 end instant, may be empty
}

// TaskItem represents a task with a due date.
type TaskItem struct {
	ID    string // Unique identifier within the task list
	Title string // Title of the task, may be empty
	Due   string // Raw RFC 3339 due date
}
