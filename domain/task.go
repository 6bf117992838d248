package domain

import (
	"strings"
	"time"
)

// Status identifies the board column a task lives in.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "inprogress"
	StatusReview     Status = "review"
	StatusDone       Status = "done"
)

// Statuses lists the board columns in display order.
var Statuses = [...]Status{StatusTodo, StatusInProgress, StatusReview, StatusDone}

var statusLabels = map[Status]string{
	StatusTodo:       "To Do",
	StatusInProgress: "In Progress",
	StatusReview:     "In Review",
	StatusDone:       "Done",
}

// Valid reports whether s is one of the four board columns.
func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label returns the display name of the column, or the raw value for
// anything unknown.
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// Priority ranks the urgency of a task.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Task is a single board item. Due is a calendar date in 2006-01-02 form;
// empty means no due date.
type Task struct {
	ID       string   `json:"id"`
	Project  string   `json:"project"`
	Title    string   `json:"title"`
	Desc     string   `json:"desc,omitempty"`
	Priority Priority `json:"priority"`
	Status   Status   `json:"status"`
	Tags     []string `json:"tags,omitempty"`
	Assignee string   `json:"assignee,omitempty"`
	Due      string   `json:"due,omitempty"`
}

// ParseTags splits a comma separated tag string into trimmed, non-empty tags
// in input order.
func ParseTags(s string) []string {
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

const dueLayout = "2006-01-02"

// Overdue reports whether due names a calendar day strictly before now's day.
// A task due today is not overdue regardless of the time of day, and an
// unparseable or empty due date never is.
func Overdue(due string, now time.Time) bool {
	if due == "" {
		return false
	}
	d, err := time.ParseInLocation(dueLayout, due, now.Location())
	if err != nil {
		return false
	}
	year, month, day := now.Date()
	today := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
	return d.Before(today)
}
