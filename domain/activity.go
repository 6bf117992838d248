package domain

import (
	"fmt"
	"time"
)

// ActivityCap bounds the persisted activity log. Appends beyond the cap
// evict the oldest entries first.
const ActivityCap = 50

// ActionKind tags the type of a recorded activity entry.
type ActionKind string

const (
	ActionProjectCreated  ActionKind = "project-created"
	ActionTaskCreated     ActionKind = "task-created"
	ActionTaskUpdated     ActionKind = "task-updated"
	ActionTaskMoved       ActionKind = "task-moved"
	ActionTaskDeleted     ActionKind = "task-deleted"
	ActionSettingsUpdated ActionKind = "settings-updated"
)

// ActivityEntry is one line of the audit feed. From and To are only set for
// task-moved entries. Time is milliseconds since epoch.
type ActivityEntry struct {
	ID     string     `json:"id"`
	User   string     `json:"user"`
	Kind   ActionKind `json:"kind"`
	Target string     `json:"target,omitempty"`
	From   Status     `json:"from,omitempty"`
	To     Status     `json:"to,omitempty"`
	Time   int64      `json:"time"`
}

// Message renders the human readable action phrase. The moved variant folds
// its target and columns into the phrase; the other kinds pair with Target
// at display time.
func (e ActivityEntry) Message() string {
	switch e.Kind {
	case ActionProjectCreated:
		return "created project"
	case ActionTaskCreated:
		return "created task"
	case ActionTaskUpdated:
		return "updated task"
	case ActionTaskMoved:
		return fmt.Sprintf("moved %q from %s to %s", e.Target, e.From.Label(), e.To.Label())
	case ActionTaskDeleted:
		return "deleted task"
	case ActionSettingsUpdated:
		return "updated settings"
	}
	return string(e.Kind)
}

// DisplayTarget returns the target to show next to the message. Moved
// entries already carry the target inside the phrase.
func (e ActivityEntry) DisplayTarget() string {
	if e.Kind == ActionTaskMoved {
		return ""
	}
	return e.Target
}

// TimeAgo buckets the age of ts (milliseconds since epoch) relative to now:
// under a minute is "just now", then whole minutes, hours, and days.
func TimeAgo(ts int64, now time.Time) string {
	diff := now.UnixMilli() - ts
	switch {
	case diff < time.Minute.Milliseconds():
		return "just now"
	case diff < time.Hour.Milliseconds():
		return fmt.Sprintf("%dm ago", diff/time.Minute.Milliseconds())
	case diff < (24 * time.Hour).Milliseconds():
		return fmt.Sprintf("%dh ago", diff/time.Hour.Milliseconds())
	default:
		return fmt.Sprintf("%dd ago", diff/(24*time.Hour).Milliseconds())
	}
}
