// Package board projects the stored task collection into the views the UI
// renders: the four-column board, the backlog table, and the drag state.
// Everything here is read-only over already-loaded data.
package board

import (
	"strings"
	"time"

	"codeflow-api/domain"
)

// Card is a task prepared for display. Overdue is a display hint only; it
// never changes the task's status.
type Card struct {
	domain.Task
	Overdue bool `json:"overdue,omitempty"`
}

// Column is one rendered board lane. Count equals the filtered membership,
// not the unfiltered total.
type Column struct {
	Status domain.Status `json:"status"`
	Label  string        `json:"label"`
	Count  int           `json:"count"`
	Cards  []Card        `json:"cards"`
}

// Filter narrows the board view. Zero values match everything.
type Filter struct {
	Search   string
	Priority domain.Priority
}

// Snapshot projects tasks into the four fixed columns. A task appears in
// exactly one column, chosen by its status; tasks of other projects are
// invisible. A dangling active-project id simply yields empty columns.
func Snapshot(tasks []domain.Task, activeProject string, f Filter, now time.Time) []Column {
	query := strings.ToLower(strings.TrimSpace(f.Search))
	columns := make([]Column, 0, len(domain.Statuses))
	for _, status := range domain.Statuses {
		column := Column{Status: status, Label: status.Label(), Cards: []Card{}}
		for _, task := range tasks {
			if task.Project != activeProject || task.Status != status {
				continue
			}
			if !matches(task, query, f.Priority) {
				continue
			}
			column.Cards = append(column.Cards, Card{Task: task, Overdue: domain.Overdue(task.Due, now)})
		}
		column.Count = len(column.Cards)
		columns = append(columns, column)
	}
	return columns
}

func matches(task domain.Task, query string, priority domain.Priority) bool {
	if priority != "" && task.Priority != priority {
		return false
	}
	if query == "" {
		return true
	}
	if strings.Contains(strings.ToLower(task.Title), query) {
		return true
	}
	for _, tag := range task.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	return false
}

// Row is one line of the backlog table. Position is the 1-based index in
// storage order.
type Row struct {
	Position int `json:"position"`
	domain.Task
	StatusLabel string `json:"statusLabel"`
}

// Backlog lists the active project's tasks in storage order, unfiltered by
// search or priority.
func Backlog(tasks []domain.Task, activeProject string) []Row {
	rows := []Row{}
	for _, task := range tasks {
		if task.Project != activeProject {
			continue
		}
		rows = append(rows, Row{Position: len(rows) + 1, Task: task, StatusLabel: task.Status.Label()})
	}
	return rows
}
