package board

import (
	"context"
	"sync"

	"codeflow-api/domain"
)

// Mover commits a status transition for a dropped card.
type Mover interface {
	MoveTask(ctx context.Context, actor, id string, status domain.Status) error
}

// Controller tracks the single in-flight drag gesture. It has exactly two
// states: idle and dragging one task. Starting a new drag while one is
// active overwrites the captured id (last writer wins; there is only one
// pointer device).
type Controller struct {
	mu     sync.Mutex
	taskID string
}

// NewController creates an idle Controller.
func NewController() *Controller {
	return &Controller{}
}

// Begin captures the dragged task identity.
func (c *Controller) Begin(id string) {
	c.mu.Lock()
	c.taskID = id
	c.mu.Unlock()
}

// Cancel returns to idle without committing anything. Dropping nowhere and
// dismissing the gesture both land here.
func (c *Controller) Cancel() {
	c.mu.Lock()
	c.taskID = ""
	c.mu.Unlock()
}

// Dragging returns the captured task id, if a drag is in flight.
func (c *Controller) Dragging() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.taskID, c.taskID != ""
}

// Drop commits the move for the captured task and returns to idle. The id
// is cleared whether or not the commit changes anything; a drop with no
// drag in flight is a no-op, guarding against stray drop events.
func (c *Controller) Drop(ctx context.Context, mover Mover, actor string, target domain.Status) error {
	c.mu.Lock()
	id := c.taskID
	c.taskID = ""
	c.mu.Unlock()

	if id == "" {
		return nil
	}
	return mover.MoveTask(ctx, actor, id, target)
}
