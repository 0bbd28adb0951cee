package bulk

import (
	"context"
	"sync"

	"github.com/fleetops/access-management/internal"
	"github.com/fleetops/access-management/internal/user"
)

// ItemExecutor applies one operation to one user and reports that user's
// real outcome. A non-nil error marks the item failed; the run continues.
type ItemExecutor func(ctx context.Context, op Operation, u *user.User) error

// ProgressFunc is called after every processed user with the cumulative
// counters.
type ProgressFunc func(p Progress)

// Coordinator runs one bulk operation at a time over its selection. Items
// are processed strictly sequentially in selection order so progress stays
// monotonic and ordered; a failed item never aborts the run.
type Coordinator struct {
	mu        sync.Mutex
	selection *Selection
	state     State
}

func NewCoordinator() *Coordinator {
	return &Coordinator{
		selection: NewSelection(),
		state:     StateIdle,
	}
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) Selection() *Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection
}

func (c *Coordinator) SelectUser(u *user.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection.Select(u)
}

func (c *Coordinator) DeselectUser(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection.Deselect(userID)
}

func (c *Coordinator) ToggleUser(u *user.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection.Toggle(u)
}

func (c *Coordinator) SelectAll(users []*user.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection.SelectAll(users)
}

func (c *Coordinator) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection.Clear()
}

// CanExecute reports whether the operation may start: never with an empty
// selection or while a run is in flight; activate needs at least one selected
// inactive user and deactivate at least one active user; every other type
// only needs a non-empty selection.
func (c *Coordinator) CanExecute(opType OperationType) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.selection.Len() == 0 || c.state == StateRunning {
		return false
	}

	switch opType {
	case OpActivate:
		for _, u := range c.selection.Users() {
			if u.Status == user.StatusInactive {
				return true
			}
		}
		return false
	case OpDeactivate:
		for _, u := range c.selection.Users() {
			if u.Status == user.StatusActive {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// Execute runs the operation over the selection, one user at a time. The
// executor decides each item's outcome; onProgress (optional) fires after
// every item. The coordinator ends in StateFailed only when every item
// failed, otherwise StateCompleted.
func (c *Coordinator) Execute(ctx context.Context, op Operation, exec ItemExecutor, onProgress ProgressFunc) (*Result, error) {
	c.mu.Lock()
	if c.selection.Len() == 0 {
		c.mu.Unlock()
		return nil, internal.ErrEmptySelection
	}
	if c.state == StateRunning {
		c.mu.Unlock()
		return nil, internal.ErrOperationRunning
	}
	targets := c.selection.Users()
	c.state = StateRunning
	c.mu.Unlock()

	progress := Progress{Total: len(targets)}
	result := &Result{}

	for _, u := range targets {
		if err := ctx.Err(); err != nil {
			failure := ItemError{UserID: u.ID, UserName: u.Name, Error: err.Error()}
			result.Errors = append(result.Errors, failure)
			progress.Failed++
		} else if err := exec(ctx, op, u); err != nil {
			failure := ItemError{UserID: u.ID, UserName: u.Name, Error: err.Error()}
			result.Errors = append(result.Errors, failure)
			progress.Failed++
		} else {
			result.AffectedUsers++
			progress.Completed++
		}

		if onProgress != nil {
			onProgress(progress)
		}
	}

	result.Success = progress.Failed == 0

	c.mu.Lock()
	if progress.Completed == 0 && progress.Failed > 0 {
		c.state = StateFailed
	} else {
		c.state = StateCompleted
	}
	c.mu.Unlock()

	return result, nil
}

// Reset returns the coordinator to idle so a new run can start. The selection
// is kept.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRunning {
		c.state = StateIdle
	}
}
