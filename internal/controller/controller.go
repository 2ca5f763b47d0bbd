// Package controller owns the in-memory task collection behind the
// presentation layer. Operations run in two phases so the UI stays
// responsive: the method validates input and marks state, then returns
// a closure that performs the store round trip; the resulting Msg is
// fed back through Apply, which reconciles the in-memory collection
// and yields the user-facing notice. Only Apply mutates the collection,
// so everything stays on the event loop.
package controller

import (
	"context"
	"errors"
	"fmt"

	"taskmaster/internal/models"
	"taskmaster/internal/query"
)

// Store is the thin client the controller round-trips through
type Store interface {
	ListTasks(ctx context.Context, b query.Bounds) ([]models.Task, error)
	CreateTask(ctx context.Context, draft models.TaskDraft) (*models.Task, error)
	UpdateTask(ctx context.Context, id int64, patch models.TaskPatch) error
	DeleteTask(ctx context.Context, id int64) error
}

// ViewMode filters already-loaded tasks by completion state
type ViewMode string

const (
	ViewAll       ViewMode = "all"
	ViewPending   ViewMode = "pending"
	ViewCompleted ViewMode = "completed"
)

// Msg is the result of a store round trip, applied via Apply
type Msg interface{}

// TasksLoaded carries the result of a load round trip
type TasksLoaded struct {
	Gen   uint64
	Tasks []models.Task
	Err   error
}

// TaskCreated carries the result of a create round trip
type TaskCreated struct {
	Task *models.Task
	Err  error
}

// TaskSaved carries the result of an update round trip
type TaskSaved struct {
	ID    int64
	Patch models.TaskPatch
	Err   error
}

// TaskDeleted carries the result of a delete round trip
type TaskDeleted struct {
	ID  int64
	Err error
}

// Level classifies a notice for presentation
type Level int

const (
	LevelSuccess Level = iota
	LevelError
)

// Notice is a single user-visible notification
type Notice struct {
	Level Level
	Text  string
}

// Controller holds the task collection last loaded for the selected
// time filter, plus the loading flag and the single edit-mode pointer
type Controller struct {
	store   Store
	now     func() models.Date
	tasks   []models.Task
	filter  query.TimeFilter
	loading bool
	loadGen uint64
	editing *int64
}

// New creates a controller over the given store
func New(store Store) *Controller {
	return &Controller{
		store:  store,
		now:    models.Today,
		filter: query.FilterAll,
	}
}

// SetClock overrides the source of "today" for the query bounds
func (c *Controller) SetClock(now func() models.Date) {
	c.now = now
}

// Load switches to filter and returns the round trip that fetches the
// matching tasks. A newer Load supersedes any in-flight one: its
// result arrives with a stale generation and Apply discards it.
func (c *Controller) Load(ctx context.Context, filter query.TimeFilter) func() Msg {
	c.filter = filter
	c.loading = true
	c.loadGen++
	gen := c.loadGen

	return func() Msg {
		bounds := query.WindowBounds(filter, c.now())
		tasks, err := c.store.ListTasks(ctx, bounds)
		return TasksLoaded{Gen: gen, Tasks: tasks, Err: err}
	}
}

// Add creates a task from the draft. An empty title is rejected here,
// without a store round trip.
func (c *Controller) Add(ctx context.Context, draft models.TaskDraft) func() Msg {
	title, err := models.ValidateTitle(draft.Title)
	if err != nil {
		return func() Msg { return TaskCreated{Err: err} }
	}
	draft.Title = title

	return func() Msg {
		task, err := c.store.CreateTask(ctx, draft)
		return TaskCreated{Task: task, Err: err}
	}
}

// Update applies a partial update to the task with the given id. An
// empty-title patch is rejected locally and the in-memory entry is
// untouched. Issuing the update clears edit mode whatever the round
// trip outcome turns out to be.
func (c *Controller) Update(ctx context.Context, id int64, patch models.TaskPatch) func() Msg {
	if c.editing != nil && *c.editing == id {
		c.editing = nil
	}

	if patch.Title != nil {
		title, err := models.ValidateTitle(*patch.Title)
		if err != nil {
			return func() Msg { return TaskSaved{ID: id, Patch: patch, Err: err} }
		}
		patch.Title = &title
	}

	return func() Msg {
		err := c.store.UpdateTask(ctx, id, patch)
		return TaskSaved{ID: id, Patch: patch, Err: err}
	}
}

// ToggleComplete flips the completion flag of the task with the given id
func (c *Controller) ToggleComplete(ctx context.Context, id int64) func() Msg {
	task, ok := c.find(id)
	if !ok {
		return func() Msg { return TaskSaved{ID: id, Err: models.ErrNotFound} }
	}
	completed := !task.Completed
	return c.Update(ctx, id, models.TaskPatch{Completed: &completed})
}

// Remove deletes the task with the given id
func (c *Controller) Remove(ctx context.Context, id int64) func() Msg {
	return func() Msg {
		err := c.store.DeleteTask(ctx, id)
		return TaskDeleted{ID: id, Err: err}
	}
}

// Apply reconciles a round trip result into the collection. It returns
// the notice to show, if any: mutations notice both success and
// failure, a load notices failure only.
func (c *Controller) Apply(msg Msg) (Notice, bool) {
	switch msg := msg.(type) {
	case TasksLoaded:
		if msg.Gen != c.loadGen {
			// Superseded by a newer load; keep waiting for it
			return Notice{}, false
		}
		c.loading = false
		if msg.Err != nil {
			return errNotice("load tasks", msg.Err), true
		}
		c.tasks = msg.Tasks
		return Notice{}, false

	case TaskCreated:
		if msg.Err != nil {
			return errNotice("create task", msg.Err), true
		}
		c.upsert(*msg.Task)
		return Notice{Level: LevelSuccess, Text: "Task created"}, true

	case TaskSaved:
		if msg.Err != nil {
			return errNotice("update task", msg.Err), true
		}
		if task, ok := c.find(msg.ID); ok {
			mergePatch(task, msg.Patch)
		}
		return Notice{Level: LevelSuccess, Text: "Task updated"}, true

	case TaskDeleted:
		if msg.Err != nil {
			return errNotice("delete task", msg.Err), true
		}
		c.remove(msg.ID)
		return Notice{Level: LevelSuccess, Text: "Task deleted"}, true
	}

	return Notice{}, false
}

// Tasks returns the in-memory collection
func (c *Controller) Tasks() []models.Task {
	return c.tasks
}

// View returns the tasks matching mode without any store interaction
func (c *Controller) View(mode ViewMode) []models.Task {
	if mode == ViewAll {
		return c.tasks
	}
	var out []models.Task
	for _, t := range c.tasks {
		if t.Completed == (mode == ViewCompleted) {
			out = append(out, t)
		}
	}
	return out
}

// Filter returns the currently selected time filter
func (c *Controller) Filter() query.TimeFilter {
	return c.filter
}

// Loading reports whether a load round trip is outstanding
func (c *Controller) Loading() bool {
	return c.loading
}

// StartEdit puts the task with the given id into edit mode. At most
// one task is in edit mode at a time; starting a new edit replaces the
// previous one.
func (c *Controller) StartEdit(id int64) bool {
	if _, ok := c.find(id); !ok {
		return false
	}
	c.editing = &id
	return true
}

// CancelEdit leaves edit mode
func (c *Controller) CancelEdit() {
	c.editing = nil
}

// Editing returns the id of the task in edit mode, if any
func (c *Controller) Editing() (int64, bool) {
	if c.editing == nil {
		return 0, false
	}
	return *c.editing, true
}

func (c *Controller) find(id int64) (*models.Task, bool) {
	for i := range c.tasks {
		if c.tasks[i].ID == id {
			return &c.tasks[i], true
		}
	}
	return nil, false
}

// upsert appends a task, replacing any entry with the same id so the
// collection never holds duplicates
func (c *Controller) upsert(task models.Task) {
	if existing, ok := c.find(task.ID); ok {
		*existing = task
		return
	}
	c.tasks = append(c.tasks, task)
}

func (c *Controller) remove(id int64) {
	for i := range c.tasks {
		if c.tasks[i].ID == id {
			c.tasks = append(c.tasks[:i], c.tasks[i+1:]...)
			return
		}
	}
}

func mergePatch(task *models.Task, patch models.TaskPatch) {
	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.ClearDescription {
		task.Description = nil
	} else if patch.Description != nil {
		desc := *patch.Description
		task.Description = &desc
	}
	if patch.ClearDueDate {
		task.DueDate = nil
	} else if patch.DueDate != nil {
		due := *patch.DueDate
		task.DueDate = &due
	}
	if patch.Completed != nil {
		task.Completed = *patch.Completed
	}
}

func errNotice(op string, err error) Notice {
	var vErr *models.ValidationError
	switch {
	case errors.As(err, &vErr):
		return Notice{Level: LevelError, Text: fmt.Sprintf("Invalid input: %s", vErr)}
	case errors.Is(err, models.ErrNotFound):
		return Notice{Level: LevelError, Text: "Task no longer exists"}
	default:
		return Notice{Level: LevelError, Text: fmt.Sprintf("Failed to %s: %v", op, err)}
	}
}
