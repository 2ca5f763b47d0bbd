package controller

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskmaster/internal/models"
	"taskmaster/internal/query"
)

// fakeStore is an in-memory Store that records round trips and can be
// scripted to fail
type fakeStore struct {
	tasks  []models.Task
	nextID int64

	listCalls   int
	createCalls int
	updateCalls int
	deleteCalls int

	listErr   error
	createErr error
	updateErr error
	deleteErr error
}

func (f *fakeStore) ListTasks(_ context.Context, b query.Bounds) ([]models.Task, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Task
	for _, t := range f.tasks {
		if !b.IsUnbounded() {
			if t.DueDate == nil {
				continue
			}
			if t.DueDate.Before(*b.Lower) || !t.DueDate.Before(*b.Upper) {
				continue
			}
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeStore) CreateTask(_ context.Context, draft models.TaskDraft) (*models.Task, error) {
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	task := models.Task{
		ID:          f.nextID,
		Title:       draft.Title,
		Description: draft.Description,
		DueDate:     draft.DueDate,
		Completed:   draft.Completed,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	f.tasks = append(f.tasks, task)
	return &task, nil
}

func (f *fakeStore) UpdateTask(_ context.Context, id int64, patch models.TaskPatch) error {
	f.updateCalls++
	if f.updateErr != nil {
		return f.updateErr
	}
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			if patch.Title != nil {
				f.tasks[i].Title = *patch.Title
			}
			if patch.Completed != nil {
				f.tasks[i].Completed = *patch.Completed
			}
			return nil
		}
	}
	return models.ErrNotFound
}

func (f *fakeStore) DeleteTask(_ context.Context, id int64) error {
	f.deleteCalls++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return models.ErrNotFound
}

// apply runs a round trip closure and feeds the result back
func apply(c *Controller, op func() Msg) (Notice, bool) {
	return c.Apply(op())
}

func mustDate(t *testing.T, s string) *models.Date {
	t.Helper()
	d, err := models.ParseDate(s)
	if err != nil {
		t.Fatalf("parse %s: %v", s, err)
	}
	return &d
}

func TestAddThenLoadIncludesTaskOnce(t *testing.T) {
	store := &fakeStore{}
	c := New(store)
	ctx := context.Background()

	notice, ok := apply(c, c.Add(ctx, models.TaskDraft{Title: "Buy milk", DueDate: mustDate(t, "2024-03-15")}))
	if !ok || notice.Level != LevelSuccess {
		t.Fatalf("expected success notice, got %+v ok=%v", notice, ok)
	}

	c.SetClock(func() models.Date { return *mustDate(t, "2024-03-15") })
	if _, ok := apply(c, c.Load(ctx, query.FilterDay)); ok {
		t.Fatal("load success should not notice")
	}

	count := 0
	for _, task := range c.Tasks() {
		if task.Title == "Buy milk" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected task exactly once, got %d", count)
	}
}

func TestAddEmptyTitleRejectedLocally(t *testing.T) {
	store := &fakeStore{}
	c := New(store)

	notice, ok := apply(c, c.Add(context.Background(), models.TaskDraft{Title: "   "}))
	if !ok || notice.Level != LevelError {
		t.Fatalf("expected error notice, got %+v ok=%v", notice, ok)
	}
	if store.createCalls != 0 {
		t.Fatalf("expected no store round trip, got %d calls", store.createCalls)
	}
	if len(c.Tasks()) != 0 {
		t.Fatal("collection should be unchanged")
	}
}

func TestAddFailureLeavesCollectionUnchanged(t *testing.T) {
	store := &fakeStore{createErr: &models.StoreError{Op: "create task", Err: errors.New("io")}}
	c := New(store)

	notice, ok := apply(c, c.Add(context.Background(), models.TaskDraft{Title: "Doomed"}))
	if !ok || notice.Level != LevelError {
		t.Fatalf("expected error notice, got %+v ok=%v", notice, ok)
	}
	if len(c.Tasks()) != 0 {
		t.Fatal("collection should be unchanged after failed create")
	}
}

func TestToggleCompleteIsIdempotentUnderDoubleApplication(t *testing.T) {
	store := &fakeStore{}
	c := New(store)
	ctx := context.Background()

	apply(c, c.Add(ctx, models.TaskDraft{Title: "Flip me"}))
	id := c.Tasks()[0].ID

	apply(c, c.ToggleComplete(ctx, id))
	if !c.Tasks()[0].Completed {
		t.Fatal("expected completed after first toggle")
	}

	apply(c, c.ToggleComplete(ctx, id))
	if c.Tasks()[0].Completed {
		t.Fatal("expected pending again after second toggle")
	}
}

func TestViewPartitionsCollection(t *testing.T) {
	store := &fakeStore{}
	c := New(store)
	ctx := context.Background()

	apply(c, c.Add(ctx, models.TaskDraft{Title: "a"}))
	apply(c, c.Add(ctx, models.TaskDraft{Title: "b"}))
	apply(c, c.Add(ctx, models.TaskDraft{Title: "c"}))
	apply(c, c.ToggleComplete(ctx, c.Tasks()[1].ID))

	all := c.View(ViewAll)
	pending := c.View(ViewPending)
	completed := c.View(ViewCompleted)

	if len(pending)+len(completed) != len(all) {
		t.Fatalf("pending (%d) + completed (%d) != all (%d)",
			len(pending), len(completed), len(all))
	}
	for _, task := range pending {
		if task.Completed {
			t.Errorf("completed task %q in pending view", task.Title)
		}
	}
	for _, task := range completed {
		if !task.Completed {
			t.Errorf("pending task %q in completed view", task.Title)
		}
	}
}

func TestUpdateEmptyTitleRejectedLocally(t *testing.T) {
	store := &fakeStore{}
	c := New(store)
	ctx := context.Background()

	apply(c, c.Add(ctx, models.TaskDraft{Title: "Keep me"}))
	id := c.Tasks()[0].ID

	empty := ""
	notice, ok := apply(c, c.Update(ctx, id, models.TaskPatch{Title: &empty}))
	if !ok || notice.Level != LevelError {
		t.Fatalf("expected error notice, got %+v ok=%v", notice, ok)
	}
	if store.updateCalls != 0 {
		t.Fatalf("expected no store round trip, got %d calls", store.updateCalls)
	}
	if c.Tasks()[0].Title != "Keep me" {
		t.Fatalf("in-memory entry changed: %q", c.Tasks()[0].Title)
	}
}

func TestUpdateMergesFieldsInPlace(t *testing.T) {
	store := &fakeStore{}
	c := New(store)
	ctx := context.Background()

	desc := "original"
	apply(c, c.Add(ctx, models.TaskDraft{Title: "Merge", Description: &desc}))
	id := c.Tasks()[0].ID

	newTitle := "Merged"
	apply(c, c.Update(ctx, id, models.TaskPatch{Title: &newTitle}))

	task := c.Tasks()[0]
	if task.Title != "Merged" {
		t.Fatalf("title not merged: %q", task.Title)
	}
	if task.Description == nil || *task.Description != "original" {
		t.Fatalf("untouched field changed: %v", task.Description)
	}

	apply(c, c.Update(ctx, id, models.TaskPatch{ClearDescription: true}))
	if c.Tasks()[0].Description != nil {
		t.Fatal("description not cleared")
	}
}

func TestRemoveDeletesFromEveryView(t *testing.T) {
	store := &fakeStore{}
	c := New(store)
	ctx := context.Background()

	apply(c, c.Add(ctx, models.TaskDraft{Title: "Doomed"}))
	id := c.Tasks()[0].ID

	notice, ok := apply(c, c.Remove(ctx, id))
	if !ok || notice.Level != LevelSuccess {
		t.Fatalf("expected success notice, got %+v ok=%v", notice, ok)
	}

	for _, mode := range []ViewMode{ViewAll, ViewPending, ViewCompleted} {
		for _, task := range c.View(mode) {
			if task.ID == id {
				t.Fatalf("deleted task still visible in %s view", mode)
			}
		}
	}
	if len(c.Tasks()) != 0 {
		t.Fatal("deleted task still in raw collection")
	}

	// Second remove on the same id surfaces not-found
	notice, ok = apply(c, c.Remove(ctx, id))
	if !ok || notice.Level != LevelError {
		t.Fatalf("expected error notice on second remove, got %+v ok=%v", notice, ok)
	}
}

func TestRemoveFailureLeavesCollectionUnchanged(t *testing.T) {
	store := &fakeStore{}
	c := New(store)
	ctx := context.Background()

	apply(c, c.Add(ctx, models.TaskDraft{Title: "Survivor"}))
	id := c.Tasks()[0].ID

	store.deleteErr = &models.StoreError{Op: "delete task", Err: errors.New("io")}
	notice, ok := apply(c, c.Remove(ctx, id))
	if !ok || notice.Level != LevelError {
		t.Fatalf("expected error notice, got %+v ok=%v", notice, ok)
	}
	if len(c.Tasks()) != 1 {
		t.Fatal("collection should be unchanged after failed delete")
	}
}

func TestLoadFailureKeepsCollectionAndNotices(t *testing.T) {
	store := &fakeStore{}
	c := New(store)
	ctx := context.Background()

	apply(c, c.Add(ctx, models.TaskDraft{Title: "Loaded"}))

	store.listErr = &models.StoreError{Op: "list tasks", Err: errors.New("io")}
	notice, ok := apply(c, c.Load(ctx, query.FilterAll))
	if !ok || notice.Level != LevelError {
		t.Fatalf("expected error notice, got %+v ok=%v", notice, ok)
	}
	if len(c.Tasks()) != 1 {
		t.Fatal("collection should be unchanged after failed load")
	}
	if c.Loading() {
		t.Fatal("loading flag should clear after failure")
	}
}

func TestStaleLoadGenerationIsDiscarded(t *testing.T) {
	store := &fakeStore{}
	c := New(store)
	ctx := context.Background()

	apply(c, c.Add(ctx, models.TaskDraft{Title: "dated", DueDate: mustDate(t, "2024-03-15")}))
	apply(c, c.Add(ctx, models.TaskDraft{Title: "undated"}))
	c.SetClock(func() models.Date { return *mustDate(t, "2024-03-15") })

	// Two loads issued back to back; the older round trip resolves
	// after the newer one and must not stomp its result.
	staleOp := c.Load(ctx, query.FilterDay)
	freshOp := c.Load(ctx, query.FilterAll)

	staleMsg := staleOp()
	freshMsg := freshOp()

	c.Apply(freshMsg)
	if len(c.Tasks()) != 2 {
		t.Fatalf("fresh load should see both tasks, got %d", len(c.Tasks()))
	}

	c.Apply(staleMsg)
	if len(c.Tasks()) != 2 {
		t.Fatalf("stale load stomped the fresh result, got %d tasks", len(c.Tasks()))
	}
	if c.Filter() != query.FilterAll {
		t.Fatalf("filter should remain the newest selection, got %s", c.Filter())
	}
}

func TestEditModeSingleTask(t *testing.T) {
	store := &fakeStore{}
	c := New(store)
	ctx := context.Background()

	apply(c, c.Add(ctx, models.TaskDraft{Title: "first"}))
	apply(c, c.Add(ctx, models.TaskDraft{Title: "second"}))
	first, second := c.Tasks()[0].ID, c.Tasks()[1].ID

	if !c.StartEdit(first) {
		t.Fatal("expected edit to start")
	}
	if id, ok := c.Editing(); !ok || id != first {
		t.Fatalf("expected first in edit mode, got %d ok=%v", id, ok)
	}

	// Starting another edit replaces the previous one
	c.StartEdit(second)
	if id, _ := c.Editing(); id != second {
		t.Fatalf("expected second in edit mode, got %d", id)
	}

	// Submitting clears edit mode even when the round trip fails
	store.updateErr = &models.StoreError{Op: "update task", Err: errors.New("io")}
	title := "renamed"
	op := c.Update(ctx, second, models.TaskPatch{Title: &title})
	if _, ok := c.Editing(); ok {
		t.Fatal("edit mode should clear when the update is issued")
	}
	c.Apply(op())

	c.StartEdit(first)
	c.CancelEdit()
	if _, ok := c.Editing(); ok {
		t.Fatal("edit mode should clear on cancel")
	}

	if c.StartEdit(9999) {
		t.Fatal("editing an unknown id should not start")
	}
}

func TestToggleCompleteUnknownID(t *testing.T) {
	store := &fakeStore{}
	c := New(store)

	notice, ok := apply(c, c.ToggleComplete(context.Background(), 42))
	if !ok || notice.Level != LevelError {
		t.Fatalf("expected error notice, got %+v ok=%v", notice, ok)
	}
	if store.updateCalls != 0 {
		t.Fatal("expected no store round trip for unknown id")
	}
}

func TestScenarioCreateToggleViews(t *testing.T) {
	store := &fakeStore{}
	c := New(store)
	ctx := context.Background()

	apply(c, c.Add(ctx, models.TaskDraft{Title: "Buy milk"}))

	inView := func(mode ViewMode) bool {
		for _, task := range c.View(mode) {
			if task.Title == "Buy milk" {
				return true
			}
		}
		return false
	}

	if !inView(ViewAll) || !inView(ViewPending) || inView(ViewCompleted) {
		t.Fatal("new task should be in all and pending only")
	}

	apply(c, c.ToggleComplete(ctx, c.Tasks()[0].ID))

	if !inView(ViewAll) || inView(ViewPending) || !inView(ViewCompleted) {
		t.Fatal("completed task should be in all and completed only")
	}
}
