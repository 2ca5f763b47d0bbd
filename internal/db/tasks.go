package db

import (
	"context"
	"database/sql"
	"strings"

	"taskmaster/internal/models"
	"taskmaster/internal/query"
)

// Each operation is a single round trip; failures are returned to the
// caller unretried. Tasks with no due date sort after dated tasks.

// CreateTask inserts a new task and returns it as the store accepted
// it, with the assigned id and timestamps
func (db *DB) CreateTask(ctx context.Context, draft models.TaskDraft) (*models.Task, error) {
	title, err := models.ValidateTitle(draft.Title)
	if err != nil {
		return nil, err
	}

	var due any
	if draft.DueDate != nil {
		due = draft.DueDate.String()
	}

	result, err := db.ExecContext(ctx, `
		INSERT INTO tasks (title, description, due_date, completed) VALUES (?, ?, ?, ?)
	`, title, draft.Description, due, draft.Completed)
	if err != nil {
		return nil, &models.StoreError{Op: "create task", Err: err}
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, &models.StoreError{Op: "create task", Err: err}
	}

	return db.GetTask(ctx, id)
}

// GetTask retrieves a task by ID
func (db *DB) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, title, description, due_date, completed, created_at, updated_at
		FROM tasks WHERE id = ?
	`, id)

	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, &models.StoreError{Op: "get task", Err: err}
	}
	return t, nil
}

// ListTasks returns tasks whose due date falls inside bounds, ordered
// ascending by due date with undated tasks last. Unbounded bounds
// return every task. An empty result is not an error.
func (db *DB) ListTasks(ctx context.Context, b query.Bounds) ([]models.Task, error) {
	sqlQuery := `
		SELECT id, title, description, due_date, completed, created_at, updated_at
		FROM tasks
	`
	var args []any
	if !b.IsUnbounded() {
		sqlQuery += " WHERE due_date >= ? AND due_date < ?"
		args = append(args, b.Lower.String(), b.Upper.String())
	}
	sqlQuery += " ORDER BY due_date IS NULL, due_date ASC"

	rows, err := db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, &models.StoreError{Op: "list tasks", Err: err}
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, &models.StoreError{Op: "list tasks", Err: err}
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, &models.StoreError{Op: "list tasks", Err: err}
	}

	return tasks, nil
}

// UpdateTask applies a partial update to a task. Only the fields set
// in the patch are written; updated_at always advances.
func (db *DB) UpdateTask(ctx context.Context, id int64, patch models.TaskPatch) error {
	if patch.IsZero() {
		return &models.ValidationError{Field: "patch", Reason: "must set at least one field"}
	}

	var sets []string
	var args []any

	if patch.Title != nil {
		title, err := models.ValidateTitle(*patch.Title)
		if err != nil {
			return err
		}
		sets = append(sets, "title = ?")
		args = append(args, title)
	}
	if patch.ClearDescription {
		sets = append(sets, "description = NULL")
	} else if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.ClearDueDate {
		sets = append(sets, "due_date = NULL")
	} else if patch.DueDate != nil {
		sets = append(sets, "due_date = ?")
		args = append(args, patch.DueDate.String())
	}
	if patch.Completed != nil {
		sets = append(sets, "completed = ?")
		args = append(args, *patch.Completed)
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	result, err := db.ExecContext(ctx,
		"UPDATE tasks SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return &models.StoreError{Op: "update task", Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return &models.StoreError{Op: "update task", Err: err}
	}
	if affected == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeleteTask deletes a task
func (db *DB) DeleteTask(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return &models.StoreError{Op: "delete task", Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return &models.StoreError{Op: "delete task", Err: err}
	}
	if affected == 0 {
		return models.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*models.Task, error) {
	t := &models.Task{}
	var description sql.NullString
	var due sql.NullString

	err := row.Scan(&t.ID, &t.Title, &description, &due, &t.Completed, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		t.Description = &description.String
	}
	if due.Valid {
		d, err := models.ParseDate(due.String)
		if err != nil {
			return nil, err
		}
		t.DueDate = &d
	}
	return t, nil
}
