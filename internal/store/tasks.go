package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

const (
	TaskPending = "pending"
	TaskStarted = "started"
	TaskDone    = "done"
)

type Task struct {
	ID          int64
	UserID      string
	Name        string
	Description string
	Status      string
	DueAt       *time.Time
	CompletedAt *time.Time
}

const taskColumns = "task_id, user_id, name, description, status, due_date, completion_time"

func (s *Store) AddTask(ctx context.Context, userID, name string) (Task, error) {
	t := Task{UserID: userID, Name: name, Status: TaskPending}
	const q = "INSERT INTO tasks (user_id, name, status) VALUES (?, ?, ?)"
	if s.d.name == "postgres" {
		if err := s.queryRow(ctx, q+" RETURNING task_id", userID, name, t.Status).Scan(&t.ID); err != nil {
			return Task{}, fmt.Errorf("insert task: %w", err)
		}
		return t, nil
	}
	res, err := s.exec(ctx, q, userID, name, t.Status)
	if err != nil {
		return Task{}, fmt.Errorf("insert task: %w", err)
	}
	if t.ID, err = res.LastInsertId(); err != nil {
		return Task{}, fmt.Errorf("insert task id: %w", err)
	}
	return t, nil
}

func (s *Store) ListTasks(ctx context.Context, userID string) ([]Task, error) {
	rows, err := s.query(ctx, "SELECT "+taskColumns+" FROM tasks WHERE user_id = ? ORDER BY task_id", userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()
	var out []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) GetTask(ctx context.Context, userID string, id int64) (Task, error) {
	t, err := scanTask(s.queryRow(ctx, "SELECT "+taskColumns+" FROM tasks WHERE task_id = ? AND user_id = ?", id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, notFound("task", strconv.FormatInt(id, 10))
	}
	if err != nil {
		return Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// FindTaskByName returns the oldest of userID's tasks called name.
func (s *Store) FindTaskByName(ctx context.Context, userID, name string) (Task, error) {
	t, err := scanTask(s.queryRow(ctx, "SELECT "+taskColumns+" FROM tasks WHERE user_id = ? AND name = ? ORDER BY task_id LIMIT 1", userID, name))
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, notFound("task", name)
	}
	if err != nil {
		return Task{}, fmt.Errorf("find task: %w", err)
	}
	return t, nil
}

func (s *Store) SetTaskDescription(ctx context.Context, userID string, id int64, description string) error {
	res, err := s.exec(ctx, "UPDATE tasks SET description = ? WHERE task_id = ? AND user_id = ?", description, id, userID)
	if err != nil {
		return fmt.Errorf("update task description: %w", err)
	}
	return affectedOne(res, "task", strconv.FormatInt(id, 10))
}

// SetTaskStatus moves a task to status. Marking it done also records at as
// the completion time.
func (s *Store) SetTaskStatus(ctx context.Context, userID string, id int64, status string, at time.Time) error {
	var completed any
	if status == TaskDone {
		completed = millis(at)
	}
	res, err := s.exec(ctx, "UPDATE tasks SET status = ?, completion_time = ? WHERE task_id = ? AND user_id = ?", status, completed, id, userID)
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	return affectedOne(res, "task", strconv.FormatInt(id, 10))
}

func (s *Store) SetTaskDueDate(ctx context.Context, userID string, id int64, due time.Time) error {
	res, err := s.exec(ctx, "UPDATE tasks SET due_date = ? WHERE task_id = ? AND user_id = ?", millis(due), id, userID)
	if err != nil {
		return fmt.Errorf("update task due date: %w", err)
	}
	return affectedOne(res, "task", strconv.FormatInt(id, 10))
}

func (s *Store) DeleteTask(ctx context.Context, userID string, id int64) error {
	res, err := s.exec(ctx, "DELETE FROM tasks WHERE task_id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return affectedOne(res, "task", strconv.FormatInt(id, 10))
}

func scanTask(r scanner) (Task, error) {
	var (
		t         Task
		desc      sql.NullString
		status    sql.NullString
		due       sql.NullInt64
		completed sql.NullInt64
	)
	if err := r.Scan(&t.ID, &t.UserID, &t.Name, &desc, &status, &due, &completed); err != nil {
		return Task{}, err
	}
	t.Description = desc.String
	t.Status = status.String
	t.DueAt = timePtr(due)
	t.CompletedAt = timePtr(completed)
	return t, nil
}
