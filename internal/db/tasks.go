package db

import (
	"context"
	"time"

	"github.com/roudra323/TeamFlow/internal/models"
)

type TaskInput struct {
	Title       string
	Description *string
	Status      string
	Priority    string
	DueDate     *time.Time
	AssigneeID  *int64
}

// TaskPatch leaves nil fields unchanged.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	DueDate     *time.Time
	AssigneeID  *int64
}

const taskColumns = `id, board_id, title, description, status, priority, due_date, assignee_id, created_at, updated_at`

func scanTask(row interface{ Scan(...any) error }) (models.Task, error) {
	var task models.Task
	err := row.Scan(&task.ID, &task.BoardID, &task.Title, &task.Description, &task.Status, &task.Priority,
		&task.DueDate, &task.AssigneeID, &task.CreatedAt, &task.UpdatedAt)
	return task, mapErr(err)
}

func (s *Store) CreateTask(ctx context.Context, boardID int64, in TaskInput) (models.Task, error) {
	return scanTask(s.Pool.QueryRow(ctx, `
		INSERT INTO tasks (board_id, title, description, status, priority, due_date, assignee_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+taskColumns,
		boardID, in.Title, in.Description, in.Status, in.Priority, in.DueDate, in.AssigneeID))
}

func (s *Store) ListTasks(ctx context.Context, boardID int64) ([]models.Task, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE board_id=$1
		ORDER BY created_at ASC`, boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, task)
	}
	return items, rows.Err()
}

func (s *Store) GetTask(ctx context.Context, boardID, taskID int64) (models.Task, error) {
	return scanTask(s.Pool.QueryRow(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE board_id=$1 AND id=$2`, boardID, taskID))
}

func (s *Store) UpdateTask(ctx context.Context, boardID, taskID int64, patch TaskPatch) (models.Task, error) {
	return scanTask(s.Pool.QueryRow(ctx, `
		UPDATE tasks
		SET title=COALESCE($3, title),
		    description=COALESCE($4, description),
		    status=COALESCE($5, status),
		    priority=COALESCE($6, priority),
		    due_date=COALESCE($7, due_date),
		    assignee_id=COALESCE($8, assignee_id),
		    updated_at=now()
		WHERE board_id=$1 AND id=$2
		RETURNING `+taskColumns,
		boardID, taskID, patch.Title, patch.Description, patch.Status, patch.Priority, patch.DueDate, patch.AssigneeID))
}

func (s *Store) DeleteTask(ctx context.Context, boardID, taskID int64) error {
	return affected(s.Pool.Exec(ctx, `DELETE FROM tasks WHERE board_id=$1 AND id=$2`, boardID, taskID))
}
