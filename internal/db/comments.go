package db

import (
	"context"

	"github.com/roudra323/TeamFlow/internal/models"
)

const commentColumns = `id, task_id, author_id, content, created_at`

func scanComment(row interface{ Scan(...any) error }) (models.Comment, error) {
	var comment models.Comment
	err := row.Scan(&comment.ID, &comment.TaskID, &comment.AuthorID, &comment.Content, &comment.CreatedAt)
	return comment, mapErr(err)
}

func (s *Store) CreateComment(ctx context.Context, taskID, authorID int64, content string) (models.Comment, error) {
	return scanComment(s.Pool.QueryRow(ctx, `
		INSERT INTO comments (task_id, author_id, content)
		VALUES ($1, $2, $3)
		RETURNING `+commentColumns, taskID, authorID, content))
}

func (s *Store) ListComments(ctx context.Context, taskID int64) ([]models.Comment, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+commentColumns+`
		FROM comments
		WHERE task_id=$1
		ORDER BY created_at ASC`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.Comment{}
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, comment)
	}
	return items, rows.Err()
}

func (s *Store) GetComment(ctx context.Context, taskID, commentID int64) (models.Comment, error) {
	return scanComment(s.Pool.QueryRow(ctx, `
		SELECT `+commentColumns+` FROM comments WHERE task_id=$1 AND id=$2`, taskID, commentID))
}

func (s *Store) DeleteComment(ctx context.Context, taskID, commentID int64) error {
	return affected(s.Pool.Exec(ctx, `DELETE FROM comments WHERE task_id=$1 AND id=$2`, taskID, commentID))
}
