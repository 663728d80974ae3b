package db

import (
	"context"

	"github.com/roudra323/TeamFlow/internal/models"
)

const attachmentColumns = `id, task_id, file_name, object_key, url, size, uploaded_by, created_at`

func scanAttachment(row interface{ Scan(...any) error }) (models.Attachment, error) {
	var a models.Attachment
	err := row.Scan(&a.ID, &a.TaskID, &a.FileName, &a.ObjectKey, &a.URL, &a.Size, &a.UploadedBy, &a.CreatedAt)
	return a, mapErr(err)
}

func (s *Store) CreateAttachment(ctx context.Context, in models.Attachment) (models.Attachment, error) {
	return scanAttachment(s.Pool.QueryRow(ctx, `
		INSERT INTO attachments (task_id, file_name, object_key, url, size, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+attachmentColumns,
		in.TaskID, in.FileName, in.ObjectKey, in.URL, in.Size, in.UploadedBy))
}

func (s *Store) ListAttachments(ctx context.Context, taskID int64) ([]models.Attachment, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+attachmentColumns+`
		FROM attachments
		WHERE task_id=$1
		ORDER BY created_at ASC`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.Attachment{}
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (s *Store) GetAttachment(ctx context.Context, taskID, attachmentID int64) (models.Attachment, error) {
	return scanAttachment(s.Pool.QueryRow(ctx, `
		SELECT `+attachmentColumns+` FROM attachments WHERE task_id=$1 AND id=$2`, taskID, attachmentID))
}

func (s *Store) DeleteAttachment(ctx context.Context, taskID, attachmentID int64) error {
	return affected(s.Pool.Exec(ctx, `DELETE FROM attachments WHERE task_id=$1 AND id=$2`, taskID, attachmentID))
}
