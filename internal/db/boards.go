package db

import (
	"context"

	"github.com/roudra323/TeamFlow/internal/models"
)

const boardColumns = `id, workspace_id, name, created_at, updated_at`

func scanBoard(row interface{ Scan(...any) error }) (models.Board, error) {
	var board models.Board
	err := row.Scan(&board.ID, &board.WorkspaceID, &board.Name, &board.CreatedAt, &board.UpdatedAt)
	return board, mapErr(err)
}

func (s *Store) CreateBoard(ctx context.Context, workspaceID int64, name string) (models.Board, error) {
	return scanBoard(s.Pool.QueryRow(ctx, `
		INSERT INTO boards (workspace_id, name)
		VALUES ($1, $2)
		RETURNING `+boardColumns, workspaceID, name))
}

func (s *Store) ListBoards(ctx context.Context, workspaceID int64) ([]models.Board, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+boardColumns+`
		FROM boards
		WHERE workspace_id=$1
		ORDER BY created_at ASC`, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.Board{}
	for rows.Next() {
		board, err := scanBoard(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, board)
	}
	return items, rows.Err()
}

// GetBoard only finds the board inside its workspace.
func (s *Store) GetBoard(ctx context.Context, workspaceID, boardID int64) (models.Board, error) {
	return scanBoard(s.Pool.QueryRow(ctx, `
		SELECT `+boardColumns+` FROM boards WHERE workspace_id=$1 AND id=$2`, workspaceID, boardID))
}

func (s *Store) UpdateBoard(ctx context.Context, workspaceID, boardID int64, name string) (models.Board, error) {
	return scanBoard(s.Pool.QueryRow(ctx, `
		UPDATE boards SET name=$3, updated_at=now()
		WHERE workspace_id=$1 AND id=$2
		RETURNING `+boardColumns, workspaceID, boardID, name))
}

func (s *Store) DeleteBoard(ctx context.Context, workspaceID, boardID int64) error {
	return affected(s.Pool.Exec(ctx, `DELETE FROM boards WHERE workspace_id=$1 AND id=$2`, workspaceID, boardID))
}
