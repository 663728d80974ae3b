package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/roudra323/TeamFlow/internal/models"
)

const workspaceSelect = `
	SELECT w.id, w.name, w.description, w.owner_id,
	       (SELECT count(*) FROM workspace_members m WHERE m.workspace_id = w.id),
	       w.created_at, w.updated_at
	FROM workspaces w`

func scanWorkspace(row interface{ Scan(...any) error }) (models.Workspace, error) {
	var ws models.Workspace
	err := row.Scan(&ws.ID, &ws.Name, &ws.Description, &ws.OwnerID, &ws.MemberCount, &ws.CreatedAt, &ws.UpdatedAt)
	return ws, mapErr(err)
}

// CreateWorkspace inserts the workspace and makes the owner its first member.
func (s *Store) CreateWorkspace(ctx context.Context, ownerID int64, name string, description *string) (models.Workspace, error) {
	var id int64
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `
			INSERT INTO workspaces (name, description, owner_id)
			VALUES ($1, $2, $3)
			RETURNING id`, name, description, ownerID).Scan(&id); err != nil {
			return mapErr(err)
		}
		_, err := tx.Exec(ctx, `INSERT INTO workspace_members (workspace_id, user_id) VALUES ($1, $2)`, id, ownerID)
		return mapErr(err)
	})
	if err != nil {
		return models.Workspace{}, err
	}
	return s.GetWorkspace(ctx, id)
}

// ListWorkspaces returns workspaces the user owns or is a member of.
func (s *Store) ListWorkspaces(ctx context.Context, userID int64) ([]models.Workspace, error) {
	rows, err := s.Pool.Query(ctx, workspaceSelect+`
		WHERE w.owner_id = $1
		   OR EXISTS (SELECT 1 FROM workspace_members m WHERE m.workspace_id = w.id AND m.user_id = $1)
		ORDER BY w.created_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.Workspace{}
	for rows.Next() {
		ws, err := scanWorkspace(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, ws)
	}
	return items, rows.Err()
}

func (s *Store) GetWorkspace(ctx context.Context, id int64) (models.Workspace, error) {
	return scanWorkspace(s.Pool.QueryRow(ctx, workspaceSelect+` WHERE w.id = $1`, id))
}

func (s *Store) UpdateWorkspace(ctx context.Context, id int64, name, description *string) (models.Workspace, error) {
	err := affected(s.Pool.Exec(ctx, `
		UPDATE workspaces
		SET name=COALESCE($2, name),
		    description=COALESCE($3, description),
		    updated_at=now()
		WHERE id=$1`, id, name, description))
	if err != nil {
		return models.Workspace{}, err
	}
	return s.GetWorkspace(ctx, id)
}

func (s *Store) DeleteWorkspace(ctx context.Context, id int64) error {
	return affected(s.Pool.Exec(ctx, `DELETE FROM workspaces WHERE id=$1`, id))
}

// AddMember is idempotent for existing members.
func (s *Store) AddMember(ctx context.Context, workspaceID, userID int64) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO workspace_members (workspace_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, workspaceID, userID)
	return mapErr(err)
}

// IsMember reports whether the user owns or belongs to the workspace.
func (s *Store) IsMember(ctx context.Context, workspaceID, userID int64) (bool, error) {
	var ok bool
	err := s.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM workspaces WHERE id=$1 AND owner_id=$2
			UNION ALL
			SELECT 1 FROM workspace_members WHERE workspace_id=$1 AND user_id=$2
		)`, workspaceID, userID).Scan(&ok)
	return ok, err
}
