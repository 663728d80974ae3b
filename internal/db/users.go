package db

import (
	"context"

	"github.com/roudra323/TeamFlow/internal/models"
)

const userColumns = `id, name, email, password_hash, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	return user, mapErr(err)
}

func (s *Store) CreateUser(ctx context.Context, name, email, passwordHash string) (models.User, error) {
	return scanUser(s.Pool.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING `+userColumns, name, email, passwordHash))
}

func (s *Store) UserByEmail(ctx context.Context, email string) (models.User, error) {
	return scanUser(s.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email))
}

func (s *Store) UserByID(ctx context.Context, id int64) (models.User, error) {
	return scanUser(s.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}
