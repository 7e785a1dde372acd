package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/egannguyen/pharma-storefront/internal/entity"
)

type userRepository struct {
	db *sql.DB
}

const userColumns = "id, name, email, password_hash, role, created_at, updated_at"

func scanUser(row rowScanner) (entity.User, error) {
	var (
		u    entity.User
		role string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return entity.User{}, err
	}
	parsed, err := entity.ParseRole(role)
	if err != nil {
		return entity.User{}, fmt.Errorf("user %s: %w", u.ID, err)
	}
	u.Role = parsed
	return u, nil
}

func (r *userRepository) CreateUser(ctx context.Context, u entity.User) (entity.User, error) {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7)",
		u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role), u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return entity.User{}, fmt.Errorf("failed to insert user: %w", mapError(err))
	}
	return u, nil
}

func (r *userRepository) FindUserByID(ctx context.Context, id string) (entity.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id))
	if err != nil {
		return entity.User{}, fmt.Errorf("failed to find user %s: %w", id, mapError(err))
	}
	return u, nil
}

func (r *userRepository) FindUserByEmail(ctx context.Context, email string) (entity.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", email))
	if err != nil {
		return entity.User{}, fmt.Errorf("failed to find user by email: %w", mapError(err))
	}
	return u, nil
}

func (r *userRepository) FindUsers(ctx context.Context) ([]entity.User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []entity.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}
	return users, nil
}

func (r *userRepository) UpdateUser(ctx context.Context, u entity.User) (entity.User, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET name = $2, email = $3, password_hash = $4, role = $5, updated_at = $6 WHERE id = $1",
		u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role), u.UpdatedAt,
	)
	if err != nil {
		return entity.User{}, fmt.Errorf("failed to update user %s: %w", u.ID, mapError(err))
	}
	if err := requireAffected(res); err != nil {
		return entity.User{}, err
	}
	return u, nil
}

func (r *userRepository) DeleteUser(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete user %s: %w", id, err)
	}
	return requireAffected(res)
}
