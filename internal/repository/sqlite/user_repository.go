package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"moi-note/internal/domain"
	"moi-note/internal/repository"
)

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL,
	is_first_login INTEGER NOT NULL DEFAULT 1,
	initial_password TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);
`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createUsersTable); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.UserRecord) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO users (id, email, is_first_login, initial_password, created_at)
VALUES (?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.IsFirstLogin,
		user.InitialPassword,
		user.CreatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user record %s: %w", user.ID, domain.ErrUserExists)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) Get(ctx context.Context, id string) (*domain.UserRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, email, is_first_login, initial_password, created_at
FROM users
WHERE id = ?`,
		id,
	)
	return scanUser(row)
}

func (r *UserRepository) List(ctx context.Context) ([]domain.UserRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, email, is_first_login, initial_password, created_at
FROM users
ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []domain.UserRecord
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// SetFirstLogin updates the first-login flag; initialPassword is left untouched when nil.
func (r *UserRepository) SetFirstLogin(ctx context.Context, id string, firstLogin bool, initialPassword *string) error {
	var (
		res sql.Result
		err error
	)
	if initialPassword != nil {
		res, err = r.db.ExecContext(ctx, `UPDATE users SET is_first_login=?, initial_password=? WHERE id=?`, firstLogin, *initialPassword, id)
	} else {
		res, err = r.db.ExecContext(ctx, `UPDATE users SET is_first_login=? WHERE id=?`, firstLogin, id)
	}
	if err != nil {
		return fmt.Errorf("update first login flag: %w", err)
	}
	return expectAffected(res, "user record", id)
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return expectAffected(res, "user record", id)
}

func scanUser(row rowScanner) (*domain.UserRecord, error) {
	var user domain.UserRecord
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.IsFirstLogin,
		&user.InitialPassword,
		&user.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user record: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &user, nil
}
