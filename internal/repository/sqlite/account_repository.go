package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"moi-note/internal/domain"
	"moi-note/internal/repository"
)

const createAccountsTable = `
CREATE TABLE IF NOT EXISTS accounts (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL,
	session_version INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) repository.AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createAccountsTable); err != nil {
		return fmt.Errorf("create accounts table: %w", err)
	}
	return r.ensureAccountColumns(ctx)
}

// ensureAccountColumns upgrades account tables created before session versions existed.
func (r *AccountRepository) ensureAccountColumns(ctx context.Context) error {
	rows, err := r.db.QueryContext(ctx, `PRAGMA table_info(accounts)`)
	if err != nil {
		return fmt.Errorf("describe accounts table: %w", err)
	}

	columns := map[string]struct{}{}
	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notnull   int
			dfltValue any
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			rows.Close()
			return fmt.Errorf("scan pragma table info: %w", err)
		}
		columns[name] = struct{}{}
	}
	err = rows.Err()
	rows.Close() // the single connection must be free before altering the table
	if err != nil {
		return fmt.Errorf("iterate pragma table info: %w", err)
	}

	if _, exists := columns["session_version"]; exists {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, `ALTER TABLE accounts ADD COLUMN session_version INTEGER NOT NULL DEFAULT 0`); err != nil {
		return fmt.Errorf("add column session_version: %w", err)
	}
	return nil
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
INSERT INTO accounts (id, email, password_hash, role, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		account.ID,
		account.Email,
		account.PasswordHash,
		string(account.Role),
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("account %s: %w", account.Email, domain.ErrUserExists)
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, email, password_hash, role, session_version, created_at, updated_at
FROM accounts
WHERE email = ?`,
		strings.TrimSpace(email),
	)
	return scanAccount(row)
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, email, password_hash, role, session_version, created_at, updated_at
FROM accounts
WHERE id = ?`,
		id,
	)
	return scanAccount(row)
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE accounts
SET password_hash=?, updated_at=?
WHERE id=?`,
		passwordHash,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("update account password: %w", err)
	}
	return expectAffected(res, "account", id)
}

func (r *AccountRepository) BumpSessionVersion(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE accounts
SET session_version=session_version+1, updated_at=?
WHERE id=?`,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return fmt.Errorf("bump session version: %w", err)
	}
	return expectAffected(res, "account", id)
}

func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return expectAffected(res, "account", id)
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var (
		account domain.Account
		role    string
	)
	if err := row.Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&role,
		&account.SessionVersion,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	account.Role = domain.Role(role)
	return &account, nil
}

func expectAffected(res sql.Result, kind, id string) error {
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", kind, err)
	}
	if aff == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
	}
	return nil
}
