package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moi-note/internal/domain"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "moi.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestAccountRepository_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository(setupDB(t))
	require.NoError(t, repo.Init(ctx))

	acc := &domain.Account{ID: "a1", Email: "alice@example.com", PasswordHash: "h", Role: domain.RoleContributor}
	require.NoError(t, repo.Create(ctx, acc))

	byEmail, err := repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "a1", byEmail.ID)
	assert.Equal(t, domain.RoleContributor, byEmail.Role)

	byID, err := repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", byID.Email)

	err = repo.Create(ctx, &domain.Account{ID: "a2", Email: "alice@example.com", PasswordHash: "h", Role: domain.RoleContributor})
	assert.ErrorIs(t, err, domain.ErrUserExists)

	_, err = repo.GetByEmail(ctx, "bob@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAccountRepository_UpdatePasswordAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository(setupDB(t))
	require.NoError(t, repo.Init(ctx))
	require.NoError(t, repo.Create(ctx, &domain.Account{ID: "a1", Email: "a@x", PasswordHash: "old", Role: domain.RoleAdmin}))

	require.NoError(t, repo.UpdatePassword(ctx, "a1", "new"))
	acc, err := repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "new", acc.PasswordHash)

	assert.ErrorIs(t, repo.UpdatePassword(ctx, "missing", "x"), domain.ErrNotFound)

	require.NoError(t, repo.Delete(ctx, "a1"))
	assert.ErrorIs(t, repo.Delete(ctx, "a1"), domain.ErrNotFound)
}

func TestAccountRepository_BumpSessionVersion(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository(setupDB(t))
	require.NoError(t, repo.Init(ctx))
	require.NoError(t, repo.Create(ctx, &domain.Account{ID: "a1", Email: "a@x", PasswordHash: "h", Role: domain.RoleContributor}))

	acc, err := repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, 0, acc.SessionVersion)

	require.NoError(t, repo.BumpSessionVersion(ctx, "a1"))
	require.NoError(t, repo.BumpSessionVersion(ctx, "a1"))
	acc, err = repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, 2, acc.SessionVersion)

	assert.ErrorIs(t, repo.BumpSessionVersion(ctx, "missing"), domain.ErrNotFound)
}

func TestAccountRepository_InitAddsSessionVersionColumn(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	_, err := db.ExecContext(ctx, `
CREATE TABLE accounts (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
)`)
	require.NoError(t, err)
	now := time.Now().UTC()
	_, err = db.ExecContext(ctx, `INSERT INTO accounts VALUES ('a1', 'a@x', 'h', 'admin', ?, ?)`, now, now)
	require.NoError(t, err)

	repo := NewAccountRepository(db)
	require.NoError(t, repo.Init(ctx))
	require.NoError(t, repo.Init(ctx))

	acc, err := repo.GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, 0, acc.SessionVersion)
	assert.Equal(t, domain.RoleAdmin, acc.Role)
}

func TestUserRepository_FirstLoginFlag(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(setupDB(t))
	require.NoError(t, repo.Init(ctx))

	require.NoError(t, repo.Create(ctx, &domain.UserRecord{ID: "u1", Email: "alice@example.com", IsFirstLogin: true, InitialPassword: "prov123"}))

	rec, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, rec.IsFirstLogin)
	assert.Equal(t, "prov123", rec.InitialPassword)
	assert.False(t, rec.CreatedAt.IsZero())

	require.NoError(t, repo.SetFirstLogin(ctx, "u1", false, nil))
	rec, err = repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, rec.IsFirstLogin)
	assert.Equal(t, "prov123", rec.InitialPassword)

	reset := "again99"
	require.NoError(t, repo.SetFirstLogin(ctx, "u1", true, &reset))
	rec, err = repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, rec.IsFirstLogin)
	assert.Equal(t, "again99", rec.InitialPassword)

	assert.ErrorIs(t, repo.SetFirstLogin(ctx, "nobody", false, nil), domain.ErrNotFound)
}

func TestUserRepository_ListCountDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(setupDB(t))
	require.NoError(t, repo.Init(ctx))

	require.NoError(t, repo.Create(ctx, &domain.UserRecord{ID: "u1", Email: "a@x", IsFirstLogin: true}))
	require.NoError(t, repo.Create(ctx, &domain.UserRecord{ID: "u2", Email: "b@x"}))
	assert.ErrorIs(t, repo.Create(ctx, &domain.UserRecord{ID: "u2", Email: "b@x"}), domain.ErrUserExists)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	require.NoError(t, repo.Delete(ctx, "u1"))
	_, err = repo.Get(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEntryRepository_CRUDAndOrdering(t *testing.T) {
	ctx := context.Background()
	repo := NewEntryRepository(setupDB(t))
	require.NoError(t, repo.Init(ctx))

	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, name := range []string{"first", "second", "third"} {
		require.NoError(t, repo.Create(ctx, &domain.MoneyEntry{
			ID:        name,
			GuestName: name,
			Address:   "street",
			Amount:    decimal.RequireFromString("100.50"),
			EnteredBy: "alice@example.com",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			EventName: "Wedding Function",
		}))
	}

	entries, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"third", "second", "first"}, []string{entries[0].ID, entries[1].ID, entries[2].ID})
	assert.True(t, decimal.RequireFromString("100.5").Equal(entries[0].Amount))
	assert.Nil(t, entries[0].LastModified)

	got, err := repo.Get(ctx, "second")
	require.NoError(t, err)
	modified := base.Add(time.Hour)
	got.GuestName = "renamed"
	got.Amount = decimal.NewFromInt(501)
	got.ModifiedBy = "bob@example.com"
	got.LastModified = &modified
	require.NoError(t, repo.Update(ctx, got))

	got, err = repo.Get(ctx, "second")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.GuestName)
	assert.True(t, decimal.NewFromInt(501).Equal(got.Amount))
	assert.Equal(t, "bob@example.com", got.ModifiedBy)
	require.NotNil(t, got.LastModified)
	assert.True(t, modified.Equal(*got.LastModified))

	require.NoError(t, repo.Delete(ctx, "second"))
	assert.ErrorIs(t, repo.Delete(ctx, "second"), domain.ErrNotFound)
	_, err = repo.Get(ctx, "second")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, repo.Update(ctx, &domain.MoneyEntry{ID: "second"}), domain.ErrNotFound)
}

func TestEventRepository_Singleton(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	repo := NewEventRepository(db)
	require.NoError(t, repo.Init(ctx))

	_, err := repo.Get(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	event := domain.DefaultEventMetadata(now)
	require.NoError(t, repo.Put(ctx, &event))

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Wedding Function", got.Name)
	assert.Equal(t, "2026-06-01", got.Date)
	assert.Nil(t, got.LastUpdated)

	updated := now.Add(time.Hour)
	got.Name = "Reception"
	got.HostPhoto = "s3://bucket/host-photos/1"
	got.LastUpdated = &updated
	require.NoError(t, repo.Put(ctx, got))

	var rows int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM settings`).Scan(&rows))
	assert.Equal(t, 1, rows)

	got, err = repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Reception", got.Name)
	assert.Equal(t, "s3://bucket/host-photos/1", got.HostPhoto)
	require.NotNil(t, got.LastUpdated)
	assert.True(t, now.Equal(got.CreatedAt))
}
