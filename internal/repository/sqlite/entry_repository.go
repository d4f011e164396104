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

const createEntriesTable = `
CREATE TABLE IF NOT EXISTS entries (
	id TEXT PRIMARY KEY,
	guest_name TEXT NOT NULL,
	address TEXT NOT NULL DEFAULT '',
	amount TEXT NOT NULL,
	entered_by TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	modified_by TEXT NOT NULL DEFAULT '',
	last_modified DATETIME NULL,
	event_name TEXT NOT NULL DEFAULT '',
	event_date TEXT NOT NULL DEFAULT '',
	host_name TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_entries_timestamp ON entries(timestamp);
`

const selectEntryColumns = `
SELECT id, guest_name, address, amount, entered_by, timestamp, modified_by, last_modified, event_name, event_date, host_name
FROM entries`

type EntryRepository struct {
	db *sql.DB
}

func NewEntryRepository(db *sql.DB) repository.EntryRepository {
	return &EntryRepository{db: db}
}

func (r *EntryRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createEntriesTable); err != nil {
		return fmt.Errorf("create entries table: %w", err)
	}
	return nil
}

func (r *EntryRepository) Create(ctx context.Context, entry *domain.MoneyEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO entries (id, guest_name, address, amount, entered_by, timestamp, modified_by, last_modified, event_name, event_date, host_name)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.GuestName,
		entry.Address,
		entry.Amount.String(),
		entry.EnteredBy,
		entry.Timestamp.UTC(),
		entry.ModifiedBy,
		nullTime(entry.LastModified),
		entry.EventName,
		entry.EventDate,
		entry.HostName,
	)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

func (r *EntryRepository) Get(ctx context.Context, id string) (*domain.MoneyEntry, error) {
	row := r.db.QueryRowContext(ctx, selectEntryColumns+`
WHERE id = ?`, id)
	return scanEntry(row)
}

func (r *EntryRepository) Update(ctx context.Context, entry *domain.MoneyEntry) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE entries
SET guest_name=?, address=?, amount=?, modified_by=?, last_modified=?
WHERE id=?`,
		entry.GuestName,
		entry.Address,
		entry.Amount.String(),
		entry.ModifiedBy,
		nullTime(entry.LastModified),
		entry.ID,
	)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	return expectAffected(res, "entry", entry.ID)
}

func (r *EntryRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM entries WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return expectAffected(res, "entry", id)
}

func (r *EntryRepository) List(ctx context.Context) ([]domain.MoneyEntry, error) {
	rows, err := r.db.QueryContext(ctx, selectEntryColumns+`
ORDER BY timestamp DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []domain.MoneyEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

func scanEntry(row rowScanner) (*domain.MoneyEntry, error) {
	var (
		entry        domain.MoneyEntry
		lastModified sql.NullTime
	)
	if err := row.Scan(
		&entry.ID,
		&entry.GuestName,
		&entry.Address,
		&entry.Amount,
		&entry.EnteredBy,
		&entry.Timestamp,
		&entry.ModifiedBy,
		&lastModified,
		&entry.EventName,
		&entry.EventDate,
		&entry.HostName,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("entry: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scan entry: %w", err)
	}
	if lastModified.Valid {
		t := lastModified.Time
		entry.LastModified = &t
	}
	return &entry, nil
}
