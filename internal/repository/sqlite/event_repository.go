package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"moi-note/internal/domain"
	"moi-note/internal/repository"
)

// The settings table only ever holds the row with id 1.
const createSettingsTable = `
CREATE TABLE IF NOT EXISTS settings (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	function_name TEXT NOT NULL,
	date TEXT NOT NULL,
	host_name TEXT NOT NULL,
	host_photo TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	last_updated DATETIME NULL
);
`

type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) repository.EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createSettingsTable); err != nil {
		return fmt.Errorf("create settings table: %w", err)
	}
	return nil
}

func (r *EventRepository) Get(ctx context.Context) (*domain.EventMetadata, error) {
	var (
		event       domain.EventMetadata
		lastUpdated sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
SELECT function_name, date, host_name, host_photo, created_at, last_updated
FROM settings
WHERE id = 1`).Scan(
		&event.Name,
		&event.Date,
		&event.HostName,
		&event.HostPhoto,
		&event.CreatedAt,
		&lastUpdated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("event metadata: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scan event metadata: %w", err)
	}
	if lastUpdated.Valid {
		t := lastUpdated.Time
		event.LastUpdated = &t
	}
	return &event, nil
}

func (r *EventRepository) Put(ctx context.Context, event *domain.EventMetadata) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO settings (id, function_name, date, host_name, host_photo, created_at, last_updated)
VALUES (1, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	function_name=excluded.function_name,
	date=excluded.date,
	host_name=excluded.host_name,
	host_photo=excluded.host_photo,
	last_updated=excluded.last_updated`,
		event.Name,
		event.Date,
		event.HostName,
		event.HostPhoto,
		event.CreatedAt.UTC(),
		nullTime(event.LastUpdated),
	)
	if err != nil {
		return fmt.Errorf("put event metadata: %w", err)
	}
	return nil
}
