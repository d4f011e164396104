package repository

import (
	"context"

	"moi-note/internal/domain"
)

// EntryRepository persists money entries.
type EntryRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, entry *domain.MoneyEntry) error
	Get(ctx context.Context, id string) (*domain.MoneyEntry, error)
	Update(ctx context.Context, entry *domain.MoneyEntry) error
	Delete(ctx context.Context, id string) error
	// List returns entries newest first.
	List(ctx context.Context) ([]domain.MoneyEntry, error)
}

// EventRepository stores the singleton event metadata document.
type EventRepository interface {
	Init(ctx context.Context) error
	Get(ctx context.Context) (*domain.EventMetadata, error)
	Put(ctx context.Context, event *domain.EventMetadata) error
}
