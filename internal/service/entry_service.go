package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"moi-note/internal/domain"
	"moi-note/internal/identity"
	"moi-note/internal/repository"
)

// EntryService is the store adapter over money entries. Every mutation publishes
// a fresh ordered snapshot to live subscriptions.
type EntryService struct {
	entries repository.EntryRepository
	users   repository.UserRepository
	events  *EventService
	logger  logrus.FieldLogger
	now     func() time.Time

	mu   sync.Mutex
	feed *entryFeed
}

func NewEntryService(entries repository.EntryRepository, users repository.UserRepository, events *EventService, logger logrus.FieldLogger) *EntryService {
	if logger == nil {
		logger = logrus.New()
	}
	return &EntryService{
		entries: entries,
		users:   users,
		events:  events,
		logger:  logger,
		now:     time.Now,
		feed:    newEntryFeed(),
	}
}

// List returns all entries, newest first.
func (s *EntryService) List(ctx context.Context) ([]domain.MoneyEntry, error) {
	return s.entries.List(ctx)
}

func (s *EntryService) Get(ctx context.Context, id string) (*domain.MoneyEntry, error) {
	return s.entries.Get(ctx, id)
}

func (s *EntryService) Summary(ctx context.Context) (domain.EntrySummary, error) {
	entries, err := s.entries.List(ctx)
	if err != nil {
		return domain.EntrySummary{}, err
	}
	summary := domain.SummarizeEntries(entries)
	if summary.Contributors, err = s.users.Count(ctx); err != nil {
		return domain.EntrySummary{}, err
	}
	return summary, nil
}

func (s *EntryService) Create(ctx context.Context, session *domain.Session, input domain.EntryInput) (*domain.MoneyEntry, error) {
	if session == nil {
		return nil, domain.ErrNotAuthenticated
	}
	input, err := validateEntry(input)
	if err != nil {
		return nil, err
	}

	event, err := s.events.Get(ctx)
	if err != nil {
		return nil, err
	}

	entry := &domain.MoneyEntry{
		ID:        uuid.NewString(),
		GuestName: input.GuestName,
		Address:   input.Address,
		Amount:    input.Amount,
		EnteredBy: session.Email,
		Timestamp: s.now().UTC(),
		EventName: event.Name,
		EventDate: event.Date,
		HostName:  event.HostName,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.entries.Create(ctx, entry); err != nil {
		return nil, err
	}
	s.publishLocked(ctx)
	return entry, nil
}

// VerifyEdit re-confirms the caller's password and returns the entry so an edit
// form can be shown. Update repeats both checks when the change is submitted.
func (s *EntryService) VerifyEdit(ctx context.Context, gate *identity.Gate, id, password string) (*domain.MoneyEntry, error) {
	session := gate.Current()
	if session == nil {
		return nil, domain.ErrNotAuthenticated
	}
	if err := gate.Reauthenticate(ctx, password); err != nil {
		return nil, err
	}

	entry, err := s.entries.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkAuthor(entry, session); err != nil {
		return nil, err
	}
	return entry, nil
}

// Update re-confirms the caller's password with the identity provider before
// touching the entry. That prompt only deters casual edits; the author check is
// what restricts who may change an entry.
func (s *EntryService) Update(ctx context.Context, gate *identity.Gate, id string, input domain.EntryInput, password string) (*domain.MoneyEntry, error) {
	session := gate.Current()
	if session == nil {
		return nil, domain.ErrNotAuthenticated
	}
	input, err := validateEntry(input)
	if err != nil {
		return nil, err
	}
	if err := gate.Reauthenticate(ctx, password); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.entries.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkAuthor(entry, session); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	entry.GuestName = input.GuestName
	entry.Address = input.Address
	entry.Amount = input.Amount
	entry.ModifiedBy = session.Email
	entry.LastModified = &now

	if err := s.entries.Update(ctx, entry); err != nil {
		return nil, err
	}
	s.publishLocked(ctx)
	return entry, nil
}

func (s *EntryService) Delete(ctx context.Context, session *domain.Session, id string) error {
	if session == nil {
		return domain.ErrNotAuthenticated
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.entries.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := checkAuthor(entry, session); err != nil {
		return err
	}
	if err := s.entries.Delete(ctx, id); err != nil {
		return err
	}
	s.publishLocked(ctx)
	return nil
}

// Subscribe opens a live view over the entry list. The subscription is released
// when ctx ends or Close is called; callers must do one or the other.
func (s *EntryService) Subscribe(ctx context.Context) (*Subscription, error) {
	s.mu.Lock()
	entries, err := s.entries.List(ctx)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	sub := s.feed.add(entries)
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.Done():
		}
	}()
	return sub, nil
}

func (s *EntryService) publishLocked(ctx context.Context) {
	if s.feed.size() == 0 {
		return
	}
	entries, err := s.entries.List(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("refresh entry subscriptions")
		return
	}
	s.feed.publish(entries)
}

func checkAuthor(entry *domain.MoneyEntry, session *domain.Session) error {
	if entry.EnteredBy != session.Email {
		return fmt.Errorf("entry %s belongs to %s: %w", entry.ID, entry.EnteredBy, domain.ErrForbidden)
	}
	return nil
}

func validateEntry(input domain.EntryInput) (domain.EntryInput, error) {
	input.GuestName = strings.TrimSpace(input.GuestName)
	input.Address = strings.TrimSpace(input.Address)
	if input.GuestName == "" {
		return input, fmt.Errorf("guest name is required: %w", domain.ErrInvalidEntry)
	}
	if input.Address == "" {
		return input, fmt.Errorf("address is required: %w", domain.ErrInvalidEntry)
	}
	if !input.Amount.IsPositive() {
		return input, fmt.Errorf("amount must be greater than zero: %w", domain.ErrInvalidEntry)
	}
	return input, nil
}
