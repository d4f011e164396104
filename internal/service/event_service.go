package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"moi-note/internal/domain"
	"moi-note/internal/repository"
	"moi-note/internal/storage"
)

// PhotoUpload is a host photo submitted with an event update.
type PhotoUpload struct {
	Body        io.Reader
	ContentType string
}

// EventService guards the event metadata singleton and its host photo.
type EventService struct {
	events     repository.EventRepository
	storage    storage.Service
	presignTTL time.Duration
	logger     logrus.FieldLogger
	now        func() time.Time

	mu sync.Mutex
}

// NewEventService builds the service; store may be nil, which disables photo uploads.
func NewEventService(events repository.EventRepository, store storage.Service, presignTTL time.Duration, logger logrus.FieldLogger) *EventService {
	if logger == nil {
		logger = logrus.New()
	}
	return &EventService{
		events:     events,
		storage:    store,
		presignTTL: presignTTL,
		logger:     logger,
		now:        time.Now,
	}
}

// Get returns the event metadata, storing the defaults on first access.
func (s *EventService) Get(ctx context.Context) (*domain.EventMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(ctx)
}

func (s *EventService) getLocked(ctx context.Context) (*domain.EventMetadata, error) {
	event, err := s.events.Get(ctx)
	if err == nil {
		return event, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	defaults := domain.DefaultEventMetadata(s.now().UTC())
	if err := s.events.Put(ctx, &defaults); err != nil {
		return nil, err
	}
	s.logger.Info("created default event metadata")
	return &defaults, nil
}

func (s *EventService) Update(ctx context.Context, input domain.EventInput, photo *PhotoUpload) (*domain.EventMetadata, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Date = strings.TrimSpace(input.Date)
	input.HostName = strings.TrimSpace(input.HostName)
	if input.Name == "" || input.Date == "" || input.HostName == "" {
		return nil, fmt.Errorf("name, date and host are required: %w", domain.ErrInvalidEvent)
	}
	if _, err := time.Parse(domain.EventDateLayout, input.Date); err != nil {
		return nil, fmt.Errorf("date must look like %s: %w", domain.EventDateLayout, domain.ErrInvalidEvent)
	}
	if photo != nil && s.storage == nil {
		return nil, domain.ErrStorageDisabled
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	event, err := s.getLocked(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	previousPhoto := event.HostPhoto
	if photo != nil {
		key := fmt.Sprintf("host-photos/%d", now.UnixMilli())
		location, err := s.storage.PutObject(ctx, key, photo.Body, photo.ContentType)
		if err != nil {
			return nil, fmt.Errorf("upload host photo: %w", err)
		}
		event.HostPhoto = location
	}

	event.Name = input.Name
	event.Date = input.Date
	event.HostName = input.HostName
	event.LastUpdated = &now
	if err := s.events.Put(ctx, event); err != nil {
		return nil, err
	}

	if photo != nil && previousPhoto != "" && previousPhoto != event.HostPhoto {
		if err := s.storage.DeleteObject(ctx, previousPhoto); err != nil {
			s.logger.WithError(err).WithField("location", previousPhoto).Warn("remove previous host photo")
		}
	}
	return event, nil
}

// PhotoURL returns a short-lived URL for the host photo.
func (s *EventService) PhotoURL(ctx context.Context) (string, error) {
	event, err := s.Get(ctx)
	if err != nil {
		return "", err
	}
	if event.HostPhoto == "" {
		return "", fmt.Errorf("host photo: %w", domain.ErrNotFound)
	}
	if s.storage == nil {
		return "", domain.ErrStorageDisabled
	}
	return s.storage.GetObjectURL(ctx, event.HostPhoto, s.presignTTL)
}
