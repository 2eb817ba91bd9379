package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/discordin/internal/database"
	"github.com/isdelr/discordin/internal/models"
)

// Event types recorded in the activity feed.
const (
	EventUserRegister  = "user.register"
	EventUserLogin     = "user.login"
	EventProfileUpdate = "profile.update"
	EventFriendAdd     = "friend.add"
	EventFriendRemove  = "friend.remove"
	EventBambooCreate  = "bamboo.create"
	EventBambooJoin    = "bamboo.join"
)

// EventServiceProvider defines the interface for event services.
type EventServiceProvider interface {
	CreateEvent(ctx context.Context, eventType, level, message string, pseudo *string) error
	GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error)
	PruneEvents(ctx context.Context, before time.Time) (int64, error)
}

// EventPublisher receives every event once it is stored.
type EventPublisher interface {
	Publish(event models.Event)
}

// EventService provides business logic for the activity feed.
type EventService struct {
	db        *sql.DB
	events    *database.Table
	publisher EventPublisher
	now       func() time.Time
}

// NewEventService creates a new EventService. publisher may be nil.
func NewEventService(db *sql.DB, publisher EventPublisher) *EventService {
	return &EventService{
		db:        db,
		events:    database.NewTable(db, "events", "id", "type", "level", "message", "pseudo", "created_at"),
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateEvent stores a new event and forwards it to the publisher.
func (s *EventService) CreateEvent(ctx context.Context, eventType, level, message string, pseudo *string) error {
	event := models.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Level:     level,
		Message:   message,
		Pseudo:    pseudo,
		CreatedAt: s.now(),
	}

	err := s.events.Create(ctx, map[string]any{
		"id":         event.ID,
		"type":       event.Type,
		"level":      event.Level,
		"message":    event.Message,
		"pseudo":     event.Pseudo,
		"created_at": event.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("create event: %w", err)
	}

	if s.publisher != nil {
		s.publisher.Publish(event)
	}
	return nil
}

// GetRecentEvents retrieves the most recent events, newest first.
func (s *EventService) GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, type, level, message, pseudo, created_at FROM events ORDER BY created_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var event models.Event
		if err := rows.Scan(&event.ID, &event.Type, &event.Level, &event.Message, &event.Pseudo, &event.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// PruneEvents deletes events created before the given time and returns how many were removed.
func (s *EventService) PruneEvents(ctx context.Context, before time.Time) (int64, error) {
	var removed int64
	err := s.events.Transact(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM events WHERE created_at < ?", before.UTC())
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return removed, nil
}
