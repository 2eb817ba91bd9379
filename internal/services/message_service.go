package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/discordin/internal/database"
	"github.com/isdelr/discordin/internal/models"
)

// MessageServiceProvider defines the interface for message services.
type MessageServiceProvider interface {
	PostMessage(ctx context.Context, sender, branchID, content string, replyTo *string) (models.Message, error)
	GetMessages(ctx context.Context, pseudo, branchID string, limit int) ([]models.Message, error)
	EditMessage(ctx context.Context, pseudo, messageID, content string) (models.Message, error)
}

// MessagePublisher receives every message once it is stored or edited.
type MessagePublisher interface {
	PublishMessage(message models.Message)
}

// MessageService provides business logic for branch messages.
type MessageService struct {
	db        *sql.DB
	messages  *database.Table
	bamboos   BambooServiceProvider
	publisher MessagePublisher
	now       func() time.Time
}

// NewMessageService creates a new MessageService. publisher may be nil.
func NewMessageService(db *sql.DB, bamboos BambooServiceProvider, publisher MessagePublisher) *MessageService {
	return &MessageService{
		db:        db,
		messages:  database.NewTable(db, "messages", "id", "branch_id", "sender", "content", "reply_to", "modified", "sent_at"),
		bamboos:   bamboos,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// PostMessage stores a message sent by a member of the branch's bamboo and
// forwards it to the publisher. replyTo, when set, must name a message of
// the same branch.
func (s *MessageService) PostMessage(ctx context.Context, sender, branchID, content string, replyTo *string) (models.Message, error) {
	content, err := validateContent(content)
	if err != nil {
		return models.Message{}, err
	}
	if _, err := s.bamboos.MemberBranch(ctx, branchID, sender); err != nil {
		return models.Message{}, err
	}
	if replyTo != nil && *replyTo == "" {
		replyTo = nil
	}
	if replyTo != nil {
		original, err := s.getMessage(ctx, *replyTo)
		if errors.Is(err, ErrMessageNotFound) || (err == nil && original.BranchID != branchID) {
			return models.Message{}, invalid("reply_to", "you can only reply to a message of the same branch")
		}
		if err != nil {
			return models.Message{}, err
		}
	}

	message := models.Message{
		ID:       uuid.New().String(),
		BranchID: branchID,
		Sender:   sender,
		Content:  content,
		ReplyTo:  replyTo,
		SentAt:   s.now(),
	}
	values := map[string]any{
		"id":        message.ID,
		"branch_id": message.BranchID,
		"sender":    message.Sender,
		"content":   message.Content,
		"sent_at":   message.SentAt,
	}
	if replyTo != nil {
		values["reply_to"] = *replyTo
	}
	err = s.messages.Create(ctx, values)
	if err != nil {
		return models.Message{}, err
	}

	if s.publisher != nil {
		s.publisher.PublishMessage(message)
	}
	return message, nil
}

// GetMessages returns up to limit of the latest messages of a branch, oldest
// first. A limit of zero or less returns them all.
func (s *MessageService) GetMessages(ctx context.Context, pseudo, branchID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = -1
	}
	if _, err := s.bamboos.MemberBranch(ctx, branchID, pseudo); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, branch_id, sender, content, reply_to, modified, sent_at FROM (
			SELECT rowid AS seq, * FROM messages WHERE branch_id = ? ORDER BY sent_at DESC, seq DESC LIMIT ?
		) ORDER BY sent_at, seq`, branchID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// EditMessage replaces the content of a message. Only its sender may edit it.
func (s *MessageService) EditMessage(ctx context.Context, pseudo, messageID, content string) (models.Message, error) {
	content, err := validateContent(content)
	if err != nil {
		return models.Message{}, err
	}
	message, err := s.getMessage(ctx, messageID)
	if err != nil {
		return models.Message{}, err
	}
	if message.Sender != pseudo {
		return models.Message{}, ErrForbidden
	}

	if err := s.messages.Update(ctx, messageID, map[string]any{"content": content, "modified": 1}); err != nil {
		return models.Message{}, fmt.Errorf("edit message: %w", err)
	}
	message.Content = content
	message.Modified = true

	if s.publisher != nil {
		s.publisher.PublishMessage(message)
	}
	return message, nil
}

func (s *MessageService) getMessage(ctx context.Context, id string) (models.Message, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, branch_id, sender, content, reply_to, modified, sent_at FROM messages WHERE id = ?", id)
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return m, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(row scanner) (models.Message, error) {
	var m models.Message
	var replyTo sql.NullString
	if err := row.Scan(&m.ID, &m.BranchID, &m.Sender, &m.Content, &replyTo, &m.Modified, &m.SentAt); err != nil {
		return models.Message{}, err
	}
	if replyTo.Valid {
		m.ReplyTo = &replyTo.String
	}
	return m, nil
}
