package messaging

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/messagely/messagely-server/internal/store"
)

// Common errors for message operations.
var (
	ErrMissingFields   = errors.New("from_username, to_username and body are required")
	ErrMessageNotFound = errors.New("message not found")
	ErrNotParticipant  = errors.New("caller is neither sender nor recipient")
	ErrNotRecipient    = errors.New("only the recipient can mark a message read")
	ErrUnknownUser     = errors.New("unknown username")
)

// Service provides message lifecycle and access control logic.
type Service struct {
	store store.MessageStore
}

// New creates a new messaging service.
func New(st store.MessageStore) *Service {
	return &Service{
		store: st,
	}
}

// Send validates the input fields and creates a new message.
// A nonexistent sender or recipient surfaces as ErrUnknownUser.
func (s *Service) Send(ctx context.Context, fromUsername, toUsername, body string) (*store.Message, error) {
	if fromUsername == "" || toUsername == "" || body == "" {
		return nil, ErrMissingFields
	}

	msg, err := s.store.CreateMessage(ctx, fromUsername, toUsername, body)
	if err != nil {
		// SQLite reports a missing username as a FOREIGN KEY violation
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return nil, ErrUnknownUser
		}
		return nil, fmt.Errorf("create message: %w", err)
	}

	return msg, nil
}

// Get retrieves a message with user detail. Only the sender or the recipient
// may read it.
func (s *Service) Get(ctx context.Context, caller string, id int64) (*store.MessageDetail, error) {
	msg, err := s.store.GetMessage(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("get message: %w", err)
	}

	if caller != msg.FromUser.Username && caller != msg.ToUser.Username {
		return nil, ErrNotParticipant
	}

	return msg, nil
}

// MarkRead marks a message read on behalf of the caller. Only the recipient
// may do so; the sender is rejected. Re-marking an already read message
// overwrites read_at with a fresh timestamp.
func (s *Service) MarkRead(ctx context.Context, caller string, id int64) (*store.Message, error) {
	msg, err := s.store.GetMessage(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("get message: %w", err)
	}

	if caller != msg.ToUser.Username {
		return nil, ErrNotRecipient
	}

	updated, err := s.store.MarkMessageRead(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("mark message read: %w", err)
	}

	return updated, nil
}
