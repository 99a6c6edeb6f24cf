package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xiaot623/gogo/marketplace/internal/domain"
)

// AppendMessage writes a message from the viewer into a conversation.
func (s *Service) AppendMessage(ctx context.Context, viewer domain.Viewer, conversationID int64, receiverID, text string) (*domain.AppendedMessage, error) {
	if err := s.authorize(ctx, viewer, domain.ActionMessageSend); err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	receiverID = strings.TrimSpace(receiverID)
	switch {
	case conversationID <= 0:
		return nil, domain.NewValidationError("conversation_id", "must be positive")
	case text == "":
		return nil, domain.NewValidationError("text", "must not be empty")
	case receiverID == "":
		return nil, domain.NewValidationError("receiver_id", "is required")
	case utf8.RuneCountInString(text) > domain.MaxMessageTextLength:
		return nil, domain.NewValidationError("text", fmt.Sprintf("must be at most %d characters", domain.MaxMessageTextLength))
	}

	display, createdAt := s.stamp()
	msg := &domain.Message{
		ConversationID: conversationID,
		Sender:         viewer.Key(),
		ReceiverID:     receiverID,
		Text:           text,
		Timestamp:      display,
		CreatedAt:      createdAt,
	}
	if err := s.store.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}

	s.emit(ctx, viewer, *msg)
	return &domain.AppendedMessage{IsOwn: true, Text: msg.Text, Timestamp: msg.Timestamp}, nil
}

// AutoReply appends the canned server reply to a conversation.
func (s *Service) AutoReply(ctx context.Context, viewer domain.Viewer, conversationID int64) (*domain.AppendedMessage, error) {
	if err := s.authorize(ctx, viewer, domain.ActionMessageAutoReply); err != nil {
		return nil, err
	}
	if conversationID <= 0 {
		return nil, domain.NewValidationError("conversation_id", "must be positive")
	}

	display, createdAt := s.stamp()
	msg := &domain.Message{
		ConversationID: conversationID,
		Sender:         domain.SenderServer,
		Text:           domain.AutoReplyText,
		Timestamp:      display,
		CreatedAt:      createdAt,
	}
	if err := s.store.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to append auto reply: %w", err)
	}

	s.emit(ctx, viewer, *msg)
	return &domain.AppendedMessage{IsOwn: false, Text: msg.Text, Timestamp: msg.Timestamp}, nil
}
