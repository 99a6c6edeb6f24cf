package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/xiaot623/gogo/marketplace/internal/domain"
)

// identityLookup resolves a participant id to a display identity, or nil.
type identityLookup func(ctx context.Context, participantID string) (*domain.Identity, error)

// ListConversations derives every conversation in the log as seen by viewer,
// in the order conversation ids first appear.
func (s *Service) ListConversations(ctx context.Context, viewer domain.Viewer) ([]domain.ConversationSummary, error) {
	if err := s.authorize(ctx, viewer, domain.ActionConversationList); err != nil {
		return nil, err
	}

	messages, err := s.store.ListMessages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	lookup := s.counterpartyLookup(viewer)
	groups, order := partition(messages)
	summaries := make([]domain.ConversationSummary, 0, len(order))
	for _, id := range order {
		msgs := groups[id]
		counterpartyID, name, err := describe(ctx, id, msgs, viewer, lookup)
		if err != nil {
			return nil, err
		}
		last := msgs[len(msgs)-1]
		summaries = append(summaries, domain.ConversationSummary{
			ID:             id,
			Name:           name,
			Avatar:         domain.DefaultAvatar,
			LastMessage:    last.Text,
			Timestamp:      last.Timestamp,
			CounterpartyID: counterpartyID,
			Messages:       transcript(msgs, viewer),
		})
	}
	return summaries, nil
}

// GetConversation derives a single conversation for viewer.
func (s *Service) GetConversation(ctx context.Context, viewer domain.Viewer, conversationID int64) (*domain.ConversationDetail, error) {
	if err := s.authorize(ctx, viewer, domain.ActionConversationGet); err != nil {
		return nil, err
	}

	msgs, err := s.store.GetConversationMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("%w: conversation %d", domain.ErrNotFound, conversationID)
	}

	counterpartyID, name, err := describe(ctx, conversationID, msgs, viewer, s.counterpartyLookup(viewer))
	if err != nil {
		return nil, err
	}
	return &domain.ConversationDetail{
		ID:             conversationID,
		Name:           name,
		Avatar:         domain.DefaultAvatar,
		CounterpartyID: counterpartyID,
		Messages:       transcript(msgs, viewer),
	}, nil
}

// counterpartyLookup searches the account table of the role opposite to the viewer.
func (s *Service) counterpartyLookup(viewer domain.Viewer) identityLookup {
	role := viewer.Role.Opposite()
	return func(ctx context.Context, participantID string) (*domain.Identity, error) {
		id, err := strconv.ParseInt(participantID, 10, 64)
		if err != nil {
			return nil, nil
		}
		return s.store.GetIdentity(ctx, role, id)
	}
}

// partition groups messages by conversation. messages must be in id order.
func partition(messages []domain.Message) (map[int64][]domain.Message, []int64) {
	groups := make(map[int64][]domain.Message)
	var order []int64
	for _, m := range messages {
		if _, seen := groups[m.ConversationID]; !seen {
			order = append(order, m.ConversationID)
		}
		groups[m.ConversationID] = append(groups[m.ConversationID], m)
	}
	return groups, order
}

// resolveCounterparty returns the first sender that is neither the viewer nor
// the server, else the first such receiver. Empty means unresolved.
func resolveCounterparty(msgs []domain.Message, viewerKey string) string {
	for _, m := range msgs {
		if m.Sender != viewerKey && m.Sender != domain.SenderServer {
			return m.Sender
		}
	}
	for _, m := range msgs {
		if m.ReceiverID != "" && m.ReceiverID != viewerKey && m.ReceiverID != domain.SenderServer {
			return m.ReceiverID
		}
	}
	return ""
}

// describe resolves the counterparty and its display label.
func describe(ctx context.Context, conversationID int64, msgs []domain.Message, viewer domain.Viewer, lookup identityLookup) (string, string, error) {
	fallback := fmt.Sprintf("Conversation %d", conversationID)
	counterpartyID := resolveCounterparty(msgs, viewer.Key())
	if counterpartyID == "" {
		return "", fallback, nil
	}
	ident, err := lookup(ctx, counterpartyID)
	if err != nil {
		return "", "", fmt.Errorf("failed to look up counterparty %s: %w", counterpartyID, err)
	}
	if ident == nil || ident.DisplayName() == "" {
		return counterpartyID, fallback, nil
	}
	return counterpartyID, ident.DisplayName(), nil
}

func transcript(msgs []domain.Message, viewer domain.Viewer) []domain.TranscriptEntry {
	key := viewer.Key()
	entries := make([]domain.TranscriptEntry, len(msgs))
	for i, m := range msgs {
		entries[i] = domain.TranscriptEntry{
			Text:      m.Text,
			Timestamp: m.Timestamp,
			Sender:    m.Sender,
			IsOwn:     m.Sender == key,
		}
	}
	return entries
}
