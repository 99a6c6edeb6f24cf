package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/xiaot623/gogo/marketplace/internal/domain"
)

// StartOrGetConversation returns the conversation already addressed to the
// freelancer, or opens a new one with a seed message from the client.
func (s *Service) StartOrGetConversation(ctx context.Context, viewer domain.Viewer, freelancerID int64) (int64, error) {
	if err := s.authorize(ctx, viewer, domain.ActionConversationStart); err != nil {
		return 0, err
	}
	if freelancerID <= 0 {
		return 0, domain.NewValidationError("freelancer_id", "must be positive")
	}

	freelancer, err := s.store.GetFreelancer(ctx, freelancerID)
	if err != nil {
		return 0, fmt.Errorf("failed to get freelancer: %w", err)
	}
	if freelancer == nil {
		return 0, fmt.Errorf("%w: freelancer %d", domain.ErrNotFound, freelancerID)
	}

	display, createdAt := s.stamp()
	seed := &domain.Message{
		Sender:     viewer.Key(),
		ReceiverID: strconv.FormatInt(freelancerID, 10),
		Text:       domain.SeedMessageText,
		Timestamp:  display,
		CreatedAt:  createdAt,
	}
	conversationID, created, err := s.store.StartConversation(ctx, seed)
	if err != nil {
		return 0, fmt.Errorf("failed to start conversation: %w", err)
	}

	if created {
		s.logger.Info("conversation started", "conversation_id", conversationID,
			"client_id", viewer.ID, "freelancer_id", freelancerID)
		s.emit(ctx, viewer, *seed)
	}
	return conversationID, nil
}
