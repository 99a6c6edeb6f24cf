package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xiaot623/gogo/marketplace/internal/domain"
	"github.com/xiaot623/gogo/marketplace/internal/repository"
)

// Authorizer decides whether a viewer may perform an action.
type Authorizer interface {
	Allowed(ctx context.Context, viewer domain.Viewer, action domain.Action) (bool, error)
}

// EventPublisher ships message events out of the process.
type EventPublisher interface {
	PublishMessage(ctx context.Context, event domain.MessageEvent)
}

// Notifier pushes a payload to the live connections of participants.
type Notifier interface {
	Notify(participantIDs []string, v any) error
}

// Predictor asks the role-prediction model for matching roles.
type Predictor interface {
	Predict(ctx context.Context, req domain.PredictionRequest) (*domain.PredictionResult, error)
}

// PredictionLog keeps predictions until they are drained.
type PredictionLog interface {
	Append(result *domain.PredictionResult) (domain.PredictionEntry, error)
	Drain() ([]domain.PredictionEntry, error)
}

type Service struct {
	store         store.Store
	authorizer    Authorizer
	publisher     EventPublisher
	notifier      Notifier
	predictor     Predictor
	predictionLog PredictionLog
	logger        *slog.Logger
	now           func() time.Time
}

func New(store store.Store, authorizer Authorizer, publisher EventPublisher, notifier Notifier, predictor Predictor, predictionLog PredictionLog, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:         store,
		authorizer:    authorizer,
		publisher:     publisher,
		notifier:      notifier,
		predictor:     predictor,
		predictionLog: predictionLog,
		logger:        logger,
		now:           time.Now,
	}
}

// SetClock replaces the time source used for message timestamps.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// authorize runs before any write or read on behalf of a viewer.
func (s *Service) authorize(ctx context.Context, viewer domain.Viewer, action domain.Action) error {
	if !viewer.Role.Valid() || viewer.ID <= 0 {
		return fmt.Errorf("%w: invalid viewer", domain.ErrUnauthorized)
	}
	allowed, err := s.authorizer.Allowed(ctx, viewer, action)
	if err != nil {
		return fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if !allowed {
		return fmt.Errorf("%w: %s may not %s", domain.ErrUnauthorized, viewer.Role, action)
	}
	return nil
}

func (s *Service) stamp() (string, time.Time) {
	t := s.now()
	return t.Format(domain.TimestampLayout), t
}

// emit announces a message written on behalf of viewer to the viewer and, under
// the opposite role, to the receiver. Delivery problems are logged, never returned.
func (s *Service) emit(ctx context.Context, viewer domain.Viewer, msg domain.Message) {
	event := domain.MessageEvent{Type: domain.EventTypeMessageCreated, Message: msg}
	if s.publisher != nil {
		s.publisher.PublishMessage(ctx, event)
	}
	if s.notifier == nil {
		return
	}

	recipients := []string{viewer.Participant()}
	if msg.ReceiverID != "" {
		recipients = append(recipients, domain.ParticipantKey(viewer.Role.Opposite(), msg.ReceiverID))
	}
	if err := s.notifier.Notify(recipients, event); err != nil {
		s.logger.Warn("failed to notify participants", "error", err, "message_id", msg.ID)
	}
}
