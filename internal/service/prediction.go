package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xiaot623/gogo/marketplace/internal/domain"
	"github.com/xiaot623/gogo/marketplace/internal/predictionlog"
)

const defaultTopN = 3

// PredictRoles forwards a need statement to the model and records the answer.
func (s *Service) PredictRoles(ctx context.Context, viewer domain.Viewer, req domain.PredictionRequest) (*domain.PredictionResult, error) {
	if err := s.authorize(ctx, viewer, domain.ActionRolesPredict); err != nil {
		return nil, err
	}
	req.NeedStatement = strings.TrimSpace(req.NeedStatement)
	if req.NeedStatement == "" {
		return nil, domain.NewValidationError("need_statement", "must not be empty")
	}
	if req.TopN <= 0 {
		req.TopN = defaultTopN
	}

	result, err := s.predictor.Predict(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to predict roles: %w", err)
	}

	if _, err := s.predictionLog.Append(result); err != nil {
		s.logger.Warn("failed to record prediction", "error", err)
	}
	return result, nil
}

// DrainPredictions returns recorded predictions and clears them.
func (s *Service) DrainPredictions(ctx context.Context, viewer domain.Viewer) ([]domain.PredictionEntry, error) {
	if err := s.authorize(ctx, viewer, domain.ActionRolesDrain); err != nil {
		return nil, err
	}
	entries, err := s.predictionLog.Drain()
	if errors.Is(err, predictionlog.ErrMissing) {
		return nil, fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to drain predictions: %w", err)
	}
	return entries, nil
}
