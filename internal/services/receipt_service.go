package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/answer-engine/internal/models"
	"github.com/SAP-F-2025/answer-engine/internal/repositories"
)

const (
	DefaultReceiptLimit = 20
	MaxReceiptLimit     = 100
)

// ReceiptService reads the local submission receipts written after grading.
type ReceiptService struct {
	receipts repositories.SubmissionReceiptRepository
	logger   *slog.Logger
}

func NewReceiptService(receipts repositories.SubmissionReceiptRepository, logger *slog.Logger) *ReceiptService {
	return &ReceiptService{
		receipts: receipts,
		logger:   logger,
	}
}

func (s *ReceiptService) GetByAttempt(ctx context.Context, attemptID string) (*models.SubmissionReceipt, error) {
	receipt, err := s.receipts.GetByAttemptID(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get receipt for attempt %s: %w", attemptID, err)
	}
	return receipt, nil
}

// ListByTest returns the newest receipts of a test. A limit outside
// 1..MaxReceiptLimit falls back to DefaultReceiptLimit.
func (s *ReceiptService) ListByTest(ctx context.Context, testID string, limit int) ([]*models.SubmissionReceipt, error) {
	if limit < 1 || limit > MaxReceiptLimit {
		limit = DefaultReceiptLimit
	}

	receipts, err := s.receipts.ListByTest(ctx, testID, limit)
	if err != nil {
		s.logger.Error("Failed to list receipts", "test_id", testID, "error", err)
		return nil, fmt.Errorf("failed to list receipts for test %s: %w", testID, err)
	}
	return receipts, nil
}
