package repositories

import (
	"context"
	"errors"

	"github.com/SAP-F-2025/answer-engine/internal/models"
	"gorm.io/gorm"
)

// Repository groups the stores the engine reads from and writes to
type Repository interface {
	AnswerKey() AnswerKeyRepository
	Test() TestRepository
	SubmissionReceipt() SubmissionReceiptRepository
}

// AnswerKeyRepository interface for answer key operations
type AnswerKeyRepository interface {
	// ListByTest returns every entry of the test ordered by question number, highest first
	ListByTest(ctx context.Context, testID string) ([]*models.AnswerKeyEntry, error)

	// ReplaceForTest swaps the whole answer key of a test in one transaction
	ReplaceForTest(ctx context.Context, testID string, entries []*models.AnswerKeyEntry) error
}

// TestRepository interface for test descriptor lookups
type TestRepository interface {
	GetByID(ctx context.Context, id string) (*models.TestDescriptor, error)
}

// SubmissionReceiptRepository interface for local submission records
type SubmissionReceiptRepository interface {
	Create(ctx context.Context, receipt *models.SubmissionReceipt) error
	GetByAttemptID(ctx context.Context, attemptID string) (*models.SubmissionReceipt, error)
	ListByTest(ctx context.Context, testID string, limit int) ([]*models.SubmissionReceipt, error)
}

// IsNotFoundError checks if the error is a record-not-found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
