package postgres

import (
	"context"

	"github.com/SAP-F-2025/answer-engine/internal/models"
	"github.com/SAP-F-2025/answer-engine/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubmissionReceiptPostgreSQL struct {
	db *gorm.DB
}

func NewSubmissionReceiptPostgreSQL(db *gorm.DB) repositories.SubmissionReceiptRepository {
	return &SubmissionReceiptPostgreSQL{
		db: db,
	}
}

// Create inserts the receipt; a receipt for the same attempt is left untouched
func (s SubmissionReceiptPostgreSQL) Create(ctx context.Context, receipt *models.SubmissionReceipt) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "attempt_id"}}, DoNothing: true}).
		Create(receipt).Error
}

func (s SubmissionReceiptPostgreSQL) GetByAttemptID(ctx context.Context, attemptID string) (*models.SubmissionReceipt, error) {
	var receipt models.SubmissionReceipt
	if err := s.db.WithContext(ctx).Where("attempt_id = ?", attemptID).First(&receipt).Error; err != nil {
		return nil, err
	}

	return &receipt, nil
}

func (s SubmissionReceiptPostgreSQL) ListByTest(ctx context.Context, testID string, limit int) ([]*models.SubmissionReceipt, error) {
	var receipts []*models.SubmissionReceipt

	query := s.db.WithContext(ctx).Where("test_id = ?", testID).Order("submitted_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&receipts).Error; err != nil {
		return nil, err
	}

	return receipts, nil
}
