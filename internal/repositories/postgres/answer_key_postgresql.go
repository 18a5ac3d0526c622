package postgres

import (
	"context"

	"github.com/SAP-F-2025/answer-engine/internal/models"
	"github.com/SAP-F-2025/answer-engine/internal/repositories"
	"gorm.io/gorm"
)

type AnswerKeyPostgreSQL struct {
	db *gorm.DB
}

func NewAnswerKeyPostgreSQL(db *gorm.DB) repositories.AnswerKeyRepository {
	return &AnswerKeyPostgreSQL{
		db: db,
	}
}

func (a AnswerKeyPostgreSQL) ListByTest(ctx context.Context, testID string) ([]*models.AnswerKeyEntry, error) {
	var entries []*models.AnswerKeyEntry
	if err := a.db.WithContext(ctx).
		Where("test_id = ?", testID).
		Order("question_number DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}

	return entries, nil
}

func (a AnswerKeyPostgreSQL) ReplaceForTest(ctx context.Context, testID string, entries []*models.AnswerKeyEntry) error {
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("test_id = ?", testID).Delete(&models.AnswerKeyEntry{}).Error; err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		for _, entry := range entries {
			entry.TestID = testID
		}
		return tx.Create(&entries).Error
	})
}
