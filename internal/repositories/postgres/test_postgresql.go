package postgres

import (
	"context"

	"github.com/SAP-F-2025/answer-engine/internal/models"
	"github.com/SAP-F-2025/answer-engine/internal/repositories"
	"gorm.io/gorm"
)

type TestPostgreSQL struct {
	db *gorm.DB
}

func NewTestPostgreSQL(db *gorm.DB) repositories.TestRepository {
	return &TestPostgreSQL{
		db: db,
	}
}

func (t TestPostgreSQL) GetByID(ctx context.Context, id string) (*models.TestDescriptor, error) {
	var test models.TestDescriptor
	if err := t.db.WithContext(ctx).Where("id = ?", id).First(&test).Error; err != nil {
		return nil, err
	}

	return &test, nil
}
