package postgres

import (
	"github.com/SAP-F-2025/answer-engine/internal/models"
	"github.com/SAP-F-2025/answer-engine/internal/repositories"
	"gorm.io/gorm"
)

type repository struct {
	answerKey repositories.AnswerKeyRepository
	test      repositories.TestRepository
	receipt   repositories.SubmissionReceiptRepository
}

// NewRepository builds the gorm-backed repository set
func NewRepository(db *gorm.DB) repositories.Repository {
	return &repository{
		answerKey: NewAnswerKeyPostgreSQL(db),
		test:      NewTestPostgreSQL(db),
		receipt:   NewSubmissionReceiptPostgreSQL(db),
	}
}

func (r *repository) AnswerKey() repositories.AnswerKeyRepository {
	return r.answerKey
}

func (r *repository) Test() repositories.TestRepository {
	return r.test
}

func (r *repository) SubmissionReceipt() repositories.SubmissionReceiptRepository {
	return r.receipt
}

// AutoMigrate creates the tables owned by the engine. Tests and answer keys
// belong to the course administration side and are not migrated here.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.SubmissionReceipt{})
}
