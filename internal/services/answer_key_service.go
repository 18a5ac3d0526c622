package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/answer-engine/internal/answerkey"
	"github.com/SAP-F-2025/answer-engine/internal/events"
	"github.com/SAP-F-2025/answer-engine/internal/models"
	"github.com/SAP-F-2025/answer-engine/internal/repositories"
)

// AnswerKeySyncResult summarizes one import of an answer-key document.
type AnswerKeySyncResult struct {
	TestID    string                  `json:"test_id"`
	Updated   bool                    `json:"updated"`
	Questions int                     `json:"questions"`
	Entries   []answerkey.ParsedEntry `json:"entries"`
}

// AnswerKeyService maintains stored answer keys and announces their changes.
type AnswerKeyService struct {
	answerKeys repositories.AnswerKeyRepository
	tests      repositories.TestRepository
	publisher  events.EventPublisher
	logger     *slog.Logger
}

func NewAnswerKeyService(repo repositories.Repository, publisher events.EventPublisher, logger *slog.Logger) *AnswerKeyService {
	return &AnswerKeyService{
		answerKeys: repo.AnswerKey(),
		tests:      repo.Test(),
		publisher:  publisher,
		logger:     logger,
	}
}

// SyncFromText parses the GABARITO section of a document and replaces the
// stored answer key when it differs.
func (s *AnswerKeyService) SyncFromText(ctx context.Context, testID, content string) (*AnswerKeySyncResult, error) {
	if _, err := s.tests.GetByID(ctx, testID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to load test %s: %w", testID, err)
	}

	parsed := answerkey.ParseText(content)
	if len(parsed) == 0 {
		return nil, ErrAnswerKeyNotFound
	}

	current, err := s.answerKeys.ListByTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to load answer key: %w", err)
	}

	result := &AnswerKeySyncResult{
		TestID:    testID,
		Questions: len(parsed),
		Entries:   parsed,
	}
	if sameAnswerKey(current, parsed) {
		s.logger.Debug("Answer key unchanged", "test_id", testID, "questions", len(parsed))
		return result, nil
	}

	entries := make([]*models.AnswerKeyEntry, 0, len(parsed))
	for _, p := range parsed {
		answer := string(p.CorrectAnswer)
		points := p.Points
		entries = append(entries, &models.AnswerKeyEntry{
			TestID:         testID,
			QuestionNumber: p.QuestionNumber,
			CorrectAnswer:  &answer,
			Points:         &points,
		})
	}
	if err := s.answerKeys.ReplaceForTest(ctx, testID, entries); err != nil {
		return nil, fmt.Errorf("failed to replace answer key: %w", err)
	}
	result.Updated = true

	s.logger.Info("Answer key replaced", "test_id", testID, "questions", len(parsed))
	s.announce(ctx, &events.AnswerKeyChangedEvent{TestID: testID, ChangeType: models.AnswerKeyUpdated})
	return result, nil
}

// RelayChange forwards a row-level change reported by the database side.
func (s *AnswerKeyService) RelayChange(ctx context.Context, event *events.AnswerKeyChangedEvent) error {
	if event.TestID == "" {
		return NewValidationError("test_id", "test_id is required", event.TestID)
	}
	switch event.ChangeType {
	case models.AnswerKeyInserted, models.AnswerKeyUpdated, models.AnswerKeyDeleted:
	default:
		return NewValidationError("change_type", "change_type must be insert, update or delete", event.ChangeType)
	}

	if err := s.publisher.PublishAnswerKeyChanged(ctx, event); err != nil {
		return fmt.Errorf("failed to publish answer key change: %w", err)
	}
	return nil
}

func (s *AnswerKeyService) announce(ctx context.Context, event *events.AnswerKeyChangedEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishAnswerKeyChanged(ctx, event); err != nil {
		s.logger.Warn("Failed to publish answer key change",
			"test_id", event.TestID,
			"error", err)
	}
}

func sameAnswerKey(current []*models.AnswerKeyEntry, parsed []answerkey.ParsedEntry) bool {
	if len(current) != len(parsed) {
		return false
	}

	stored := make(map[int]answerkey.Option, len(current))
	for _, entry := range current {
		option, _ := answerkey.Normalize(entry.CorrectAnswer)
		stored[entry.QuestionNumber] = option
	}
	for _, p := range parsed {
		option, ok := stored[p.QuestionNumber]
		if !ok || option != p.CorrectAnswer {
			return false
		}
	}
	return true
}
