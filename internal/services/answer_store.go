package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/answer-engine/internal/answerkey"
	"github.com/SAP-F-2025/answer-engine/internal/cache"
	"github.com/SAP-F-2025/answer-engine/internal/models"
)

const answerStateKeyPrefix = "test_answers:"

// AnswerStateKey is the storage key of the in-progress answers of a test.
func AnswerStateKey(testID string) string {
	return answerStateKeyPrefix + testID
}

// AnswerStore keeps the learner's answers for one test in memory and mirrors
// every change to the cache so a reload can restore them.
// Not safe for concurrent use: a session only touches it from its event loop.
type AnswerStore struct {
	cache   cache.CacheService
	testID  string
	ttl     time.Duration
	logger  *slog.Logger
	answers models.AnswerState
	options answerkey.OptionSet
}

func NewAnswerStore(c cache.CacheService, testID string, ttl time.Duration, logger *slog.Logger) *AnswerStore {
	return &AnswerStore{
		cache:   c,
		testID:  testID,
		ttl:     ttl,
		logger:  logger.With("test_id", testID),
		answers: models.AnswerState{},
		options: answerkey.DefaultOptionSet(),
	}
}

// Load replaces the in-memory answers with the persisted ones. Missing,
// unreadable or corrupt records load as empty.
func (s *AnswerStore) Load(ctx context.Context) models.AnswerState {
	var stored models.AnswerState
	err := s.cache.Get(ctx, AnswerStateKey(s.testID), &stored)
	switch {
	case err == nil:
	case errors.Is(err, cache.ErrCacheMiss):
		stored = nil
	case errors.Is(err, cache.ErrCorruptEntry):
		s.logger.Warn("Discarding corrupt saved answers", "error", err)
		if delErr := s.cache.Delete(ctx, AnswerStateKey(s.testID)); delErr != nil {
			s.logger.Warn("Failed to remove corrupt saved answers", "error", delErr)
		}
		stored = nil
	default:
		s.logger.Warn("Failed to load saved answers", "error", err)
		stored = nil
	}

	answers := make(models.AnswerState, len(stored))
	for question, option := range stored {
		if question >= 1 && option != "" {
			answers[question] = option
		}
	}
	s.answers = answers
	return answers.Clone()
}

// Set records option for question. Options outside the live set and
// non-positive question numbers are rejected and nothing changes.
func (s *AnswerStore) Set(ctx context.Context, question int, option answerkey.Option) bool {
	if question < 1 || !s.options.Contains(option) {
		return false
	}
	if current, ok := s.answers[question]; ok && current == option {
		return true
	}

	s.answers[question] = option
	s.persist(ctx)
	return true
}

// Reconcile installs a new option set and drops every answer that is no
// longer valid under it. It returns the dropped question numbers.
func (s *AnswerStore) Reconcile(ctx context.Context, options answerkey.OptionSet) []int {
	s.options = append(answerkey.OptionSet(nil), options...)

	removed := s.answers.Prune(s.options)
	if len(removed) > 0 {
		s.persist(ctx)
	}
	return removed
}

// Clear empties the answers and removes the persisted record.
func (s *AnswerStore) Clear(ctx context.Context) error {
	s.answers = models.AnswerState{}
	return DiscardSavedAnswers(ctx, s.cache, s.testID)
}

// Reset empties the in-memory answers only; the persisted record survives.
func (s *AnswerStore) Reset() {
	s.answers = models.AnswerState{}
}

func (s *AnswerStore) Snapshot() models.AnswerState {
	return s.answers.Clone()
}

func (s *AnswerStore) Options() answerkey.OptionSet {
	return append(answerkey.OptionSet(nil), s.options...)
}

func (s *AnswerStore) Count() int {
	return len(s.answers)
}

// CountWithin counts answers to questions 1..total.
func (s *AnswerStore) CountWithin(total int) int {
	n := 0
	for question := range s.answers {
		if question <= total {
			n++
		}
	}
	return n
}

func (s *AnswerStore) persist(ctx context.Context) {
	if err := s.cache.Set(ctx, AnswerStateKey(s.testID), s.answers, s.ttl); err != nil {
		s.logger.Warn("Failed to persist answers", "error", err)
	}
}

// DiscardSavedAnswers removes the persisted answers of a test. Safe to call
// from any goroutine.
func DiscardSavedAnswers(ctx context.Context, c cache.CacheService, testID string) error {
	return c.Delete(ctx, AnswerStateKey(testID))
}
