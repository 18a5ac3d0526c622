package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/answer-engine/internal/answerkey"
	"github.com/SAP-F-2025/answer-engine/internal/cache"
	"github.com/SAP-F-2025/answer-engine/internal/models"
	"github.com/SAP-F-2025/answer-engine/internal/repositories"
)

const questionCountKeyPrefix = "test_question_count:"

// QuestionCountKey is the storage key of the last known question count of a test.
func QuestionCountKey(testID string) string {
	return questionCountKeyPrefix + testID
}

// ResolutionSource tells where a resolved question count came from.
type ResolutionSource string

const (
	SourceAnswerKey   ResolutionSource = "answer_key"
	SourceCachedCount ResolutionSource = "cached_count"
	SourceDefault     ResolutionSource = "default"
)

// Resolution is the question count and option set in effect for a test.
type Resolution struct {
	QuestionCount int                 `json:"question_count"`
	Options       answerkey.OptionSet `json:"options"`
	Source        ResolutionSource    `json:"source"`
	ResolvedAt    time.Time           `json:"resolved_at"`
}

// AnswerKeySyncer asks the upstream system to refresh its stored answer key.
type AnswerKeySyncer interface {
	TriggerSync(ctx context.Context, testID string) error
}

type AnswerKeyResolver interface {
	// Resolve always produces a usable resolution. The only error it returns
	// is the context's own, when the caller gave up.
	Resolve(ctx context.Context, testID string) (*Resolution, error)
}

// QuestionCountStore persists the manually confirmed question count per test,
// so tests without an answer key keep the count the learner chose last time.
type QuestionCountStore struct {
	cache  cache.CacheService
	logger *slog.Logger
}

func NewQuestionCountStore(c cache.CacheService, logger *slog.Logger) *QuestionCountStore {
	return &QuestionCountStore{cache: c, logger: logger}
}

func (q *QuestionCountStore) Get(ctx context.Context, testID string) (int, bool) {
	var count int
	if err := q.cache.Get(ctx, QuestionCountKey(testID), &count); err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			q.logger.Warn("Failed to read cached question count", "test_id", testID, "error", err)
		}
		return 0, false
	}
	if count < 1 {
		return 0, false
	}
	return count, true
}

func (q *QuestionCountStore) Save(ctx context.Context, testID string, count int) error {
	return q.cache.Set(ctx, QuestionCountKey(testID), count, 0)
}

type answerKeyResolver struct {
	answerKeys   repositories.AnswerKeyRepository
	syncer       AnswerKeySyncer
	counts       *QuestionCountStore
	defaultCount int
	syncTimeout  time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

type ResolverConfig struct {
	AnswerKeys   repositories.AnswerKeyRepository
	Syncer       AnswerKeySyncer
	Counts       *QuestionCountStore
	DefaultCount int
	SyncTimeout  time.Duration
	Logger       *slog.Logger
}

func NewAnswerKeyResolver(cfg ResolverConfig) AnswerKeyResolver {
	if cfg.DefaultCount < 1 {
		cfg.DefaultCount = 10
	}
	if cfg.SyncTimeout <= 0 {
		cfg.SyncTimeout = 10 * time.Second
	}
	return &answerKeyResolver{
		answerKeys:   cfg.AnswerKeys,
		syncer:       cfg.Syncer,
		counts:       cfg.Counts,
		defaultCount: cfg.DefaultCount,
		syncTimeout:  cfg.SyncTimeout,
		logger:       cfg.Logger,
		now:          time.Now,
	}
}

func (r *answerKeyResolver) Resolve(ctx context.Context, testID string) (*Resolution, error) {
	r.triggerSync(ctx, testID)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := r.answerKeys.ListByTest(ctx, testID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		r.logger.Warn("Failed to load answer key, using fallback count",
			"test_id", testID,
			"error", err)
	} else if resolution := r.fromEntries(entries); resolution != nil {
		return resolution, nil
	}

	return r.fallback(ctx, testID), nil
}

func (r *answerKeyResolver) triggerSync(ctx context.Context, testID string) {
	if r.syncer == nil {
		return
	}

	syncCtx, cancel := context.WithTimeout(ctx, r.syncTimeout)
	defer cancel()

	if err := r.syncer.TriggerSync(syncCtx, testID); err != nil {
		r.logger.Warn("Answer key re-sync failed, continuing with stored key",
			"test_id", testID,
			"error", err)
	}
}

// fromEntries returns nil when the entries carry no usable question number.
func (r *answerKeyResolver) fromEntries(entries []*models.AnswerKeyEntry) *Resolution {
	maxQuestion := 0
	answers := make([]answerkey.Option, 0, len(entries))
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		if entry.QuestionNumber > maxQuestion {
			maxQuestion = entry.QuestionNumber
		}
		if option, ok := answerkey.Normalize(entry.CorrectAnswer); ok {
			answers = append(answers, option)
		}
	}
	if maxQuestion < 1 {
		return nil
	}

	return &Resolution{
		QuestionCount: maxQuestion,
		Options:       answerkey.DeriveOptionSet(answers),
		Source:        SourceAnswerKey,
		ResolvedAt:    r.now(),
	}
}

func (r *answerKeyResolver) fallback(ctx context.Context, testID string) *Resolution {
	resolution := &Resolution{
		QuestionCount: r.defaultCount,
		Options:       answerkey.DefaultOptionSet(),
		Source:        SourceDefault,
		ResolvedAt:    r.now(),
	}
	if r.counts != nil {
		if count, ok := r.counts.Get(ctx, testID); ok {
			resolution.QuestionCount = count
			resolution.Source = SourceCachedCount
		}
	}
	return resolution
}
