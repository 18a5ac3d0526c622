package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/answer-engine/internal/cache"
	"github.com/SAP-F-2025/answer-engine/internal/events"
	"github.com/SAP-F-2025/answer-engine/internal/models"
	"github.com/SAP-F-2025/answer-engine/internal/repositories"
	"gorm.io/datatypes"
)

type SubmissionState string

const (
	SubmissionInProgress SubmissionState = "in_progress"
	SubmissionSubmitting SubmissionState = "submitting"
	SubmissionSubmitted  SubmissionState = "submitted"
)

type SubmitTrigger string

const (
	TriggerManual      SubmitTrigger = "manual"
	TriggerTimerExpiry SubmitTrigger = "timer_expiry"
)

type SubmitStatus string

const (
	SubmitStatusSubmitted SubmitStatus = "submitted"
	SubmitStatusDeclined  SubmitStatus = "declined"
	SubmitStatusIgnored   SubmitStatus = "ignored"
	SubmitStatusFailed    SubmitStatus = "failed"
	SubmitStatusAborted   SubmitStatus = "aborted"
)

// SubmitOutcome reports how one Submit request ended.
type SubmitOutcome struct {
	Status SubmitStatus             `json:"status"`
	Result *models.SubmissionResult `json:"result,omitempty"`
	Err    error                    `json:"-"`
}

// Grader sends answers to the grading endpoint.
type Grader interface {
	Submit(ctx context.Context, testID string, answers models.AnswerState) (*models.SubmissionResult, error)
}

type ConfirmationPrompt struct {
	TestID   string `json:"test_id"`
	Answered int    `json:"answered"`
	Total    int    `json:"total"`
}

// Confirmer asks the learner whether to submit an incomplete answer sheet.
// Confirm must return immediately; the answer arrives on the channel.
type Confirmer interface {
	Confirm(ctx context.Context, prompt ConfirmationPrompt) <-chan bool
}

// ConfirmFunc adapts a blocking function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt ConfirmationPrompt) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt ConfirmationPrompt) <-chan bool {
	reply := make(chan bool, 1)
	go func() {
		reply <- f(ctx, prompt)
	}()
	return reply
}

// AutoConfirm answers every prompt with the same fixed decision.
type AutoConfirm bool

func (a AutoConfirm) Confirm(ctx context.Context, prompt ConfirmationPrompt) <-chan bool {
	reply := make(chan bool, 1)
	reply <- bool(a)
	return reply
}

type SubmissionHooks struct {
	OnComplete func(attemptID string, score float64, passed bool)
	OnError    func(err error)
}

type SubmissionControllerConfig struct {
	SessionID     string
	TestID        string
	Store         *AnswerStore
	Cache         cache.CacheService
	Grader        Grader
	QuestionCount func() int
	Post          func(func()) bool
	Alive         func() bool
	Timeout       time.Duration
	Receipts      repositories.SubmissionReceiptRepository
	Publisher     events.EventPublisher
	Hooks         SubmissionHooks
	Logger        *slog.Logger
}

// SubmissionController guards the InProgress -> Submitting -> Submitted
// lifecycle so a test is graded at most once per successful attempt.
// Submit must be called on the event loop; the grading call itself runs on
// its own goroutine and reports back through Post.
type SubmissionController struct {
	cfg     SubmissionControllerConfig
	state   SubmissionState
	result  *models.SubmissionResult
	lastErr error
	logger  *slog.Logger
}

func NewSubmissionController(cfg SubmissionControllerConfig) *SubmissionController {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SubmissionController{
		cfg:    cfg,
		state:  SubmissionInProgress,
		logger: cfg.Logger.With("test_id", cfg.TestID, "session_id", cfg.SessionID),
	}
}

func (c *SubmissionController) State() SubmissionState {
	return c.state
}

func (c *SubmissionController) Result() *models.SubmissionResult {
	return c.result
}

func (c *SubmissionController) LastError() error {
	return c.lastErr
}

// Submit starts a submission. done is called exactly once, on the event
// loop, except for SubmitStatusAborted which may be reported from any goroutine.
func (c *SubmissionController) Submit(ctx context.Context, trigger SubmitTrigger, confirmer Confirmer, done func(SubmitOutcome)) {
	done = onceOutcome(done)

	if c.state != SubmissionInProgress {
		done(SubmitOutcome{Status: SubmitStatusIgnored})
		return
	}

	if trigger == TriggerManual {
		total := c.cfg.QuestionCount()
		answered := c.cfg.Store.CountWithin(total)
		if answered < total {
			c.awaitConfirmation(ctx, confirmer, ConfirmationPrompt{
				TestID:   c.cfg.TestID,
				Answered: answered,
				Total:    total,
			}, done)
			return
		}
	}

	c.begin(ctx, trigger, done)
}

func (c *SubmissionController) awaitConfirmation(ctx context.Context, confirmer Confirmer, prompt ConfirmationPrompt, done func(SubmitOutcome)) {
	if confirmer == nil {
		done(SubmitOutcome{Status: SubmitStatusDeclined})
		return
	}

	reply := confirmer.Confirm(ctx, prompt)
	go func() {
		var confirmed bool
		select {
		case confirmed = <-reply:
		case <-ctx.Done():
		}

		posted := c.cfg.Post(func() {
			if !c.cfg.Alive() {
				done(SubmitOutcome{Status: SubmitStatusAborted})
				return
			}
			if !confirmed {
				c.logger.Info("Incomplete submission declined",
					"answered", prompt.Answered,
					"total", prompt.Total)
				done(SubmitOutcome{Status: SubmitStatusDeclined})
				return
			}
			c.begin(ctx, TriggerManual, done)
		})
		if !posted {
			done(SubmitOutcome{Status: SubmitStatusAborted})
		}
	}()
}

func (c *SubmissionController) begin(ctx context.Context, trigger SubmitTrigger, done func(SubmitOutcome)) {
	if c.state != SubmissionInProgress {
		done(SubmitOutcome{Status: SubmitStatusIgnored})
		return
	}

	c.state = SubmissionSubmitting
	c.lastErr = nil
	answers := c.cfg.Store.Snapshot()
	total := c.cfg.QuestionCount()

	c.logger.Info("Submitting answers",
		"trigger", trigger,
		"answered", len(answers),
		"total", total)

	go func() {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Timeout)
		defer cancel()

		result, err := c.cfg.Grader.Submit(callCtx, c.cfg.TestID, answers)

		posted := c.cfg.Post(func() {
			if !c.cfg.Alive() {
				c.abandoned(result, err, done)
				return
			}
			c.finish(trigger, answers, total, result, err, done)
		})
		if !posted {
			c.abandoned(result, err, done)
		}
	}()
}

// abandoned handles a grading reply that arrives after the session is gone.
// Only the persisted answers are touched.
func (c *SubmissionController) abandoned(result *models.SubmissionResult, err error, done func(SubmitOutcome)) {
	if err == nil && result != nil {
		if delErr := DiscardSavedAnswers(context.Background(), c.cfg.Cache, c.cfg.TestID); delErr != nil {
			c.logger.Warn("Failed to discard saved answers after late submission", "error", delErr)
		}
		c.logger.Info("Submission completed after session closed", "attempt_id", result.AttemptID)
	}
	done(SubmitOutcome{Status: SubmitStatusAborted, Result: result, Err: err})
}

func (c *SubmissionController) finish(trigger SubmitTrigger, answers models.AnswerState, total int, result *models.SubmissionResult, err error, done func(SubmitOutcome)) {
	if err != nil || result == nil {
		if err == nil {
			err = ErrInternalError
		}
		c.state = SubmissionInProgress
		c.lastErr = err
		c.logger.Warn("Submission failed, answers kept for retry",
			"trigger", trigger,
			"error", err)
		if c.cfg.Hooks.OnError != nil {
			c.cfg.Hooks.OnError(err)
		}
		done(SubmitOutcome{Status: SubmitStatusFailed, Err: err})
		return
	}

	c.state = SubmissionSubmitted
	c.result = result
	if clearErr := c.cfg.Store.Clear(context.Background()); clearErr != nil {
		c.logger.Warn("Failed to clear saved answers", "error", clearErr)
	}

	c.record(trigger, answers, total, result)

	if c.cfg.Hooks.OnComplete != nil {
		c.cfg.Hooks.OnComplete(result.AttemptID, result.Score, result.Passed)
	}
	done(SubmitOutcome{Status: SubmitStatusSubmitted, Result: result})
}

// record stores a receipt and publishes the submission event off the loop.
func (c *SubmissionController) record(trigger SubmitTrigger, answers models.AnswerState, total int, result *models.SubmissionResult) {
	if c.cfg.Receipts == nil && c.cfg.Publisher == nil {
		return
	}

	submittedAt := time.Now().UTC()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
		defer cancel()

		if c.cfg.Receipts != nil {
			payload, err := json.Marshal(answers)
			if err != nil {
				c.logger.Warn("Failed to encode answers for receipt", "error", err)
			}
			receipt := &models.SubmissionReceipt{
				SessionID:   c.cfg.SessionID,
				TestID:      c.cfg.TestID,
				AttemptID:   result.AttemptID,
				Score:       result.Score,
				Passed:      result.Passed,
				Trigger:     string(trigger),
				Answers:     datatypes.JSON(payload),
				SubmittedAt: submittedAt,
			}
			if err := c.cfg.Receipts.Create(ctx, receipt); err != nil {
				c.logger.Warn("Failed to store submission receipt",
					"attempt_id", result.AttemptID,
					"error", err)
			}
		}

		if c.cfg.Publisher != nil {
			event := &events.AttemptSubmittedEvent{
				SessionID:     c.cfg.SessionID,
				TestID:        c.cfg.TestID,
				AttemptID:     result.AttemptID,
				Score:         result.Score,
				Passed:        result.Passed,
				Trigger:       string(trigger),
				AnsweredCount: len(answers),
				QuestionCount: total,
				SubmittedAt:   submittedAt,
			}
			if err := c.cfg.Publisher.PublishAttemptSubmitted(ctx, event); err != nil {
				c.logger.Warn("Failed to publish attempt submitted event",
					"attempt_id", result.AttemptID,
					"error", err)
			}
		}
	}()
}

func onceOutcome(done func(SubmitOutcome)) func(SubmitOutcome) {
	var once sync.Once
	return func(outcome SubmitOutcome) {
		once.Do(func() {
			if done != nil {
				done(outcome)
			}
		})
	}
}
