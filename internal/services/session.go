package services

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SAP-F-2025/answer-engine/internal/answerkey"
	"github.com/SAP-F-2025/answer-engine/internal/cache"
	"github.com/SAP-F-2025/answer-engine/internal/events"
	"github.com/SAP-F-2025/answer-engine/internal/models"
	"github.com/SAP-F-2025/answer-engine/internal/repositories"
	"github.com/google/uuid"
)

const (
	MinQuestionCount = 1
	MaxQuestionCount = 100

	sessionQueueSize = 256
)

// realtime change state while the first resolution is in flight
const (
	changesStarting int32 = iota
	changesMissed
	changesLive
)

// SessionDeps are the collaborators shared by every session.
type SessionDeps struct {
	Resolver      AnswerKeyResolver
	Cache         cache.CacheService
	Counts        *QuestionCountStore
	Realtime      ChangeSubscriber
	Grader        Grader
	Receipts      repositories.SubmissionReceiptRepository
	Publisher     events.EventPublisher
	NewTicker     TickerFactory
	AnswerTTL     time.Duration
	SubmitTimeout time.Duration
	Logger        *slog.Logger
}

type SessionOptions struct {
	OnComplete func(attemptID string, score float64, passed bool)
}

// Snapshot is a consistent view of a session at one point of its event loop.
type Snapshot struct {
	SessionID        string                   `json:"session_id"`
	TestID           string                   `json:"test_id"`
	Title            string                   `json:"title"`
	QuestionCount    int                      `json:"question_count"`
	Options          []string                 `json:"options"`
	Answers          models.AnswerState       `json:"answers"`
	AnsweredCount    int                      `json:"answered_count"`
	Source           ResolutionSource         `json:"source"`
	CountdownState   CountdownState           `json:"countdown_state"`
	RemainingSeconds *int                     `json:"remaining_seconds,omitempty"`
	RemainingDisplay string                   `json:"remaining_display,omitempty"`
	TimeWarning      bool                     `json:"time_warning"`
	SubmissionState  SubmissionState          `json:"submission_state"`
	Result           *models.SubmissionResult `json:"result,omitempty"`
	LastError        string                   `json:"last_error,omitempty"`
	Closed           bool                     `json:"closed"`
}

// Session is one learner working through one test. All of its state is
// owned by a dispatcher goroutine; the exported methods marshal work onto it.
type Session struct {
	id     string
	test   models.TestDescriptor
	deps   SessionDeps
	opts   SessionOptions
	logger *slog.Logger

	ctx        context.Context
	cancel     context.CancelFunc
	dispatcher *Dispatcher
	closing    atomic.Bool
	closeOnce  sync.Once
	resolveSeq atomic.Uint64
	changes    atomic.Int32

	// owned by the event loop
	closed        bool
	appliedSeq    uint64
	questionCount int
	source        ResolutionSource
	store         *AnswerStore
	countdown     *Countdown
	submission    *SubmissionController
	unsubscribe   func()
	watchers      map[uint64]func(Snapshot)
	nextWatcher   uint64
	lastActive    time.Time
	finishedAt    time.Time
}

// sessionActivity is what eviction looks at.
type sessionActivity struct {
	lastActive time.Time
	finishedAt time.Time
	watchers   int
	busy       bool
}

// StartSession subscribes to answer-key changes, resolves the answer key,
// restores saved answers and starts the countdown. A change that lands while
// the first resolution is in flight triggers one more resolution.
func StartSession(ctx context.Context, test *models.TestDescriptor, deps SessionDeps, opts SessionOptions) (*Session, error) {
	id := uuid.NewString()
	logger := deps.Logger.With("session_id", id, "test_id", test.ID)

	sessionCtx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:         id,
		test:       *test,
		deps:       deps,
		opts:       opts,
		logger:     logger,
		ctx:        sessionCtx,
		cancel:     cancel,
		dispatcher: NewDispatcher(sessionQueueSize, logger),
		watchers:   make(map[uint64]func(Snapshot)),
	}
	s.store = NewAnswerStore(deps.Cache, test.ID, deps.AnswerTTL, logger)
	s.countdown = NewCountdown(test.DurationMinutes, s.onTick, s.onExpire)
	s.submission = NewSubmissionController(SubmissionControllerConfig{
		SessionID:     id,
		TestID:        test.ID,
		Store:         s.store,
		Cache:         deps.Cache,
		Grader:        deps.Grader,
		QuestionCount: func() int { return s.questionCount },
		Post:          s.dispatcher.Post,
		Alive:         func() bool { return !s.closed },
		Timeout:       deps.SubmitTimeout,
		Receipts:      deps.Receipts,
		Publisher:     deps.Publisher,
		Hooks: SubmissionHooks{
			OnComplete: s.onComplete,
			OnError:    func(error) { s.notify() },
		},
		Logger: logger,
	})
	go s.dispatcher.Run()

	unsubscribe := sync.OnceFunc(s.subscribe())

	seq := s.resolveSeq.Add(1)
	resolution, err := deps.Resolver.Resolve(ctx, test.ID)
	if err != nil {
		unsubscribe()
		s.shutdown()
		return nil, err
	}

	err = s.dispatcher.Call(ctx, func() {
		s.unsubscribe = unsubscribe
		s.lastActive = time.Now()
		restored := s.store.Load(s.ctx)
		s.apply(resolution, seq)
		s.countdown.Start(s.dispatcher.Post, deps.NewTicker)
		logger.Info("Session started",
			"question_count", s.questionCount,
			"options", s.store.Options().String(),
			"restored_answers", len(restored),
			"source", resolution.Source)
	})
	if err != nil {
		unsubscribe()
		s.Close()
		return nil, err
	}

	if s.changes.Swap(changesLive) == changesMissed {
		s.logger.Info("Answer key changed during start, resolving again")
		if err := s.refresh(ctx); err != nil {
			s.logger.Warn("Failed to apply answer key change", "error", err)
		}
	}
	return s, nil
}

// subscribe registers for answer-key changes. The returned function always
// releases whatever was registered.
func (s *Session) subscribe() func() {
	if s.deps.Realtime == nil {
		return func() {}
	}

	unsubscribe, err := s.deps.Realtime.Subscribe(s.test.ID, s.onAnswerKeyChanged)
	if err != nil {
		s.logger.Warn("Realtime answer key updates unavailable", "error", err)
		return func() {}
	}
	return unsubscribe
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Test() models.TestDescriptor {
	return s.test
}

// Select records the learner's choice. It reports false when the option is
// not part of the current option set or the question is past the last one.
func (s *Session) Select(ctx context.Context, question int, option answerkey.Option) (bool, error) {
	var (
		accepted bool
		opErr    error
	)
	err := s.dispatcher.Call(ctx, func() {
		if opErr = s.editable(); opErr != nil {
			return
		}
		s.lastActive = time.Now()
		if question > s.questionCount {
			return
		}
		accepted = s.store.Set(s.ctx, question, option)
		if accepted {
			s.notify()
		}
	})
	if err != nil {
		return false, s.loopErr(err)
	}
	return accepted, opErr
}

// SetQuestionCount overrides the question count and remembers it for the
// next session on this test. It only applies until an answer key resolves.
func (s *Session) SetQuestionCount(ctx context.Context, count int) error {
	if count < MinQuestionCount || count > MaxQuestionCount {
		return ErrInvalidQuestionCount
	}

	var opErr error
	err := s.dispatcher.Call(ctx, func() {
		if opErr = s.editable(); opErr != nil {
			return
		}
		s.lastActive = time.Now()
		if s.deps.Counts != nil {
			if err := s.deps.Counts.Save(s.ctx, s.test.ID, count); err != nil {
				s.logger.Warn("Failed to save question count", "error", err)
			}
		}
		s.questionCount = count
		s.notify()
	})
	if err != nil {
		return s.loopErr(err)
	}
	return opErr
}

// Refresh re-resolves the answer key and applies the result.
func (s *Session) Refresh(ctx context.Context) (*Snapshot, error) {
	if err := s.refresh(ctx); err != nil {
		return nil, err
	}
	return s.Snapshot(ctx)
}

func (s *Session) refresh(ctx context.Context) error {
	if s.closing.Load() {
		return ErrSessionClosed
	}

	seq := s.resolveSeq.Add(1)
	resolution, err := s.deps.Resolver.Resolve(ctx, s.test.ID)
	if err != nil {
		return err
	}

	err = s.dispatcher.Call(ctx, func() {
		if s.closed {
			return
		}
		s.apply(resolution, seq)
	})
	return s.loopErr(err)
}

// apply installs a resolution unless a newer one already landed.
func (s *Session) apply(resolution *Resolution, seq uint64) {
	if seq < s.appliedSeq {
		s.logger.Debug("Discarding stale answer key resolution", "seq", seq, "applied", s.appliedSeq)
		return
	}
	s.appliedSeq = seq
	s.questionCount = resolution.QuestionCount
	s.source = resolution.Source

	if removed := s.store.Reconcile(s.ctx, resolution.Options); len(removed) > 0 {
		s.logger.Info("Dropped answers no longer valid for the answer key",
			"questions", removed,
			"options", resolution.Options.String())
	}
	s.notify()
}

func (s *Session) onAnswerKeyChanged(event *events.AnswerKeyChangedEvent) {
	if s.closing.Load() {
		return
	}
	if s.changes.CompareAndSwap(changesStarting, changesMissed) || s.changes.Load() == changesMissed {
		return
	}
	s.logger.Info("Answer key changed", "change_type", event.ChangeType)

	go func() {
		if err := s.refresh(s.ctx); err != nil && !s.closing.Load() {
			s.logger.Warn("Failed to apply answer key change", "error", err)
		}
	}()
}

func (s *Session) onTick(int) {
	s.notify()
}

func (s *Session) onExpire() {
	s.logger.Info("Time is up, submitting automatically", "answered", s.store.Count())
	s.submission.Submit(s.ctx, TriggerTimerExpiry, nil, func(outcome SubmitOutcome) {
		if outcome.Status == SubmitStatusFailed {
			s.logger.Warn("Automatic submission failed", "error", outcome.Err)
		}
	})
	s.notify()
}

func (s *Session) onComplete(attemptID string, score float64, passed bool) {
	s.finishedAt = time.Now()
	s.countdown.Stop()
	s.notify()
	if s.opts.OnComplete != nil {
		s.opts.OnComplete(attemptID, score, passed)
	}
}

// Submit runs a submission and waits for its outcome. A manual submit with
// unanswered questions asks confirmer first.
func (s *Session) Submit(ctx context.Context, trigger SubmitTrigger, confirmer Confirmer) (*SubmitOutcome, error) {
	outcomes := make(chan SubmitOutcome, 1)
	done := func(outcome SubmitOutcome) {
		outcomes <- outcome
	}

	err := s.dispatcher.Call(ctx, func() {
		if s.closed {
			done(SubmitOutcome{Status: SubmitStatusAborted, Err: ErrSessionClosed})
			return
		}
		s.lastActive = time.Now()
		s.submission.Submit(ctx, trigger, confirmer, done)
		s.notify()
	})
	if err != nil {
		return nil, s.loopErr(err)
	}

	select {
	case outcome := <-outcomes:
		return &outcome, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Session) Snapshot(ctx context.Context) (*Snapshot, error) {
	var snapshot Snapshot
	if err := s.dispatcher.Call(ctx, func() {
		s.lastActive = time.Now()
		snapshot = s.snapshot()
	}); err != nil {
		return nil, s.loopErr(err)
	}
	return &snapshot, nil
}

// Watch registers fn to receive a snapshot after every state change, starting
// with the current one. fn runs on the event loop and must not block. The
// returned function unregisters it. A closed session returns ErrSessionClosed.
func (s *Session) Watch(ctx context.Context, fn func(Snapshot)) (func(), error) {
	var (
		id    uint64
		opErr error
	)
	err := s.dispatcher.Call(ctx, func() {
		if s.closed {
			opErr = ErrSessionClosed
			return
		}
		s.lastActive = time.Now()
		s.nextWatcher++
		id = s.nextWatcher
		s.watchers[id] = fn
		fn(s.snapshot())
	})
	if err != nil {
		return nil, s.loopErr(err)
	}
	if opErr != nil {
		return nil, opErr
	}

	return func() {
		s.dispatcher.Post(func() {
			delete(s.watchers, id)
			s.lastActive = time.Now()
		})
	}, nil
}

func (s *Session) activity(ctx context.Context) (sessionActivity, error) {
	var a sessionActivity
	err := s.dispatcher.Call(ctx, func() {
		a = sessionActivity{
			lastActive: s.lastActive,
			finishedAt: s.finishedAt,
			watchers:   len(s.watchers),
			busy: s.countdown.State() == CountdownRunning ||
				s.submission.State() == SubmissionSubmitting,
		}
	})
	return a, s.loopErr(err)
}

// Close tears the session down: the countdown stops, the subscription is
// released and in-memory answers are dropped. Saved answers stay in storage
// so a later session on the same test can restore them.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closing.Store(true)
		if err := s.dispatcher.Call(context.Background(), s.teardown); err != nil {
			s.logger.Debug("Session loop already stopped", "error", err)
		}
		s.shutdown()
		s.logger.Info("Session closed")
	})
}

func (s *Session) shutdown() {
	s.dispatcher.Stop()
	s.cancel()
}

func (s *Session) teardown() {
	if s.closed {
		return
	}
	s.closed = true
	s.countdown.Stop()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.store.Reset()
	s.notify()
	s.watchers = make(map[uint64]func(Snapshot))
}

func (s *Session) editable() error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.submission.State() != SubmissionInProgress {
		return ErrAnswersLocked
	}
	return nil
}

func (s *Session) loopErr(err error) error {
	if err == ErrDispatcherStopped {
		return ErrSessionClosed
	}
	return err
}

func (s *Session) notify() {
	if len(s.watchers) == 0 {
		return
	}
	snapshot := s.snapshot()
	for _, fn := range s.watchers {
		fn(snapshot)
	}
}

func (s *Session) snapshot() Snapshot {
	snapshot := Snapshot{
		SessionID:       s.id,
		TestID:          s.test.ID,
		Title:           s.test.Title,
		QuestionCount:   s.questionCount,
		Options:         s.store.Options().Strings(),
		Answers:         s.store.Snapshot(),
		AnsweredCount:   s.store.CountWithin(s.questionCount),
		Source:          s.source,
		CountdownState:  s.countdown.State(),
		SubmissionState: s.submission.State(),
		Result:          s.submission.Result(),
		Closed:          s.closed,
	}
	if s.countdown.Configured() {
		remaining := s.countdown.Remaining()
		snapshot.RemainingSeconds = &remaining
		snapshot.RemainingDisplay = FormatRemaining(remaining)
		snapshot.TimeWarning = time.Duration(remaining)*time.Second < WarningThreshold
	}
	if err := s.submission.LastError(); err != nil {
		snapshot.LastError = err.Error()
	}
	return snapshot
}
