package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/answer-engine/internal/models"
	"github.com/SAP-F-2025/answer-engine/internal/repositories"
	"github.com/stretchr/testify/mock"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

// MockAnswerKeyRepository is a mock implementation of AnswerKeyRepository
type MockAnswerKeyRepository struct {
	mock.Mock
}

func (m *MockAnswerKeyRepository) ListByTest(ctx context.Context, testID string) ([]*models.AnswerKeyEntry, error) {
	args := m.Called(ctx, testID)
	entries, _ := args.Get(0).([]*models.AnswerKeyEntry)
	return entries, args.Error(1)
}

func (m *MockAnswerKeyRepository) ReplaceForTest(ctx context.Context, testID string, entries []*models.AnswerKeyEntry) error {
	args := m.Called(ctx, testID, entries)
	return args.Error(0)
}

// MockTestRepository is a mock implementation of TestRepository
type MockTestRepository struct {
	mock.Mock
}

func (m *MockTestRepository) GetByID(ctx context.Context, id string) (*models.TestDescriptor, error) {
	args := m.Called(ctx, id)
	test, _ := args.Get(0).(*models.TestDescriptor)
	return test, args.Error(1)
}

// MockSubmissionReceiptRepository is a mock implementation of SubmissionReceiptRepository
type MockSubmissionReceiptRepository struct {
	mock.Mock
}

func (m *MockSubmissionReceiptRepository) Create(ctx context.Context, receipt *models.SubmissionReceipt) error {
	args := m.Called(ctx, receipt)
	return args.Error(0)
}

func (m *MockSubmissionReceiptRepository) GetByAttemptID(ctx context.Context, attemptID string) (*models.SubmissionReceipt, error) {
	args := m.Called(ctx, attemptID)
	receipt, _ := args.Get(0).(*models.SubmissionReceipt)
	return receipt, args.Error(1)
}

func (m *MockSubmissionReceiptRepository) ListByTest(ctx context.Context, testID string, limit int) ([]*models.SubmissionReceipt, error) {
	args := m.Called(ctx, testID, limit)
	receipts, _ := args.Get(0).([]*models.SubmissionReceipt)
	return receipts, args.Error(1)
}

type mockRepository struct {
	answerKeys *MockAnswerKeyRepository
	tests      *MockTestRepository
	receipts   *MockSubmissionReceiptRepository
}

func (m *mockRepository) AnswerKey() repositories.AnswerKeyRepository { return m.answerKeys }
func (m *mockRepository) Test() repositories.TestRepository           { return m.tests }
func (m *mockRepository) SubmissionReceipt() repositories.SubmissionReceiptRepository {
	return m.receipts
}

// MockSyncer is a mock implementation of AnswerKeySyncer
type MockSyncer struct {
	mock.Mock
}

func (m *MockSyncer) TriggerSync(ctx context.Context, testID string) error {
	args := m.Called(ctx, testID)
	return args.Error(0)
}

// MockGrader is a mock implementation of Grader
type MockGrader struct {
	mock.Mock
}

func (m *MockGrader) Submit(ctx context.Context, testID string, answers models.AnswerState) (*models.SubmissionResult, error) {
	args := m.Called(ctx, testID, answers)
	result, _ := args.Get(0).(*models.SubmissionResult)
	return result, args.Error(1)
}

// stubResolver returns queued resolutions in order, repeating the last one.
type stubResolver struct {
	mu          sync.Mutex
	resolutions []*Resolution
	calls       int
	gate        map[int]chan struct{}
}

func (r *stubResolver) Resolve(ctx context.Context, testID string) (*Resolution, error) {
	r.mu.Lock()
	call := r.calls
	r.calls++
	resolution := r.resolutions[len(r.resolutions)-1]
	if call < len(r.resolutions) {
		resolution = r.resolutions[call]
	}
	gate := r.gate[call]
	r.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return resolution, nil
}

// fakeSubscriber records the handler so tests can push changes by hand.
type fakeSubscriber struct {
	mu           sync.Mutex
	handlers     map[string]ChangeHandler
	unsubscribed int
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{handlers: make(map[string]ChangeHandler)}
}

func (f *fakeSubscriber) Subscribe(testID string, handler ChangeHandler) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[testID] = handler
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.handlers, testID)
		f.unsubscribed++
	}, nil
}

func (f *fakeSubscriber) handler(testID string) ChangeHandler {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handlers[testID]
}

// manualTicker delivers ticks only when the test says so.
type manualTicker struct {
	ch      chan time.Time
	stopped chan struct{}
	once    sync.Once
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time), stopped: make(chan struct{})}
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }
func (t *manualTicker) Stop()               { t.once.Do(func() { close(t.stopped) }) }

// Tick blocks until the countdown goroutine took the tick, reporting false
// if the ticker was stopped first.
func (t *manualTicker) Tick() bool {
	select {
	case t.ch <- time.Now():
		return true
	case <-t.stopped:
		return false
	}
}

func (t *manualTicker) Factory() TickerFactory {
	return func(time.Duration) Ticker { return t }
}
