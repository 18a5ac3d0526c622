package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SAP-F-2025/answer-engine/internal/answerkey"
	"github.com/SAP-F-2025/answer-engine/internal/cache"
	"github.com/SAP-F-2025/answer-engine/internal/events"
	"github.com/SAP-F-2025/answer-engine/internal/models"
	"github.com/SAP-F-2025/answer-engine/internal/repositories"
	"github.com/SAP-F-2025/answer-engine/internal/services"
	"github.com/SAP-F-2025/answer-engine/internal/utils"
	"github.com/SAP-F-2025/answer-engine/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTestRepository struct {
	mock.Mock
}

func (m *MockTestRepository) GetByID(ctx context.Context, id string) (*models.TestDescriptor, error) {
	args := m.Called(ctx, id)
	test, _ := args.Get(0).(*models.TestDescriptor)
	return test, args.Error(1)
}

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

// fixedResolver resolves every test to the same question count and options.
type fixedResolver struct {
	resolution services.Resolution
}

func (f fixedResolver) Resolve(ctx context.Context, testID string) (*services.Resolution, error) {
	r := f.resolution
	r.ResolvedAt = time.Now()
	return &r, nil
}

type stubGrader struct {
	result *models.SubmissionResult
	err    error
}

func (g stubGrader) Submit(ctx context.Context, testID string, answers models.AnswerState) (*models.SubmissionResult, error) {
	return g.result, g.err
}

type testServer struct {
	router    *gin.Engine
	repo      *mockRepository
	publisher *events.MockEventPublisher
	sessions  *services.SessionManager
}

func newTestServer(t *testing.T, grader services.Grader) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	slogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	logger := utils.NewSlogLogger(slogger)
	repo := &mockRepository{
		answerKeys: new(MockAnswerKeyRepository),
		tests:      new(MockTestRepository),
		receipts:   new(MockSubmissionReceiptRepository),
	}
	publisher := events.NewMockEventPublisher(slogger)
	memory := cache.NewMemoryCache()

	sessions := services.NewSessionManager(repo.tests, services.SessionDeps{
		Resolver: fixedResolver{resolution: services.Resolution{
			QuestionCount: 3,
			Options:       answerkey.LetterOptions,
			Source:        services.SourceAnswerKey,
		}},
		Cache:     memory,
		Counts:    services.NewQuestionCountStore(memory, slogger),
		Grader:    grader,
		AnswerTTL: time.Hour,
		Logger:    slogger,
	}, slogger)
	t.Cleanup(sessions.CloseAll)

	manager := NewHandlerManager(
		sessions,
		services.NewAnswerKeyService(repo, publisher, slogger),
		services.NewReceiptService(repo.receipts, slogger),
		validator.New(),
		logger,
		nil,
	)
	router := gin.New()
	manager.SetupRoutes(router)

	return &testServer{router: router, repo: repo, publisher: publisher, sessions: sessions}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dest), w.Body.String())
}

func activeTest(id string) *models.TestDescriptor {
	return &models.TestDescriptor{ID: id, Title: "Anatomia I", IsActive: true}
}
