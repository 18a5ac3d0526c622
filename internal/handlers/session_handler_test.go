package handlers

import (
	"net/http"
	"testing"

	"github.com/SAP-F-2025/answer-engine/internal/answerkey"
	apperrors "github.com/SAP-F-2025/answer-engine/internal/errors"
	"github.com/SAP-F-2025/answer-engine/internal/models"
	"github.com/SAP-F-2025/answer-engine/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type startResponse struct {
	Message string            `json:"message"`
	Data    services.Snapshot `json:"data"`
}

func startSession(t *testing.T, srv *testServer, testID string) services.Snapshot {
	t.Helper()
	srv.repo.tests.On("GetByID", mock.Anything, testID).Return(activeTest(testID), nil)

	w := srv.do(t, http.MethodPost, "/api/v1/sessions", StartSessionRequest{TestID: testID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp startResponse
	decode(t, w, &resp)
	require.NotEmpty(t, resp.Data.SessionID)
	return resp.Data
}

func TestSessionHandler_StartSession(t *testing.T) {
	srv := newTestServer(t, stubGrader{})

	snapshot := startSession(t, srv, "test-1")
	assert.Equal(t, "test-1", snapshot.TestID)
	assert.Equal(t, 3, snapshot.QuestionCount)
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, snapshot.Options)
	assert.Equal(t, services.SubmissionInProgress, snapshot.SubmissionState)
	assert.Equal(t, 1, srv.sessions.Count())
}

func TestSessionHandler_StartSessionErrors(t *testing.T) {
	srv := newTestServer(t, stubGrader{})
	inactive := activeTest("old")
	inactive.IsActive = false
	srv.repo.tests.On("GetByID", mock.Anything, "missing").Return(nil, gorm.ErrRecordNotFound)
	srv.repo.tests.On("GetByID", mock.Anything, "old").Return(inactive, nil)

	tests := []struct {
		name string
		body interface{}
		want int
	}{
		{"unknown test", StartSessionRequest{TestID: "missing"}, http.StatusNotFound},
		{"inactive test", StartSessionRequest{TestID: "old"}, http.StatusConflict},
		{"missing test id", StartSessionRequest{}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := srv.do(t, http.MethodPost, "/api/v1/sessions", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
	assert.Zero(t, srv.sessions.Count())
}

func TestSessionHandler_SelectAnswer(t *testing.T) {
	srv := newTestServer(t, stubGrader{})
	session := startSession(t, srv, "test-1")
	path := "/api/v1/sessions/" + session.SessionID + "/answers"

	w := srv.do(t, http.MethodPut, path, SelectAnswerRequest{Question: 2, Option: "c"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp SelectAnswerResponse
	decode(t, w, &resp)
	assert.True(t, resp.Accepted)
	assert.Equal(t, answerkey.OptionC, resp.Snapshot.Answers[2])
	assert.Equal(t, 1, resp.Snapshot.AnsweredCount)

	// true/false is not part of a lettered sheet
	w = srv.do(t, http.MethodPut, path, SelectAnswerRequest{Question: 1, Option: "V"})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.False(t, resp.Accepted)
	assert.Equal(t, 1, resp.Snapshot.AnsweredCount)

	// the sheet only has three questions
	w = srv.do(t, http.MethodPut, path, SelectAnswerRequest{Question: 50, Option: "A"})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.False(t, resp.Accepted)
	assert.Equal(t, 1, resp.Snapshot.AnsweredCount)

	w = srv.do(t, http.MethodPut, path, SelectAnswerRequest{Question: 0, Option: ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandler_SetQuestionCount(t *testing.T) {
	srv := newTestServer(t, stubGrader{})
	session := startSession(t, srv, "test-1")
	path := "/api/v1/sessions/" + session.SessionID + "/question-count"

	w := srv.do(t, http.MethodPut, path, QuestionCountRequest{Count: 20})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var snapshot services.Snapshot
	decode(t, w, &snapshot)
	assert.Equal(t, 20, snapshot.QuestionCount)

	w = srv.do(t, http.MethodPut, path, QuestionCountRequest{Count: 101})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandler_SubmitSession(t *testing.T) {
	srv := newTestServer(t, stubGrader{result: &models.SubmissionResult{AttemptID: "att-1", Score: 66.7, Passed: true}})
	session := startSession(t, srv, "test-1")
	base := "/api/v1/sessions/" + session.SessionID

	w := srv.do(t, http.MethodPut, base+"/answers", SelectAnswerRequest{Question: 1, Option: "A"})
	require.Equal(t, http.StatusOK, w.Code)

	// incomplete sheet without confirmation
	w = srv.do(t, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp SubmitResponse
	decode(t, w, &resp)
	assert.Equal(t, services.SubmitStatusDeclined, resp.Status)
	assert.Equal(t, services.SubmissionInProgress, resp.Snapshot.SubmissionState)

	w = srv.do(t, http.MethodPost, base+"/submit", SubmitRequest{Confirm: true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &resp)
	assert.Equal(t, services.SubmitStatusSubmitted, resp.Status)
	require.NotNil(t, resp.Snapshot.Result)
	assert.Equal(t, "att-1", resp.Snapshot.Result.AttemptID)

	w = srv.do(t, http.MethodPut, base+"/answers", SelectAnswerRequest{Question: 2, Option: "B"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSessionHandler_SubmitFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"lms rejects attempt", apperrors.NewUpstreamError("submit test", http.StatusForbidden, "no attempts left"), http.StatusUnprocessableEntity},
		{"lms unavailable", apperrors.NewUpstreamError("submit test", http.StatusServiceUnavailable, "maintenance"), http.StatusBadGateway},
		{"business rule", services.NewBusinessRuleError("max_attempts", "no attempts left", nil), http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, stubGrader{err: tt.err})
			session := startSession(t, srv, "test-1")
			base := "/api/v1/sessions/" + session.SessionID

			w := srv.do(t, http.MethodPost, base+"/submit", SubmitRequest{Confirm: true})
			assert.Equal(t, tt.want, w.Code, w.Body.String())

			// answers stay editable for a retry
			w = srv.do(t, http.MethodGet, base, nil)
			require.Equal(t, http.StatusOK, w.Code)
			var snapshot services.Snapshot
			decode(t, w, &snapshot)
			assert.Equal(t, services.SubmissionInProgress, snapshot.SubmissionState)
			assert.NotEmpty(t, snapshot.LastError)
		})
	}
}

func TestSessionHandler_AbandonSession(t *testing.T) {
	srv := newTestServer(t, stubGrader{})
	session := startSession(t, srv, "test-1")
	path := "/api/v1/sessions/" + session.SessionID

	w := srv.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = srv.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = srv.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionHandler_ExportAnswerSheet(t *testing.T) {
	srv := newTestServer(t, stubGrader{})
	session := startSession(t, srv, "test-1")

	w := srv.do(t, http.MethodGet, "/api/v1/sessions/"+session.SessionID+"/answer-sheet", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "answers-test-1.xlsx")
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t, stubGrader{})

	w := srv.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "answer-engine")
}
