package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/SAP-F-2025/answer-engine/internal/errors"
	"github.com/SAP-F-2025/answer-engine/internal/models"
)

const maxErrorBody = 4 << 10

// LMSClient talks to the learning platform's test endpoints: answer-key
// re-synchronization and attempt submission.
type LMSClient struct {
	http    *http.Client
	baseURL string
	token   string
	logger  *slog.Logger
}

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Logger  *slog.Logger
}

func NewLMSClient(cfg Config) *LMSClient {
	h := &http.Client{}
	if cfg.Timeout > 0 {
		h.Timeout = cfg.Timeout
	}
	return &LMSClient{
		http:    h,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		logger:  cfg.Logger,
	}
}

// TriggerSync asks the LMS to re-read the answer key of a test from its source document.
func (c *LMSClient) TriggerSync(ctx context.Context, testID string) error {
	res, err := c.post(ctx, c.testURL(testID, "sync-answer-key"), nil)
	if err != nil {
		return apperrors.NewUpstreamError("sync answer key", 0, err.Error())
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return apperrors.NewUpstreamError("sync answer key", res.StatusCode, readErrorMessage(res.Body, res.Status))
	}
	io.Copy(io.Discard, res.Body)
	return nil
}

type submitRequest struct {
	Answers map[string]string `json:"answers"`
}

type submitResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Attempt *struct {
		ID             string  `json:"id"`
		Score          float64 `json:"score"`
		Passed         bool    `json:"passed"`
		CorrectCount   *int    `json:"correctCount"`
		TotalQuestions *int    `json:"totalQuestions"`
		AttemptNumber  *int    `json:"attemptNumber"`
	} `json:"attempt"`
}

// Submit posts the learner's answers for grading.
func (c *LMSClient) Submit(ctx context.Context, testID string, answers models.AnswerState) (*models.SubmissionResult, error) {
	payload := submitRequest{Answers: make(map[string]string, len(answers))}
	for question, option := range answers {
		payload.Answers[strconv.Itoa(question)] = string(option)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal submission: %w", err)
	}

	res, err := c.post(ctx, c.testURL(testID, "submit"), body)
	if err != nil {
		return nil, apperrors.NewUpstreamError("submit test", 0, err.Error())
	}
	defer res.Body.Close()

	var out submitResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, 1<<20)).Decode(&out); err != nil {
		if res.StatusCode/100 != 2 {
			return nil, apperrors.NewUpstreamError("submit test", res.StatusCode, res.Status)
		}
		return nil, apperrors.NewUpstreamError("submit test", res.StatusCode, "invalid response body")
	}

	if res.StatusCode/100 != 2 || !out.Success || out.Attempt == nil {
		message := out.Error
		if message == "" {
			message = "submission was not accepted"
		}
		return nil, apperrors.NewUpstreamError("submit test", res.StatusCode, message)
	}

	c.logger.Info("Test submitted",
		"test_id", testID,
		"attempt_id", out.Attempt.ID,
		"score", out.Attempt.Score,
		"passed", out.Attempt.Passed)

	return &models.SubmissionResult{
		AttemptID:      out.Attempt.ID,
		Score:          out.Attempt.Score,
		Passed:         out.Attempt.Passed,
		CorrectCount:   out.Attempt.CorrectCount,
		TotalQuestions: out.Attempt.TotalQuestions,
		AttemptNumber:  out.Attempt.AttemptNumber,
	}, nil
}

func (c *LMSClient) testURL(testID, action string) string {
	return fmt.Sprintf("%s/api/tests/%s/%s", c.baseURL, url.PathEscape(testID), action)
}

func (c *LMSClient) post(ctx context.Context, endpoint string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.http.Do(req)
}

func readErrorMessage(r io.Reader, fallback string) string {
	var body struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		return body.Error
	}
	return fallback
}
