package handlers

import (
	"fmt"
	"net/http"

	"github.com/SAP-F-2025/answer-engine/internal/answerkey"
	"github.com/SAP-F-2025/answer-engine/internal/services"
	"github.com/SAP-F-2025/answer-engine/internal/utils"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ===== REQUEST STRUCTURES =====

type StartSessionRequest struct {
	TestID string `json:"test_id" validate:"required,max=255"`
}

type SelectAnswerRequest struct {
	Question int    `json:"question" validate:"required,min=1"`
	Option   string `json:"option" validate:"required,option_token"`
}

type QuestionCountRequest struct {
	Count int `json:"count" validate:"required,min=1,max=100"`
}

// SubmitRequest carries the learner's answer to the incomplete-sheet prompt
type SubmitRequest struct {
	Confirm bool `json:"confirm"`
}

// ===== RESPONSE STRUCTURES =====

type SelectAnswerResponse struct {
	Accepted bool               `json:"accepted"`
	Snapshot *services.Snapshot `json:"snapshot"`
}

type SubmitResponse struct {
	Status   services.SubmitStatus `json:"status"`
	Snapshot *services.Snapshot    `json:"snapshot,omitempty"`
}

type SessionHandler struct {
	BaseHandler
	sessions  *services.SessionManager
	validator Validator
}

func NewSessionHandler(sessions *services.SessionManager, validator Validator, logger utils.Logger) *SessionHandler {
	return &SessionHandler{
		BaseHandler: NewBaseHandler(logger),
		sessions:    sessions,
		validator:   validator,
	}
}

// StartSession opens a session on a test
// @Summary Start session
// @Tags sessions
// @Accept json
// @Produce json
// @Param request body StartSessionRequest true "Test to answer"
// @Success 201 {object} SuccessResponse{data=services.Snapshot}
// @Failure 404 {object} ErrorResponse
// @Router /sessions [post]
func (h *SessionHandler) StartSession(c *gin.Context) {
	var req StartSessionRequest
	if !h.bindAndValidate(c, h.validator, &req) {
		return
	}

	h.LogRequest(c, "Starting session", "test_id", req.TestID)

	session, err := h.sessions.Start(c.Request.Context(), req.TestID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	snapshot, err := session.Snapshot(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusCreated, "Session started", snapshot, "session_id", session.ID())
}

// GetSession returns the current state of a session
// @Summary Get session
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} services.Snapshot
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	snapshot, err := session.Snapshot(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// SelectAnswer records the option chosen for a question
// @Summary Select answer
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body SelectAnswerRequest true "Selection"
// @Success 200 {object} SelectAnswerResponse
// @Router /sessions/{id}/answers [put]
func (h *SessionHandler) SelectAnswer(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req SelectAnswerRequest
	if !h.bindAndValidate(c, h.validator, &req) {
		return
	}

	option, _ := answerkey.NormalizeString(req.Option)
	accepted, err := session.Select(c.Request.Context(), req.Question, option)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	snapshot, err := session.Snapshot(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SelectAnswerResponse{Accepted: accepted, Snapshot: snapshot})
}

// SetQuestionCount overrides the question count of a test without answer key
// @Summary Set question count
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body QuestionCountRequest true "Question count"
// @Success 200 {object} services.Snapshot
// @Router /sessions/{id}/question-count [put]
func (h *SessionHandler) SetQuestionCount(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req QuestionCountRequest
	if !h.bindAndValidate(c, h.validator, &req) {
		return
	}

	if err := session.SetQuestionCount(c.Request.Context(), req.Count); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respondWithSnapshot(c, session)
}

// RefreshSession re-resolves the answer key
// @Summary Refresh answer key
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} services.Snapshot
// @Router /sessions/{id}/refresh [post]
func (h *SessionHandler) RefreshSession(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	snapshot, err := session.Refresh(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// SubmitSession sends the answers for grading
// @Summary Submit answers
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body SubmitRequest false "Confirmation for incomplete answer sheets"
// @Success 200 {object} SubmitResponse
// @Failure 502 {object} ErrorResponse
// @Router /sessions/{id}/submit [post]
func (h *SessionHandler) SubmitSession(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req SubmitRequest
	if c.Request.ContentLength != 0 {
		if !h.bindAndValidate(c, h.validator, &req) {
			return
		}
	}

	h.LogRequest(c, "Submitting answers", "session_id", session.ID(), "confirm", req.Confirm)

	outcome, err := session.Submit(c.Request.Context(), services.TriggerManual, services.AutoConfirm(req.Confirm))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	switch outcome.Status {
	case services.SubmitStatusFailed:
		h.handleServiceError(c, outcome.Err)
		return
	case services.SubmitStatusAborted:
		h.handleServiceError(c, services.ErrSessionClosed)
		return
	}

	snapshot, err := session.Snapshot(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SubmitResponse{Status: outcome.Status, Snapshot: snapshot})
}

// AbandonSession closes a session, keeping the saved answers
// @Summary Abandon session
// @Tags sessions
// @Param id path string true "Session ID"
// @Success 204
// @Router /sessions/{id} [delete]
func (h *SessionHandler) AbandonSession(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	if err := h.sessions.Close(id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogInfo(c, "Session abandoned", "session_id", id)
	c.Status(http.StatusNoContent)
}

// ExportAnswerSheet downloads the current answers as an xlsx workbook
// @Summary Export answer sheet
// @Tags sessions
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Session ID"
// @Router /sessions/{id}/answer-sheet [get]
func (h *SessionHandler) ExportAnswerSheet(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	snapshot, err := session.Snapshot(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	data, err := services.ExportAnswerSheet(snapshot)
	if err != nil {
		h.RespondWithError(c, http.StatusInternalServerError, "Failed to export answer sheet", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="answers-%s.xlsx"`, snapshot.TestID))
	c.Data(http.StatusOK, xlsxContentType, data)
}

func (h *SessionHandler) session(c *gin.Context) (*services.Session, bool) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return nil, false
	}

	session, err := h.sessions.Get(id)
	if err != nil {
		h.handleServiceError(c, err)
		return nil, false
	}
	return session, true
}

func (h *SessionHandler) respondWithSnapshot(c *gin.Context, session *services.Session) {
	snapshot, err := session.Snapshot(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}
