package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/answer-engine/internal/events"
	"github.com/SAP-F-2025/answer-engine/internal/models"
	"github.com/SAP-F-2025/answer-engine/internal/services"
	"github.com/SAP-F-2025/answer-engine/internal/utils"
	"github.com/gin-gonic/gin"
)

// ===== REQUEST STRUCTURES =====

// SyncAnswerKeyRequest carries the plain text of the test document
type SyncAnswerKeyRequest struct {
	Content string `json:"content" validate:"required"`
}

// AnswerKeyChangeRequest is a row-level change reported by the database side
type AnswerKeyChangeRequest struct {
	ChangeType     string `json:"change_type" validate:"required,change_type"`
	QuestionNumber *int   `json:"question_number" validate:"omitempty,min=1"`
}

type AnswerKeyHandler struct {
	BaseHandler
	service   *services.AnswerKeyService
	validator Validator
}

func NewAnswerKeyHandler(service *services.AnswerKeyService, validator Validator, logger utils.Logger) *AnswerKeyHandler {
	return &AnswerKeyHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
		validator:   validator,
	}
}

// SyncAnswerKey replaces the answer key of a test from its document text
// @Summary Sync answer key
// @Tags answer-keys
// @Accept json
// @Produce json
// @Param id path string true "Test ID"
// @Param request body SyncAnswerKeyRequest true "Document text"
// @Success 200 {object} services.AnswerKeySyncResult
// @Failure 422 {object} ErrorResponse
// @Router /tests/{id}/answer-key/sync [post]
func (h *AnswerKeyHandler) SyncAnswerKey(c *gin.Context) {
	testID := ParseStringIDParam(c, "id")
	if testID == "" {
		return
	}

	var req SyncAnswerKeyRequest
	if !h.bindAndValidate(c, h.validator, &req) {
		return
	}

	result, err := h.service.SyncFromText(c.Request.Context(), testID, req.Content)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogInfo(c, "Answer key synced", "test_id", testID, "updated", result.Updated, "questions", result.Questions)
	c.JSON(http.StatusOK, result)
}

// ReportAnswerKeyChange relays a change notification to running sessions
// @Summary Report answer key change
// @Tags answer-keys
// @Accept json
// @Param id path string true "Test ID"
// @Param request body AnswerKeyChangeRequest true "Change"
// @Success 202
// @Router /tests/{id}/answer-key/changes [post]
func (h *AnswerKeyHandler) ReportAnswerKeyChange(c *gin.Context) {
	testID := ParseStringIDParam(c, "id")
	if testID == "" {
		return
	}

	var req AnswerKeyChangeRequest
	if !h.bindAndValidate(c, h.validator, &req) {
		return
	}

	err := h.service.RelayChange(c.Request.Context(), &events.AnswerKeyChangedEvent{
		TestID:         testID,
		ChangeType:     models.AnswerKeyChangeType(req.ChangeType),
		QuestionNumber: req.QuestionNumber,
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogInfo(c, "Answer key change relayed", "test_id", testID, "change_type", req.ChangeType)
	c.Status(http.StatusAccepted)
}
