package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/answer-engine/internal/services"
	"github.com/SAP-F-2025/answer-engine/internal/utils"
	"github.com/gin-gonic/gin"
)

type ReceiptHandler struct {
	BaseHandler
	service *services.ReceiptService
}

func NewReceiptHandler(service *services.ReceiptService, logger utils.Logger) *ReceiptHandler {
	return &ReceiptHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// GetReceipt returns the stored receipt of a graded attempt
// @Summary Get submission receipt
// @Tags receipts
// @Produce json
// @Param attempt_id path string true "Attempt ID"
// @Success 200 {object} models.SubmissionReceipt
// @Failure 404 {object} ErrorResponse
// @Router /receipts/{attempt_id} [get]
func (h *ReceiptHandler) GetReceipt(c *gin.Context) {
	attemptID := ParseStringIDParam(c, "attempt_id")
	if attemptID == "" {
		return
	}

	receipt, err := h.service.GetByAttempt(c.Request.Context(), attemptID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, receipt)
}

// ListTestReceipts returns the newest receipts of a test
// @Summary List submission receipts
// @Tags receipts
// @Produce json
// @Param id path string true "Test ID"
// @Param limit query int false "Max receipts (1-100)"
// @Success 200 {array} models.SubmissionReceipt
// @Router /tests/{id}/receipts [get]
func (h *ReceiptHandler) ListTestReceipts(c *gin.Context) {
	testID := ParseStringIDParam(c, "id")
	if testID == "" {
		return
	}

	limit := queryLimit(c, services.DefaultReceiptLimit)

	receipts, err := h.service.ListByTest(c.Request.Context(), testID, limit)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, receipts)
}
