package handlers

import (
	"context"
	"errors"
	"net/http"

	apperrors "github.com/SAP-F-2025/answer-engine/internal/errors"
	"github.com/SAP-F-2025/answer-engine/internal/services"
	"github.com/SAP-F-2025/answer-engine/internal/utils"
	"github.com/gin-gonic/gin"
)

// ===== COMMON RESPONSE STRUCTURES =====

// ErrorResponse represents an error response
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ===== BASE HANDLER STRUCT =====

// BaseHandler provides common logging functionality for all handlers
type BaseHandler struct {
	logger utils.Logger
}

// NewBaseHandler creates a new base handler with logging capability
func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{
		logger: logger,
	}
}

// LogRequest logs an incoming call before the handler acts on it
func (h *BaseHandler) LogRequest(c *gin.Context, message string, additionalFields ...interface{}) {
	h.requestLogger(c).Info(message, append(additionalFields, "remote_addr", c.ClientIP())...)
}

// LogError logs error details with context information
func (h *BaseHandler) LogError(c *gin.Context, err error, message string, additionalFields ...interface{}) {
	h.requestLogger(c).LogError(err, message, additionalFields...)
}

// LogInfo logs informational messages with context
func (h *BaseHandler) LogInfo(c *gin.Context, message string, additionalFields ...interface{}) {
	h.requestLogger(c).Info(message, additionalFields...)
}

// LogWarn logs warning messages with context
func (h *BaseHandler) LogWarn(c *gin.Context, message string, additionalFields ...interface{}) {
	h.requestLogger(c).Warn(message, additionalFields...)
}

// requestLogger prefers the logger utils.ContextLogger attached to the request
func (h *BaseHandler) requestLogger(c *gin.Context) utils.Logger {
	return utils.GetLoggerFromContext(c, h.logger.With(
		"request_id", c.GetHeader(utils.RequestIDHeader),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	))
}

// RespondWithError sends a consistent error response and logs it
func (h *BaseHandler) RespondWithError(c *gin.Context, statusCode int, message string, err error, details ...interface{}) {
	errorResp := ErrorResponse{
		Message: message,
	}

	if len(details) > 0 {
		errorResp.Details = details[0]
	}

	// Log the error with context
	if err != nil && statusCode >= http.StatusInternalServerError {
		h.LogError(c, err, message, "status_code", statusCode)
	} else {
		h.LogWarn(c, message, "status_code", statusCode)
	}

	c.JSON(statusCode, errorResp)
}

// RespondWithSuccess sends a consistent success response and logs it
func (h *BaseHandler) RespondWithSuccess(c *gin.Context, statusCode int, message string, data interface{}, additionalFields ...interface{}) {
	successResp := SuccessResponse{
		Message: message,
		Data:    data,
	}

	fields := []interface{}{"status_code", statusCode}
	fields = append(fields, additionalFields...)
	h.LogInfo(c, message, fields...)

	c.JSON(statusCode, successResp)
}

// handleServiceError maps service errors to HTTP responses
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	// Handle custom error types first
	var validationErrors apperrors.ValidationErrors
	if errors.As(err, &validationErrors) {
		h.RespondWithError(c, http.StatusBadRequest, "Validation failed", err, validationErrors)
		return
	}

	var validationError *apperrors.ValidationError
	if errors.As(err, &validationError) {
		h.RespondWithError(c, http.StatusBadRequest, "Validation failed", err, apperrors.ValidationErrors{*validationError})
		return
	}

	var businessRuleError *services.BusinessRuleError
	if errors.As(err, &businessRuleError) {
		h.RespondWithError(c, http.StatusUnprocessableEntity, businessRuleError.Message, err, map[string]interface{}{
			"rule":    businessRuleError.Rule,
			"context": businessRuleError.Context,
		})
		return
	}

	var upstreamError *apperrors.UpstreamError
	if errors.As(err, &upstreamError) {
		status := http.StatusBadGateway
		if upstreamError.Rejected() {
			status = http.StatusUnprocessableEntity
		}
		h.RespondWithError(c, status, upstreamError.Message, err, upstreamError)
		return
	}

	switch {
	case errors.Is(err, services.ErrTestNotFound):
		h.RespondWithError(c, http.StatusNotFound, "Test not found", err)
	case errors.Is(err, services.ErrSessionNotFound):
		h.RespondWithError(c, http.StatusNotFound, "Session not found", err)
	case errors.Is(err, services.ErrNotFound):
		h.RespondWithError(c, http.StatusNotFound, "Resource not found", err)
	case errors.Is(err, services.ErrTestInactive):
		h.RespondWithError(c, http.StatusConflict, "Test is not active", err)
	case errors.Is(err, services.ErrSessionClosed):
		h.RespondWithError(c, http.StatusConflict, "Session is closed", err)
	case errors.Is(err, services.ErrAnswersLocked):
		h.RespondWithError(c, http.StatusConflict, "Answers can no longer be changed", err)
	case errors.Is(err, services.ErrInvalidQuestionCount):
		h.RespondWithError(c, http.StatusBadRequest, "Question count must be between 1 and 100", err)
	case errors.Is(err, services.ErrAnswerKeyNotFound):
		h.RespondWithError(c, http.StatusUnprocessableEntity, "No answer key found in document", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.RespondWithError(c, http.StatusRequestTimeout, "Request cancelled", err)
	default:
		h.RespondWithError(c, http.StatusInternalServerError, "Internal server error", err)
	}
}

// bindAndValidate decodes the JSON body into req and validates it
func (h *BaseHandler) bindAndValidate(c *gin.Context, v Validator, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err, err.Error())
		return false
	}
	if err := v.Validate(req); err != nil {
		h.handleServiceError(c, err)
		return false
	}
	return true
}

// Validator is the request validation the handlers depend on
type Validator interface {
	Validate(s interface{}) error
}
