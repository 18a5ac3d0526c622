package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/answer-engine/internal/services"
	"github.com/SAP-F-2025/answer-engine/internal/utils"
	"github.com/gin-gonic/gin"
)

type HandlerManager struct {
	sessionHandler   *SessionHandler
	streamHandler    *StreamHandler
	answerKeyHandler *AnswerKeyHandler
	receiptHandler   *ReceiptHandler
}

func NewHandlerManager(
	sessions *services.SessionManager,
	answerKeys *services.AnswerKeyService,
	receipts *services.ReceiptService,
	validator Validator,
	logger utils.Logger,
	allowedOrigins []string,
) *HandlerManager {
	return &HandlerManager{
		sessionHandler:   NewSessionHandler(sessions, validator, logger),
		streamHandler:    NewStreamHandler(sessions, logger, allowedOrigins),
		answerKeyHandler: NewAnswerKeyHandler(answerKeys, validator, logger),
		receiptHandler:   NewReceiptHandler(receipts, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", HealthCheck)

	v1 := router.Group("/api/v1")
	{
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", hm.sessionHandler.StartSession)
			sessions.GET("/:id", hm.sessionHandler.GetSession)
			sessions.DELETE("/:id", hm.sessionHandler.AbandonSession)
			sessions.PUT("/:id/answers", hm.sessionHandler.SelectAnswer)
			sessions.PUT("/:id/question-count", hm.sessionHandler.SetQuestionCount)
			sessions.POST("/:id/refresh", hm.sessionHandler.RefreshSession)
			sessions.POST("/:id/submit", hm.sessionHandler.SubmitSession)
			sessions.GET("/:id/answer-sheet", hm.sessionHandler.ExportAnswerSheet)
			sessions.GET("/:id/stream", hm.streamHandler.StreamSession)
		}

		// Answer key maintenance, called by the content side
		tests := v1.Group("/tests")
		{
			tests.POST("/:id/answer-key/sync", hm.answerKeyHandler.SyncAnswerKey)
			tests.POST("/:id/answer-key/changes", hm.answerKeyHandler.ReportAnswerKeyChange)
			tests.GET("/:id/receipts", hm.receiptHandler.ListTestReceipts)
		}

		v1.GET("/receipts/:attempt_id", hm.receiptHandler.GetReceipt)
	}
}

// HealthCheck reports liveness
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "answer-engine",
	})
}
