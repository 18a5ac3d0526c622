package services

import (
	"errors"
	"fmt"

	apperrors "github.com/SAP-F-2025/answer-engine/internal/errors"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrValidationFailed = errors.New("validation failed")
	ErrInternalError    = errors.New("internal server error")
	ErrConflict         = errors.New("resource conflict")

	// Test specific errors
	ErrTestNotFound = errors.New("test not found")
	ErrTestInactive = errors.New("test is not active")

	// Session specific errors
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionClosed        = errors.New("session is closed")
	ErrAnswersLocked        = errors.New("answers can no longer be changed")
	ErrInvalidQuestionCount = errors.New("question count must be between 1 and 100")

	// Answer key errors
	ErrAnswerKeyNotFound = errors.New("no answer key found in document")

	// Event loop
	ErrDispatcherStopped = errors.New("dispatcher stopped")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

type BusinessRuleError struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (bre *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violation (%s): %s", bre.Rule, bre.Message)
}

// ===== ERROR HELPERS =====

// NewValidationError creates a new validation error using the shared type
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return apperrors.NewValidationError(field, message, value)
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: message,
		Context: context,
	}
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrTestNotFound) ||
		errors.Is(err, ErrSessionNotFound)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) || errors.Is(err, ErrInvalidQuestionCount) {
		return true
	}
	var ve apperrors.ValidationErrors
	if errors.As(err, &ve) {
		return true
	}
	var single *apperrors.ValidationError
	return errors.As(err, &single)
}

// IsBusinessRule checks if error represents a business rule violation
func IsBusinessRule(err error) bool {
	var bre *BusinessRuleError
	return errors.As(err, &bre)
}

// IsConflict checks if error represents a state conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrSessionClosed) ||
		errors.Is(err, ErrAnswersLocked) ||
		errors.Is(err, ErrTestInactive)
}

// IsUpstream checks if error came from a failed LMS call
func IsUpstream(err error) bool {
	var ue *apperrors.UpstreamError
	return errors.As(err, &ue)
}
