package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError describes one rejected request field
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// ValidationErrors collects every field rejected in one request
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	switch len(ve) {
	case 0:
		return "validation failed"
	case 1:
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	default:
		return fmt.Sprintf("validation failed: %d field errors", len(ve))
	}
}

// Fields lists the rejected field names in order
func (ve ValidationErrors) Fields() []string {
	fields := make([]string, 0, len(ve))
	for _, e := range ve {
		fields = append(fields, e.Field)
	}
	return fields
}

func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// NewRuleViolation is a ValidationError tagged with the rule that failed
func NewRuleViolation(field, rule string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: ruleMessage(rule, ""),
		Value:   value,
		Rule:    rule,
	}
}

// ToValidationErrors converts go-playground field errors; anything else yields nil
func ToValidationErrors(err error) ValidationErrors {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil
	}

	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Message: ruleMessage(fe.Tag(), fe.Param()),
			Value:   fe.Value(),
			Rule:    fe.Tag(),
		})
	}
	return out
}

func ruleMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", param)
	case "max":
		return fmt.Sprintf("must be at most %s", param)
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(param), ", ")
	case "option_token":
		return "must be an answer option such as A-E, V or F"
	case "change_type":
		return "must be one of: insert, update, delete"
	default:
		return fmt.Sprintf("validation failed for rule '%s'", rule)
	}
}
