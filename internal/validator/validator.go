package validator

import (
	"reflect"
	"strings"

	"github.com/SAP-F-2025/answer-engine/internal/answerkey"
	apperrors "github.com/SAP-F-2025/answer-engine/internal/errors"
	"github.com/SAP-F-2025/answer-engine/internal/models"
	"github.com/go-playground/validator/v10"
)

// maxOptionLength bounds free-form option tokens coming from clients
const maxOptionLength = 50

type ValidationErrors = apperrors.ValidationErrors

// Validator wraps the struct validator with the engine's custom tags
type Validator struct {
	structValidator *validator.Validate
}

// New creates a new centralized validator instance
func New() *Validator {
	structValidator := validator.New()

	// Register all custom validators once
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator: structValidator,
	}
}

// ValidateStruct validates struct tags only
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// Validate validates s and converts failures to ValidationErrors
func (v *Validator) Validate(s interface{}) error {
	if err := v.ValidateStruct(s); err != nil {
		if errs := apperrors.ToValidationErrors(err); len(errs) > 0 {
			return errs
		}
		return err
	}
	return nil
}

// registerCustomValidators registers all custom validation functions
func registerCustomValidators(validate *validator.Validate) {
	// Answer option validation
	validate.RegisterValidation("option_token", validateOptionToken)

	// Answer key change type validation
	validate.RegisterValidation("change_type", validateChangeType)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Custom validation functions
func validateOptionToken(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if len(value) > maxOptionLength {
		return false
	}
	_, ok := answerkey.NormalizeString(value)
	return ok
}

func validateChangeType(fl validator.FieldLevel) bool {
	validTypes := []models.AnswerKeyChangeType{
		models.AnswerKeyInserted,
		models.AnswerKeyUpdated,
		models.AnswerKeyDeleted,
	}

	value := fl.Field().String()
	for _, validType := range validTypes {
		if string(validType) == value {
			return true
		}
	}
	return false
}
