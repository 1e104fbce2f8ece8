package entity

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeComposition   ErrorType = "composition"
	ErrorTypeTimeout       ErrorType = "timeout"
	ErrorTypeDelivery      ErrorType = "delivery"
)

var (
	ErrTextTooLong     = errors.New("text is too long")
	ErrIndexOutOfRange = errors.New("background index out of range")
	ErrMissingToken    = errors.New("bot token is not set")
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func NewConfigurationError(message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeConfiguration, Message: message, Cause: cause}
}

func NewValidationError(message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeValidation, Message: message, Cause: cause}
}

func NewNotFoundError(message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeNotFound, Message: message, Cause: cause}
}

func NewCompositionError(message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeComposition, Message: message, Cause: cause}
}

func NewTimeoutError(message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeTimeout, Message: message, Cause: cause}
}

func NewDeliveryError(message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeDelivery, Message: message, Cause: cause}
}

// IsType checks if any error in the chain is an AppError of the given type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}
