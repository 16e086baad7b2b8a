package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is the base interface for all application errors
type AppError interface {
	error
	HTTPStatus() int
	Code() string
}

// ValidationError represents invalid input, rejected before any transaction opens
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) HTTPStatus() int {
	return http.StatusBadRequest
}

func (e *ValidationError) Code() string {
	return "VALIDATION_ERROR"
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// InvalidStateError represents an operation that is not valid for the
// entity's current state. No mutation has occurred when it is returned.
type InvalidStateError struct {
	Resource string
	State    string
	Message  string
}

func (e *InvalidStateError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s is in state '%s' and cannot perform this operation", e.Resource, e.State)
}

func (e *InvalidStateError) HTTPStatus() int {
	return http.StatusConflict
}

func (e *InvalidStateError) Code() string {
	return "INVALID_STATE"
}

// NewInvalidStateError creates a new InvalidStateError
func NewInvalidStateError(resource, state, message string) *InvalidStateError {
	return &InvalidStateError{Resource: resource, State: state, Message: message}
}

// ForbiddenError represents an authorization failure (four-eyes violation,
// wrong role). Reason is a short machine-checkable tag ("four-eyes", "role").
type ForbiddenError struct {
	Reason  string
	Message string
}

func (e *ForbiddenError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("forbidden (%s): %s", e.Reason, e.Message)
	}
	return fmt.Sprintf("forbidden: %s", e.Reason)
}

func (e *ForbiddenError) HTTPStatus() int {
	return http.StatusForbidden
}

func (e *ForbiddenError) Code() string {
	return "FORBIDDEN"
}

// NewForbiddenError creates a new ForbiddenError
func NewForbiddenError(reason, message string) *ForbiddenError {
	return &ForbiddenError{Reason: reason, Message: message}
}

// NotFoundError represents a resource that was not found
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s with ID '%s' not found", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) HTTPStatus() int {
	return http.StatusNotFound
}

func (e *NotFoundError) Code() string {
	return "NOT_FOUND"
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// EngineError represents an unexpected failure inside a workflow step or
// transition: unknown task type, malformed configuration, or a wrapped
// unexpected error. The owning transaction has been rolled back.
type EngineError struct {
	Message string
	Cause   error
}

func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("engine error: %s (caused by: %v)", e.Message, e.Cause)
	}
	return fmt.Sprintf("engine error: %s", e.Message)
}

func (e *EngineError) HTTPStatus() int {
	return http.StatusInternalServerError
}

func (e *EngineError) Code() string {
	return "ENGINE_ERROR"
}

func (e *EngineError) Unwrap() error {
	return e.Cause
}

// NewEngineError creates a new EngineError
func NewEngineError(message string, cause error) *EngineError {
	return &EngineError{Message: message, Cause: cause}
}

// Helper functions for error checking

// IsValidation checks if an error is a ValidationError
func IsValidation(err error) bool {
	var validation *ValidationError
	return errors.As(err, &validation)
}

// IsInvalidState checks if an error is an InvalidStateError
func IsInvalidState(err error) bool {
	var invalidState *InvalidStateError
	return errors.As(err, &invalidState)
}

// IsForbidden checks if an error is a ForbiddenError
func IsForbidden(err error) bool {
	var forbidden *ForbiddenError
	return errors.As(err, &forbidden)
}

// IsNotFound checks if an error is a NotFoundError
func IsNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}

// IsEngine checks if an error is an EngineError
func IsEngine(err error) bool {
	var engine *EngineError
	return errors.As(err, &engine)
}

// GetHTTPStatus returns the HTTP status code for an error
// Returns 500 if the error doesn't implement AppError
func GetHTTPStatus(err error) int {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// GetErrorCode returns the error code for an error
// Returns "UNKNOWN_ERROR" if the error doesn't implement AppError
func GetErrorCode(err error) string {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr.Code()
	}
	return "UNKNOWN_ERROR"
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ToResponse converts an error to an ErrorResponse
func ToResponse(err error) ErrorResponse {
	return ErrorResponse{
		Code:    GetErrorCode(err),
		Message: err.Error(),
	}
}
