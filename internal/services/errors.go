package services

import (
	"errors"
	"fmt"

	apperrors "github.com/SAP-F-2025/psychotest-service/internal/errors"
	"github.com/SAP-F-2025/psychotest-service/internal/kraepelin"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrUnauthorized     = errors.New("unauthorized access")
	ErrForbidden        = errors.New("forbidden - insufficient permissions")
	ErrValidationFailed = errors.New("validation failed")
	ErrConflict         = errors.New("resource conflict")

	// Session specific errors
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionAccessDenied = errors.New("access denied to session")
	ErrSessionBusy         = errors.New("session is being updated by another request")
	ErrSessionNotFinished  = errors.New("session is not finished")

	// Result specific errors
	ErrResultNotFound     = errors.New("result not found")
	ErrResultAccessDenied = errors.New("access denied to result")
	ErrResultNotPersisted = errors.New("result computed but could not be stored, retry finalize")

	// Import errors
	ErrImportInvalidFile = errors.New("invalid import file")
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

type PermissionError struct {
	UserID     uint   `json:"user_id"`
	ResourceID string `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func (pe *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %d cannot %s %s %s - %s",
		pe.UserID, pe.Action, pe.Resource, pe.ResourceID, pe.Reason)
}

// Unwrap lets errors.Is match the matching access-denied sentinel
func (pe *PermissionError) Unwrap() error {
	switch pe.Resource {
	case "session":
		return ErrSessionAccessDenied
	case "result":
		return ErrResultAccessDenied
	}
	return ErrForbidden
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

func NewPermissionError(userID uint, resourceID, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrResultNotFound)
}

// IsUnauthorized checks if error represents an "unauthorized" condition
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrSessionAccessDenied) ||
		errors.Is(err, ErrResultAccessDenied)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ErrImportInvalidFile) ||
		errors.Is(err, kraepelin.ErrInvalidConfiguration) ||
		errors.Is(err, kraepelin.ErrOutOfRangeDigit) ||
		errors.Is(err, kraepelin.ErrMalformedMatrix) ||
		errors.Is(err, kraepelin.ErrMalformedAnswers) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}

// IsBusinessRule checks if error represents a business rule violation
func IsBusinessRule(err error) bool {
	var bre *BusinessRuleError
	return errors.As(err, &bre)
}

// IsConflict checks if error represents a resource conflict, including
// operations that do not fit the current session state
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrSessionBusy) ||
		errors.Is(err, ErrSessionNotFinished) ||
		errors.Is(err, kraepelin.ErrSessionNotStarted) ||
		errors.Is(err, kraepelin.ErrSessionAlreadyStarted) ||
		errors.Is(err, kraepelin.ErrSessionAlreadyFinished) ||
		errors.Is(err, kraepelin.ErrColumnClosed)
}

// IsRetryable reports errors the client may resolve by repeating the call
func IsRetryable(err error) bool {
	return errors.Is(err, ErrResultNotPersisted) || errors.Is(err, ErrSessionBusy)
}
