package services

import (
	"errors"

	apperrors "github.com/dragon-peak/quiz-game-service/internal/errors"
)

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrValidationFailed = errors.New("validation failed")

	// Session specific errors
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionCompleted = errors.New("session already completed")
	ErrQuestionSetEmpty = errors.New("question set resolved empty")

	// Bridge specific errors
	ErrBridgeNotAttached     = errors.New("session has no host bridge attached")
	ErrBridgeAlreadyAttached = errors.New("session already has a host bridge")
)

// Use shared validation errors from the errors package.
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// IsNotFound checks if err represents a "not found" condition.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrSessionNotFound)
}

// IsConflict checks if err represents an action the session's current
// state cannot accept.
func IsConflict(err error) bool {
	return errors.Is(err, ErrSessionCompleted) ||
		errors.Is(err, ErrBridgeNotAttached) ||
		errors.Is(err, ErrBridgeAlreadyAttached)
}

// IsValidation checks if err represents a validation failure.
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) {
		return true
	}
	var ve apperrors.ValidationErrors
	if errors.As(err, &ve) {
		return true
	}
	var single *apperrors.ValidationError
	return errors.As(err, &single)
}
