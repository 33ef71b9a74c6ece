// Package shared contains common domain types, errors and events that are
// used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrValueOutOfRange = errors.New("value out of range")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")
	ErrLimitReached    = errors.New("limit reached")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Infrastructure errors
	ErrServiceUnavailable = errors.New("service unavailable")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "user", "course", "progress"
	Op      string // Operation that failed, e.g., "Grant", "Enroll"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// User domain errors
var (
	ErrUserNotFound      = NewDomainError("user", "Find", ErrNotFound, "user not found")
	ErrUserAlreadyExists = NewDomainError("user", "Create", ErrAlreadyExists, "user already exists")
	ErrInvalidRole       = NewDomainError("user", "Validate", ErrInvalidInput, "unknown role")
	ErrMissingCapability = NewDomainError("user", "Authorize", ErrForbidden, "missing capability")
)

// XP domain errors
var (
	ErrNonPositiveXP = NewDomainError("xp", "Grant", ErrValidation, "xp amount must be positive")
	ErrUnknownSource = NewDomainError("xp", "Grant", ErrInvalidInput, "unknown xp source")
)

// Course domain errors
var (
	ErrCourseNotFound       = NewDomainError("course", "Find", ErrNotFound, "course not found")
	ErrCourseInactive       = NewDomainError("course", "Enroll", ErrInvalidState, "course is not active")
	ErrLevelTooLow          = NewDomainError("course", "Enroll", ErrForbidden, "user level is below the course requirement")
	ErrQuizNotFound         = NewDomainError("quiz", "Find", ErrNotFound, "quiz not found")
	ErrQuizInactive         = NewDomainError("quiz", "Attempt", ErrInvalidState, "quiz is not active")
	ErrMaxAttemptsReached   = NewDomainError("quiz", "Attempt", ErrLimitReached, "maximum number of attempts reached")
	ErrQuizXPAlreadyAwarded = NewDomainError("quiz", "Attempt", ErrAlreadyExists, "quiz xp already awarded")
	ErrEnrollmentNotFound   = NewDomainError("enrollment", "Find", ErrNotFound, "enrollment not found")
	ErrAlreadyEnrolled      = NewDomainError("enrollment", "Create", ErrAlreadyExists, "user already enrolled in course")
	ErrNotEnrolled          = NewDomainError("enrollment", "Check", ErrForbidden, "user is not enrolled in the course")
	ErrInvalidScore         = NewDomainError("quiz", "Attempt", ErrValueOutOfRange, "score must be between 0 and 100")
	ErrInvalidLevelRequire  = NewDomainError("course", "Validate", ErrValueOutOfRange, "level_required must be between 1 and 10")
)

// Progress domain errors
var (
	ErrProgressNotFound = NewDomainError("progress", "Find", ErrNotFound, "progress not found")
)

// Notification domain errors
var (
	ErrNotificationNotFound = NewDomainError("notification", "Find", ErrNotFound, "notification not found")
	ErrInvalidNotification  = NewDomainError("notification", "Validate", ErrInvalidInput, "invalid notification")
	ErrNotificationReadOnly = NewDomainError("notification", "MarkUnread", ErrStateTransition, "read notifications cannot become unread")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsForbidden checks if the error is an authorization error.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden) || errors.Is(err, ErrUnauthorized)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsConflict checks if the error stems from the current state of an entity.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrStateTransition) ||
		errors.Is(err, ErrLimitReached)
}
