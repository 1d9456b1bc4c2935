package domain

import (
	"errors"
	"fmt"
)

// Common domain errors
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInternalServer     = errors.New("internal server error")
	ErrDuplicateEntry     = errors.New("duplicate entry")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("token invalid")
	ErrTokenRevoked       = errors.New("token revoked")
)

// User errors
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrInvalidPassword   = errors.New("invalid password")
	ErrEmployeeNotFound  = errors.New("employee not found")
	ErrUserInactive      = errors.New("user account is inactive")
)

// Task errors
var (
	ErrTaskNotFound = errors.New("declaration task not found")
	// ErrTokenInvalidOrExpired covers unknown, expired and already-consumed
	// access tokens. The three cases are deliberately indistinguishable so
	// the response never reveals which tokens once existed.
	ErrTokenInvalidOrExpired = errors.New("link is invalid or expired")
	ErrTemplateNotActive     = errors.New("template not found or not active")
	ErrTaskNotCancellable    = errors.New("task can no longer be cancelled")
	ErrTaskNotOpen           = errors.New("task is no longer open for submission")
	ErrDueDateInPast         = errors.New("due date must be in the future")
	ErrLicenseExpired        = errors.New("license expired")
)

// Submission / review errors
var (
	ErrSubmissionNotFound  = errors.New("submission not found")
	ErrNotAssignedReviewer = errors.New("not the assigned reviewer")
	ErrAlreadyReviewed     = errors.New("submission already reviewed")
	ErrNotReviewable       = errors.New("submission is not awaiting review")
	ErrNotesRequired       = errors.New("revision notes are required")
	ErrAttestationRequired = errors.New("digital attestation is required")
)

// InsufficientCreditsError is returned when the ledger refuses to consume.
// It carries the shortfall so the caller can message the administrator.
type InsufficientCreditsError struct {
	Required  int
	Available int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: required %d, available %d", e.Required, e.Available)
}
