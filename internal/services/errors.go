// Package services defines the business logic for accounts, complaints and
// the public homepage. This file centralizes service-level error values so
// that they can be consistently returned by service methods and checked by
// callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-complaints-backend/internal/flatfile"
	"github.com/tbourn/go-complaints-backend/internal/repo"
)

// Input errors.
var (
	// ErrValidation marks malformed or missing input. Service methods wrap it
	// with a field-specific message; use errors.Is to classify.
	ErrValidation = errors.New("validation failed")
)

// Account errors.
var (
	// ErrDuplicateUsername is returned when registering a taken username.
	ErrDuplicateUsername = errors.New("username already exists")

	// ErrInvalidCredentials covers an unknown username and a wrong password
	// alike so callers cannot probe which usernames exist.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken is returned for a malformed, forged or expired token.
	ErrInvalidToken = errors.New("invalid token")

	// ErrUnauthorized is returned when a valid token refers to a user that no
	// longer exists, or an operation needs an identity that is missing.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the caller's role or ownership does not
	// permit the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrUserNotFound indicates that the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// Complaint errors.
var (
	// ErrComplaintNotFound indicates that the requested complaint does not exist.
	ErrComplaintNotFound = errors.New("complaint not found")

	// ErrInvalidState is returned when the complaint's status does not allow
	// the operation (replying to a closed complaint, rating an open one).
	ErrInvalidState = errors.New("operation not allowed in current status")

	// ErrAlreadyRated is returned when rating a complaint a second time.
	ErrAlreadyRated = errors.New("complaint already rated")

	// ErrReplyLimit is returned when a customer adds too many replies in a
	// row without an administrator answering.
	ErrReplyLimit = errors.New("too many consecutive replies")

	// ErrStale is returned when the complaint was modified concurrently
	// between read and write.
	ErrStale = errors.New("complaint was modified concurrently")
)

// validationf wraps ErrValidation with a formatted message.
func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// ValidationMessage returns the field-specific part of a validation error.
func ValidationMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "); i >= 0 && errors.Is(err, ErrValidation) {
		return msg[i+2:]
	}
	return msg
}

// isNotFound treats both store backends' not-found sentinels as "not found".
func isNotFound(err error) bool {
	return errors.Is(err, repo.ErrNotFound) ||
		errors.Is(err, gorm.ErrRecordNotFound) ||
		errors.Is(err, flatfile.ErrNotFound)
}

// isDuplicate detects unique-constraint violations from either backend,
// including driver errors that do not map to gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	if errors.Is(err, repo.ErrDuplicate) ||
		errors.Is(err, flatfile.ErrDuplicate) ||
		errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// SQLite typically: "UNIQUE constraint failed"
	// Postgres typically: "duplicate key value violates unique constraint"
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}

// isStale detects a failed optimistic version check from either backend.
func isStale(err error) bool {
	return errors.Is(err, repo.ErrStale) || errors.Is(err, flatfile.ErrStale)
}
