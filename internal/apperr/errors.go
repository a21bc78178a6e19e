// Package apperr defines the domain error taxonomy shared by repositories,
// services, and HTTP handlers. Store-level errors are translated into this
// taxonomy at the repository boundary so that driver error text never leaks
// to callers.
package apperr

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Kind classifies an error into one of the domain categories.
type Kind int

const (
	// KindUnknown is an unclassified error. The original error is preserved
	// for diagnostics but its text is not shown to end users.
	KindUnknown Kind = iota

	// KindUnauthenticated means no identity was supplied where one is required.
	KindUnauthenticated

	// KindPermissionDenied means the store's access policy rejected the operation.
	KindPermissionDenied

	// KindNotFound means the referenced row is absent.
	KindNotFound

	// KindValidationFailed means the input violated a constraint (malformed
	// interval, missing field, reference to a nonexistent parent).
	KindValidationFailed

	// KindConflict means a uniqueness constraint rejected the write.
	KindConflict
)

// String returns the stable name for a kind, used in error codes and logs.
func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindPermissionDenied:
		return "permission_denied"
	case KindNotFound:
		return "not_found"
	case KindValidationFailed:
		return "validation_failed"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Error is a classified domain error with a user-safe message.
type Error struct {
	Kind    Kind
	Message string // safe to surface to an end user
	Err     error  // underlying cause, may carry driver detail
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error with a user-safe message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a classified error preserving the underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Unauthenticated creates an unauthenticated error.
func Unauthenticated(message string) *Error {
	return New(KindUnauthenticated, message)
}

// NotFound creates a not-found error.
func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

// ValidationFailed creates a validation error.
func ValidationFailed(message string) *Error {
	return New(KindValidationFailed, message)
}

// KindOf returns the kind of err, or KindUnknown when err is not a
// classified error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err is a classified error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// UserMessage returns the user-safe message of err, or the fallback when
// err carries no classified message.
func UserMessage(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}

// PostgreSQL SQLSTATE codes the repositories translate.
const (
	pqInsufficientPrivilege = "42501"
	pqForeignKeyViolation   = "23503"
	pqUniqueViolation       = "23505"
	pqCheckViolation        = "23514"
)

// FromPostgres translates a database error into the domain taxonomy.
// The message is a user-safe description of the attempted operation,
// e.g. "failed to submit vote". The driver error is preserved as the
// wrapped cause and never surfaces in Message.
func FromPostgres(err error, message string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return Wrap(KindNotFound, message, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqInsufficientPrivilege:
			return Wrap(KindPermissionDenied, message, err)
		case pqForeignKeyViolation, pqCheckViolation:
			return Wrap(KindValidationFailed, message, err)
		case pqUniqueViolation:
			return Wrap(KindConflict, message, err)
		}
	}

	return Wrap(KindUnknown, message, err)
}
