package engine

import (
	"errors"
	"fmt"
)

// Failure kinds. Every error returned by the engine for a rejected
// operation wraps exactly one of these.
var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrBusinessRule      = errors.New("business rule violation")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrVersionConflict   = errors.New("version conflict")
)

// ConflictMessage is reported for every lost optimistic-lock race.
const ConflictMessage = "This ad has been modified by another user. Please reload it and try again."

// Error is a rejected operation with a user-facing message.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func fail(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing entity with the standard message.
func NotFound(entity string, id any) error {
	return fail(ErrNotFound, "%s not found with id: %v", entity, id)
}

// Conflict returns the error repositories report when a conditional write
// matched no row.
func Conflict() error {
	return &Error{Kind: ErrVersionConflict, Message: ConflictMessage}
}

// Kind returns a short label for err, used for metrics and logs.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrBusinessRule):
		return "business_rule"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrVersionConflict):
		return "version_conflict"
	default:
		return "internal"
	}
}
