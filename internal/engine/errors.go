package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/goalctl/internal/goal"
)

// Error is a failure reported by the orchestrator.
//
// Codes:
//   - VALIDATION: detected locally, nothing was sent to the store
//   - DOMAIN_CONFLICT: the store rejected the change with a structured
//     conflict that can be retried with an override
//   - TRANSPORT: any other store failure
//   - PARENT_UNRESOLVED: a routine-wide delete could not find its routine
//   - RELATIONSHIPS_LOADING: submit arrived before the edge graph was read
//   - SESSION_CLOSED: a continuation arrived for a session that is gone
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is shown to the user.
	Message string

	// Op is the operation that failed, e.g. "submit" or "delete".
	Op string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes orchestrator errors.
type ErrorCode string

const (
	ErrCodeValidation           ErrorCode = "VALIDATION"
	ErrCodeDomainConflict       ErrorCode = "DOMAIN_CONFLICT"
	ErrCodeTransport            ErrorCode = "TRANSPORT"
	ErrCodeParentUnresolved     ErrorCode = "PARENT_UNRESOLVED"
	ErrCodeRelationshipsLoading ErrorCode = "RELATIONSHIPS_LOADING"
	ErrCodeSessionClosed        ErrorCode = "SESSION_CLOSED"
)

// genericFailure is shown for transport errors. The detail goes to the log.
const genericFailure = "Something went wrong. Your changes were kept, please try again."

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" && e.Err != nil {
		return fmt.Sprintf("%s: %s: %s (%v)", e.Code, e.Op, e.Message, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsValidation reports whether err is a local validation failure.
func IsValidation(err error) bool { return hasCode(err, ErrCodeValidation) }

// IsConflict reports whether err is a domain conflict from the store.
func IsConflict(err error) bool { return hasCode(err, ErrCodeDomainConflict) }

// IsTransport reports whether err is an unclassified store failure.
func IsTransport(err error) bool { return hasCode(err, ErrCodeTransport) }

// IsParentUnresolved reports whether err is an unresolvable routine lookup.
func IsParentUnresolved(err error) bool { return hasCode(err, ErrCodeParentUnresolved) }

// IsRelationshipsLoading reports whether err rejected a submit during loading.
func IsRelationshipsLoading(err error) bool { return hasCode(err, ErrCodeRelationshipsLoading) }

// IsSessionClosed reports whether err came from a stale continuation.
func IsSessionClosed(err error) bool { return hasCode(err, ErrCodeSessionClosed) }

func validationError(op, format string, args ...any) *Error {
	return &Error{Code: ErrCodeValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

// storeError classifies a store failure. Conflicts keep their message so the
// override prompt can show it.
func storeError(op string, err error) *Error {
	if ce, ok := goal.AsConflict(err); ok {
		return &Error{Code: ErrCodeDomainConflict, Op: op, Message: ce.Message, Err: err}
	}
	return &Error{Code: ErrCodeTransport, Op: op, Message: genericFailure, Err: err}
}

func closedError(op string) *Error {
	return &Error{Code: ErrCodeSessionClosed, Op: op, Message: "the editor was closed"}
}
