package ledger

import (
	"context"
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the ledger matches exactly one of them with errors.Is.
var (
	// ErrValidation covers missing, malformed or out-of-range input, overpayment included.
	ErrValidation = errors.New("validation failed")

	// ErrAuthorization is returned when the caller's role does not allow the operation.
	ErrAuthorization = errors.New("not authorized")

	// ErrNotFound is returned when the entity is missing or not visible to the caller.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when the operation is invalid for the invoice's current status.
	ErrConflict = errors.New("conflict with current state")

	// ErrGateway is returned when the payment processor declined or could not be reached.
	// It is the only kind worth retrying.
	ErrGateway = errors.New("payment gateway failure")

	// ErrInternal covers persistence and unexpected failures.
	ErrInternal = errors.New("internal error")
)

// Error is a ledger failure with a message safe to show to the caller.
type Error struct {
	// Op is the ledger operation that failed, e.g. "ApplyPayment".
	Op string

	// Kind is one of the Err* sentinels.
	Kind error

	// Message is human readable and never contains internal details.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ledger: %s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("ledger: %s: %s", e.Op, e.Message)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Kind returns the sentinel kind of err, or ErrInternal for errors not produced by the ledger.
func Kind(err error) error {
	var lerr *Error
	if errors.As(err, &lerr) && lerr.Kind != nil {
		return lerr.Kind
	}
	return ErrInternal
}

// Message returns the caller-facing message of err.
func Message(err error) string {
	var lerr *Error
	if errors.As(err, &lerr) {
		return lerr.Message
	}
	return "internal server error"
}

func newError(op string, kind error, message string) *Error {
	return &Error{Op: op, Kind: kind, Message: message}
}

func wrapError(op string, kind error, message string, err error) *Error {
	return &Error{Op: op, Kind: kind, Message: message, Err: err}
}

func internal(op string, err error) *Error {
	return wrapError(op, ErrInternal, "internal server error", err)
}

// lockFailed maps a Locker error. Giving up on a held lock is a conflict, anything
// else means the lock backend is broken.
func lockFailed(op string, err error) *Error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return wrapError(op, ErrConflict, "another operation on this invoice is in progress", err)
	}
	return internal(op, err)
}
