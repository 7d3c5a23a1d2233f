package library

import (
	"errors"
	"fmt"
)

// Error kinds returned by the catalog, patron registry and lending engine.
// Match them with errors.Is.
var (
	// ErrNotFound is returned when a referenced id does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidReference is returned when a foreign key target is missing at create or update time.
	ErrInvalidReference = errors.New("invalid reference")

	// ErrInvalidFormat is returned when a value fails validation, e.g. an email without "@".
	ErrInvalidFormat = errors.New("invalid format")

	// ErrAlreadyBorrowed is returned when borrowing a book that is already out.
	ErrAlreadyBorrowed = errors.New("already borrowed")

	// ErrNoActiveBorrow is returned when returning a book that is not out.
	ErrNoActiveBorrow = errors.New("no active borrow")

	// ErrIntegrityViolation signals stored state contradicting the lending invariant.
	// It indicates a defect and is never repaired automatically.
	ErrIntegrityViolation = errors.New("integrity violation")

	// ErrStorageFailure wraps any error reported by the underlying store.
	ErrStorageFailure = errors.New("storage failure")
)

// Error carries an error kind together with the offending entity and value.
type Error struct {
	Kind   error  // one of the Err* kinds above
	Entity string // "author", "book", "patron" or "borrow record"
	ID     int64
	Value  string
	Err    error // underlying cause, if any
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	switch {
	case e.Entity != "" && e.ID != 0:
		msg = fmt.Sprintf("%s %d: %s", e.Entity, e.ID, msg)
	case e.Entity != "":
		msg = fmt.Sprintf("%s: %s", e.Entity, msg)
	}
	if e.Value != "" {
		msg += ": " + e.Value
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindName returns a stable label for the kind of err, or "" for nil.
func KindName(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrInvalidReference):
		return "InvalidReference"
	case errors.Is(err, ErrInvalidFormat):
		return "InvalidFormat"
	case errors.Is(err, ErrAlreadyBorrowed):
		return "AlreadyBorrowed"
	case errors.Is(err, ErrNoActiveBorrow):
		return "NoActiveBorrow"
	case errors.Is(err, ErrIntegrityViolation):
		return "IntegrityViolation"
	default:
		return "StorageFailure"
	}
}

func notFound(entity string, id int64) error {
	return &Error{Kind: ErrNotFound, Entity: entity, ID: id}
}

func invalidReference(entity string, id int64) error {
	return &Error{Kind: ErrInvalidReference, Entity: entity, ID: id}
}

func integrityViolation(bookID int64, format string, args ...any) error {
	return &Error{Kind: ErrIntegrityViolation, Entity: "book", ID: bookID, Value: fmt.Sprintf(format, args...)}
}

// storageFailure wraps a store error once. Typed errors pass through untouched.
func storageFailure(err error) error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return err
	}
	return &Error{Kind: ErrStorageFailure, Err: err}
}
