package simpleauthority

import (
	"errors"
	"fmt"
)

// Store-level errors
var (
	// ErrAuthorityNotFound indicates an authority record was not found
	ErrAuthorityNotFound = errors.New("authority not found")

	// ErrItemNotFound indicates a content item was not found
	ErrItemNotFound = errors.New("item not found")

	// ErrTxDone indicates a transactional context was already released
	ErrTxDone = errors.New("transaction already committed or rolled back")

	// ErrBatchDone indicates an index batch was already committed or discarded
	ErrBatchDone = errors.New("index batch already committed or discarded")
)

// Rename error classes. Every error returned by Service.Rename matches
// exactly one of them with errors.Is.
var (
	// ErrDisabled indicates renames are switched off by configuration
	ErrDisabled = errors.New("rename disabled")

	// ErrUnauthorized indicates the caller is not an administrator
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound indicates the authority id is unknown
	ErrNotFound = errors.New("not found")

	// ErrUnsupportedKind indicates the authority kind cannot be renamed
	ErrUnsupportedKind = errors.New("unsupported authority kind")

	// ErrValidationFailure indicates the request is invalid
	ErrValidationFailure = errors.New("validation failure")

	// ErrStorageFailure indicates a store read or write failed
	ErrStorageFailure = errors.New("storage failure")

	// ErrIndexFailure indicates an index write or commit failed
	ErrIndexFailure = errors.New("index failure")
)

var errorClasses = []error{
	ErrDisabled,
	ErrUnauthorized,
	ErrNotFound,
	ErrUnsupportedKind,
	ErrValidationFailure,
	ErrStorageFailure,
	ErrIndexFailure,
}

// RenameError represents a failed rename
type RenameError struct {
	AuthorityID string
	Op          string
	Class       error
	Err         error
}

func (e *RenameError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("rename %s failed for authority %s: %v", e.Op, e.AuthorityID, e.Class)
	}
	return fmt.Sprintf("rename %s failed for authority %s: %v: %v", e.Op, e.AuthorityID, e.Class, e.Err)
}

func (e *RenameError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Class}
	}
	return []error{e.Class, e.Err}
}

func newRenameError(authorityID, op string, class, err error) *RenameError {
	return &RenameError{AuthorityID: authorityID, Op: op, Class: class, Err: err}
}

// ClassOf returns the rename error class matched by err, or nil.
func ClassOf(err error) error {
	if err == nil {
		return nil
	}
	var re *RenameError
	if errors.As(err, &re) {
		return re.Class
	}
	for _, class := range errorClasses {
		if errors.Is(err, class) {
			return class
		}
	}
	return nil
}

// outcomeOf names the outcome of a rename for observers and logs.
func outcomeOf(err error) string {
	switch ClassOf(err) {
	case nil:
		if err == nil {
			return "success"
		}
		return "unknown"
	case ErrDisabled:
		return "disabled"
	case ErrUnauthorized:
		return "unauthorized"
	case ErrNotFound:
		return "not_found"
	case ErrUnsupportedKind:
		return "unsupported_kind"
	case ErrValidationFailure:
		return "validation_failure"
	case ErrStorageFailure:
		return "storage_failure"
	case ErrIndexFailure:
		return "index_failure"
	default:
		return "unknown"
	}
}
