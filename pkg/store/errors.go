package store

import "errors"

// StoreError represents a domain error from collection operations.
//
// These are business logic errors (document not found, duplicate name, etc.)
// as opposed to infrastructure errors (disk failure, permission problems),
// which are returned wrapped as-is.
type StoreError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Path is the collection-relative path related to the error (if applicable)
	Path string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// Is matches any StoreError carrying the same Code, so callers can write
//
//	errors.Is(err, &store.StoreError{Code: store.ErrNotFound})
func (e *StoreError) Is(target error) bool {
	var other *StoreError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// ErrorCode returns the code name, used as a metrics label.
func (e *StoreError) ErrorCode() string {
	return e.Code.String()
}

// ErrorCode represents the category of a store error.
type ErrorCode int

const (
	// ErrNotFound indicates the requested document doesn't exist
	ErrNotFound ErrorCode = iota

	// ErrInvalidIdentifier indicates a malformed or unsafe identifier
	ErrInvalidIdentifier

	// ErrDuplicateIdentifier indicates the target path of a create or
	// update is already occupied
	ErrDuplicateIdentifier

	// ErrConflictExists indicates an archive/backup target already exists
	ErrConflictExists

	// ErrNotDirectory indicates an operation expected a directory
	ErrNotDirectory

	// ErrArchiveFailed indicates an external archive or copy utility
	// reported an error
	ErrArchiveFailed

	// ErrInvalidArgument indicates invalid parameters were provided
	ErrInvalidArgument

	// ErrIOError indicates an unexpected filesystem failure
	ErrIOError
)

func (c ErrorCode) String() string {
	switch c {
	case ErrNotFound:
		return "NotFound"
	case ErrInvalidIdentifier:
		return "InvalidIdentifier"
	case ErrDuplicateIdentifier:
		return "DuplicateIdentifier"
	case ErrConflictExists:
		return "ConflictExists"
	case ErrNotDirectory:
		return "NotDirectory"
	case ErrArchiveFailed:
		return "ArchiveFailed"
	case ErrInvalidArgument:
		return "InvalidArgument"
	case ErrIOError:
		return "IOError"
	default:
		return "Unknown"
	}
}

// NewError builds a StoreError.
func NewError(code ErrorCode, message, path string) *StoreError {
	return &StoreError{Code: code, Message: message, Path: path}
}

// CodeOf extracts the ErrorCode of err. ok is false if err is not a StoreError.
func CodeOf(err error) (code ErrorCode, ok bool) {
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return storeErr.Code, true
	}
	return 0, false
}

func hasCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

// IsNotFound reports whether err is a NotFound store error.
func IsNotFound(err error) bool { return hasCode(err, ErrNotFound) }

// IsDuplicate reports whether err is a DuplicateIdentifier store error.
func IsDuplicate(err error) bool { return hasCode(err, ErrDuplicateIdentifier) }

// IsConflict reports whether err is a ConflictExists store error.
func IsConflict(err error) bool { return hasCode(err, ErrConflictExists) }

// IsInvalidIdentifier reports whether err is an InvalidIdentifier store error.
func IsInvalidIdentifier(err error) bool { return hasCode(err, ErrInvalidIdentifier) }
