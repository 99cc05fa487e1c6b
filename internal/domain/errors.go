package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies operation failures so callers can branch on the
// kind instead of sniffing message strings.
type ErrorKind string

const (
	KindNotFound          ErrorKind = "not_found"
	KindConflict          ErrorKind = "conflict"
	KindValidation        ErrorKind = "validation"
	KindInconsistentState ErrorKind = "inconsistent_state"
	KindInternal          ErrorKind = "internal"
)

// Error is the typed failure returned by every table/bill/order operation.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Inconsistentf(format string, args ...any) *Error {
	return &Error{Kind: KindInconsistentState, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from an operation error. Unclassified errors
// (storage failures, broken pipes) report KindInternal.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
