package graph

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
)

// Error kinds surfaced by the closure and import operations. Callers test
// for them with errors.Is; the wrapping message carries the detail.
var (
	ErrNotFound               = errors.New("not found")
	ErrIntegrityViolation     = errors.New("integrity violation")
	ErrDuplicateName          = errors.New("duplicate network name")
	ErrUnsupportedEquivalence = errors.New("unsupported equivalence strategy")
	ErrConflict               = errors.New("conflict")
	ErrForbidden              = errors.New("forbidden")
	ErrInvalidInput           = errors.New("invalid input")
)

var kinds = []error{
	ErrNotFound,
	ErrIntegrityViolation,
	ErrDuplicateName,
	ErrUnsupportedEquivalence,
	ErrConflict,
	ErrForbidden,
	ErrInvalidInput,
}

// KindOf returns the sentinel an error was wrapped from, or nil when the
// error is a plain store failure.
func KindOf(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// NotFoundf wraps ErrNotFound with a formatted message
func NotFoundf(format string, args ...interface{}) error {
	return pkgerrors.Wrapf(ErrNotFound, format, args...)
}

// Integrityf wraps ErrIntegrityViolation with a formatted message
func Integrityf(format string, args ...interface{}) error {
	return pkgerrors.Wrapf(ErrIntegrityViolation, format, args...)
}

// Conflictf wraps ErrConflict with a formatted message
func Conflictf(format string, args ...interface{}) error {
	return pkgerrors.Wrapf(ErrConflict, format, args...)
}

func Invalidf(format string, args ...interface{}) error {
	return pkgerrors.Wrapf(ErrInvalidInput, format, args...)
}

func Forbiddenf(format string, args ...interface{}) error {
	return pkgerrors.Wrapf(ErrForbidden, format, args...)
}

var kindNames = map[error]string{
	ErrNotFound:               "not_found",
	ErrIntegrityViolation:     "integrity_violation",
	ErrDuplicateName:          "duplicate_name",
	ErrUnsupportedEquivalence: "unsupported_equivalence_strategy",
	ErrConflict:               "conflict",
	ErrForbidden:              "forbidden",
	ErrInvalidInput:           "invalid_input",
}

// KindName returns a short label for the error kind, "store" for errors that
// carry no kind and "" for nil.
func KindName(err error) string {
	if err == nil {
		return ""
	}
	if k := KindOf(err); k != nil {
		return kindNames[k]
	}
	return "store"
}
