package common

import (
	"errors"
	"fmt"
)

// Error kinds. Callers should use errors.Is to match these values; an
// *OpError unwraps to both its kind and its cause.
var (
	// ErrValidation marks bad caller input. Never retried.
	ErrValidation = errors.New("validation error")

	// ErrConflict marks a name collision on ingest.
	ErrConflict = errors.New("conflict")

	// ErrStorageIO marks disk or permission failures.
	ErrStorageIO = errors.New("storage i/o error")

	// ErrNotFound marks an unknown album or artifact.
	ErrNotFound = errors.New("not found")

	// ErrThumbnailEncode marks a failed thumbnail decode/encode. Non-fatal
	// to ingest.
	ErrThumbnailEncode = errors.New("thumbnail encode error")

	// ErrInvalidToken is returned when a deletion token does not match.
	ErrInvalidToken = errors.New("invalid token")

	ErrorInternal = errors.New("internal error")
)

// OpError attaches an operation name and an error kind to a cause.
type OpError struct {
	Op   string
	Kind error
	Err  error
}

func (e *OpError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewError builds an *OpError of the given kind.
func NewError(kind error, op string, err error) error {
	return &OpError{Op: op, Kind: kind, Err: err}
}

// Validation is shorthand for a formatted ErrValidation.
func Validation(op, format string, args ...any) error {
	return &OpError{Op: op, Kind: ErrValidation, Err: fmt.Errorf(format, args...)}
}

// Conflict reports that name already exists.
func Conflict(op, name string) error {
	return &OpError{Op: op, Kind: ErrConflict, Err: fmt.Errorf("%q already exists", name)}
}

// StorageIO wraps a filesystem failure.
func StorageIO(op string, err error) error {
	return &OpError{Op: op, Kind: ErrStorageIO, Err: err}
}

// NotFound reports a missing album or artifact.
func NotFound(op, what string) error {
	return &OpError{Op: op, Kind: ErrNotFound, Err: errors.New(what)}
}

// KindOf returns the taxonomy kind carried by err, or ErrorInternal.
func KindOf(err error) error {
	for _, k := range []error{ErrValidation, ErrConflict, ErrNotFound, ErrInvalidToken, ErrThumbnailEncode, ErrStorageIO} {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrorInternal
}
