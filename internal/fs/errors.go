package fs

import (
	"context"
	"errors"
	iofs "io/fs"
	"syscall"
)

// Error kinds. Every failure surfaced by the engine wraps exactly one of these,
// so callers branch with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrNotADirectory    = errors.New("not a directory")
	ErrPermissionDenied = errors.New("permission denied")
	ErrAlreadyExists    = errors.New("already exists")
	ErrIO               = errors.New("i/o error")
	ErrWatchFailure     = errors.New("watch failure")
	ErrInvalidPattern   = errors.New("invalid pattern")
	ErrInvalidSelection = errors.New("invalid selection")
	ErrStaleSnapshot    = errors.New("stale snapshot")
	ErrCancelled        = errors.New("cancelled")
)

// Error records an operation, the path it failed on and the error kind.
type Error struct {
	Op   string
	Path string
	Kind error // one of the Err* kinds above
	Err  error // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	msg += ": " + e.Kind.Error()
	if e.Err != nil && e.Err != e.Kind {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewError builds an *Error with an explicit kind.
func NewError(op, path string, kind, cause error) *Error {
	return &Error{Op: op, Path: path, Kind: kind, Err: cause}
}

// Classify maps an os/syscall error onto the error taxonomy. Errors that are
// already classified are returned unchanged.
func Classify(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return err
	}
	return &Error{Op: op, Path: path, Kind: KindOf(err), Err: err}
}

// KindOf returns the taxonomy kind for err, ErrIO when nothing more specific fits.
func KindOf(err error) error {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrCancelled
	case errors.Is(err, iofs.ErrNotExist):
		return ErrNotFound
	case errors.Is(err, iofs.ErrPermission):
		return ErrPermissionDenied
	case errors.Is(err, iofs.ErrExist):
		return ErrAlreadyExists
	case errors.Is(err, syscall.ENOTDIR):
		return ErrNotADirectory
	}
	return ErrIO
}
