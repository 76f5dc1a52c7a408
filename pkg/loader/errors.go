package loader

import (
	"errors"
	"fmt"
)

// NotFoundError reports a class that no source could supply.
type NotFoundError struct {
	Name   string
	Source string
	// Err carries the per-source failures of a chain, if any.
	Err error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("loader: class %s not found in %s", e.Name, e.Source)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// AccessDeniedError reports a class whose bytes the loader may not read,
// either because a Policy refused the name or because the host denied the
// read itself.
type AccessDeniedError struct {
	Name   string
	Reason string
	Err    error
}

func (e *AccessDeniedError) Error() string {
	msg := fmt.Sprintf("loader: access to %s denied", e.Name)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AccessDeniedError) Unwrap() error { return e.Err }

// NameMismatchError reports a class file whose this_class does not match
// the name it was stored under.
type NameMismatchError struct {
	Want   string
	Got    string
	Source string
}

func (e *NameMismatchError) Error() string {
	return fmt.Sprintf("loader: %s in %s declares class %s", e.Want, e.Source, e.Got)
}

// IsNotFound reports whether err is or wraps a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
