// Package mirrorerrors is the closed error taxonomy of the mirror library.
//
// Every error a mirror operation returns is an *Error of one of the kinds
// in Kinds. FromError maps arbitrary host failures into the taxonomy.
package mirrorerrors

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/daimatz/mirror/pkg/classfile"
	"github.com/daimatz/mirror/pkg/loader"
	"github.com/daimatz/mirror/pkg/signature"
)

// Error is a categorized mirror failure.
type Error struct {
	kind    Kind
	message string
	cause   error
	path    []string
}

// Newf returns a new Error. The format may wrap a cause with %w.
//
// The Kind should never be KindNone, if it is, this will return nil.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	if kind == KindNone {
		return nil
	}
	var err error
	if len(args) == 0 {
		err = errors.New(format)
	} else {
		err = fmt.Errorf(format, args...)
	}
	return &Error{kind: kind, message: err.Error(), cause: errors.Unwrap(err)}
}

// CyclicHierarchy returns a KindCyclicHierarchy error for the given path,
// which starts and ends with the same type.
func CyclicHierarchy(path []string) *Error {
	return &Error{
		kind:    KindCyclicHierarchy,
		message: "supertype cycle: " + strings.Join(path, " -> "),
		path:    append([]string(nil), path...),
	}
}

// FromError returns the Error for err.
//
// If the error:
//   - is nil, return nil
//   - is or wraps an *Error, return that *Error
//   - is a loader access denial or a permission error, return
//     KindInaccessibleDescriptor
//   - is a class-file format error, a signature syntax error or a class
//     stored under the wrong name, return KindMalformedDescriptor
//
// Otherwise, return a KindReflectiveOperation error. The original error is
// kept as the cause and its message as the message.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{kind: classify(err), message: err.Error(), cause: err}
}

func classify(err error) Kind {
	var (
		denied   *loader.AccessDeniedError
		format   *classfile.FormatError
		syntax   *signature.SyntaxError
		mismatch *loader.NameMismatchError
	)
	switch {
	case errors.As(err, &denied), errors.Is(err, fs.ErrPermission):
		return KindInaccessibleDescriptor
	case errors.As(err, &format), errors.As(err, &syntax), errors.As(err, &mismatch):
		return KindMalformedDescriptor
	default:
		return KindReflectiveOperation
	}
}

// Wrapf maps err with FromError and prefixes its message with context.
// The kind and cause are kept.
func Wrapf(err error, format string, args ...interface{}) *Error {
	e := FromError(err)
	if e == nil {
		return nil
	}
	return &Error{
		kind:    e.kind,
		message: fmt.Sprintf(format, args...) + ": " + e.message,
		cause:   e.causeOrSelf(),
		path:    e.path,
	}
}

func (e *Error) causeOrSelf() error {
	if e.cause != nil {
		return e.cause
	}
	return e
}

// KindOf returns the kind of err after mapping, or KindNone for nil.
func KindOf(err error) Kind {
	return FromError(err).Kind()
}

// Kind returns the kind of the Error.
func (e *Error) Kind() Kind {
	if e == nil {
		return KindNone
	}
	return e.kind
}

// Message returns the error message without the kind prefix.
func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

// Path returns the cycle of a KindCyclicHierarchy error.
func (e *Error) Path() []string {
	if e == nil {
		return nil
	}
	return e.path
}

// Unwrap supports errors.Unwrap.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Error implements the error interface.
func (e *Error) Error() string {
	buffer := bytes.NewBuffer(nil)
	_, _ = buffer.WriteString(`kind:`)
	_, _ = buffer.WriteString(e.kind.String())
	if e.message != "" {
		_, _ = buffer.WriteString(` message:`)
		_, _ = buffer.WriteString(e.message)
	}
	return buffer.String()
}

// IsInaccessibleDescriptor returns true if FromError(err).Kind() == KindInaccessibleDescriptor.
func IsInaccessibleDescriptor(err error) bool {
	return KindOf(err) == KindInaccessibleDescriptor
}

// IsMalformedDescriptor returns true if FromError(err).Kind() == KindMalformedDescriptor.
func IsMalformedDescriptor(err error) bool {
	return KindOf(err) == KindMalformedDescriptor
}

// IsCyclicHierarchy returns true if FromError(err).Kind() == KindCyclicHierarchy.
func IsCyclicHierarchy(err error) bool {
	return KindOf(err) == KindCyclicHierarchy
}

// IsUnresolvedBinding returns true if FromError(err).Kind() == KindUnresolvedBinding.
func IsUnresolvedBinding(err error) bool {
	return KindOf(err) == KindUnresolvedBinding
}

// IsReflectiveOperation returns true if FromError(err).Kind() == KindReflectiveOperation.
func IsReflectiveOperation(err error) bool {
	return KindOf(err) == KindReflectiveOperation
}
