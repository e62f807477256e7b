package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies pipeline and request failures.
type ErrorKind string

const (
	KindNotFound     ErrorKind = "not_found"
	KindParse        ErrorKind = "parse"
	KindSchema       ErrorKind = "schema"
	KindTraining     ErrorKind = "training"
	KindValidation   ErrorKind = "validation"
	KindUnknownAsset ErrorKind = "unknown_asset"
)

// Sentinels for errors.Is. Matching compares the kind only.
var (
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrParse        = &Error{Kind: KindParse}
	ErrSchema       = &Error{Kind: KindSchema}
	ErrTraining     = &Error{Kind: KindTraining}
	ErrValidation   = &Error{Kind: KindValidation}
	ErrUnknownAsset = &Error{Kind: KindUnknownAsset}
)

// Error is the single error type returned by the load/train/predict pipeline.
type Error struct {
	Kind  ErrorKind
	Op    string
	Asset string
	Field string
	Err   error
}

// NewError creates an error of the given kind wrapping cause.
func NewError(kind ErrorKind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// Errorf creates an error of the given kind with a formatted cause.
func Errorf(kind ErrorKind, op, format string, a ...interface{}) *Error {
	return NewError(kind, op, fmt.Errorf(format, a...))
}

// WithAsset sets the asset the error refers to.
func (e *Error) WithAsset(asset string) *Error {
	e.Asset = asset
	return e
}

// WithField sets the offending field or column.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(strings.ReplaceAll(string(e.Kind), "_", " "))
	b.WriteString(" error")
	if e.Asset != "" {
		fmt.Fprintf(&b, " [asset=%s]", e.Asset)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " [field=%s]", e.Field)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
