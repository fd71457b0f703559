// Copyright 2020-2023 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package reporter collects and classifies the errors and warnings produced
// while resolving, lexing, parsing, and building descriptors for a proto3
// file. It implements the error taxonomy described in the system's design
// notes on error handling.
package reporter

import (
	"errors"
	"fmt"

	"github.com/protoschema/protoschema/token"
)

// ErrInvalidSource is returned by a compilation step when one or more errors
// were reported but the caller's Reporter swallowed them without returning
// a non-nil error from ReportError.
var ErrInvalidSource = errors.New("invalid proto source")

// ErrorWithPos is an error about a proto source file that carries the
// position in the file that caused it. Every user-facing error produced by
// this module implements this interface.
type ErrorWithPos interface {
	error
	GetPosition() token.Position
	Unwrap() error
}

// Error creates a new ErrorWithPos from the given error and source position.
func Error(pos token.Position, err error) ErrorWithPos {
	return errorWithPos{pos: pos, underlying: err}
}

// Errorf creates a new ErrorWithPos whose underlying error is created using
// the given message format and arguments.
func Errorf(pos token.Position, format string, args ...interface{}) ErrorWithPos {
	return errorWithPos{pos: pos, underlying: fmt.Errorf(format, args...)}
}

type errorWithPos struct {
	underlying error
	pos        token.Position
}

func (e errorWithPos) Error() string {
	return fmt.Sprintf("%s: %v", e.pos, e.underlying)
}

func (e errorWithPos) GetPosition() token.Position { return e.pos }
func (e errorWithPos) Unwrap() error                { return e.underlying }

var _ ErrorWithPos = errorWithPos{}

// Reporter is supplied by a caller to receive errors and warnings as they
// occur, rather than only in the final accumulated list. Returning a non-nil
// error from ReportError aborts the operation immediately with that error.
type Reporter interface {
	ReportError(ErrorWithPos) error
	ReportWarning(ErrorWithPos)
}

// Handler accumulates errors (up to a configurable limit) and warnings for a
// single resolve/lex/parse/build operation. It implements the "accumulated
// error list capped at maxErrors" behavior used by the parser and resolver.
type Handler struct {
	rep       Reporter
	maxErrors int // 0 means unlimited

	errs     []ErrorWithPos
	warnings []ErrorWithPos
	aborted  error
}

// NewHandler returns a Handler that forwards to rep (if non-nil) and stops
// accumulating errors once maxErrors have been recorded (0 means unlimited).
func NewHandler(rep Reporter, maxErrors int) *Handler {
	return &Handler{rep: rep, maxErrors: maxErrors}
}

// HandleError records err. It returns a non-nil error only when the
// operation must stop immediately: either the wrapped Reporter asked to
// abort, or maxErrors was reached.
func (h *Handler) HandleError(err ErrorWithPos) error {
	if h.aborted != nil {
		return h.aborted
	}
	if h.rep != nil {
		if abortErr := h.rep.ReportError(err); abortErr != nil {
			h.aborted = abortErr
			return abortErr
		}
	}
	h.errs = append(h.errs, err)
	if h.maxErrors > 0 && len(h.errs) >= h.maxErrors {
		h.aborted = fmt.Errorf("%w: too many errors (%d)", ErrInvalidSource, len(h.errs))
		return h.aborted
	}
	return nil
}

// HandleErrorf is a convenience wrapper around HandleError and Errorf.
func (h *Handler) HandleErrorf(pos token.Position, format string, args ...interface{}) error {
	return h.HandleError(Errorf(pos, format, args...))
}

// HandleWarning records a non-fatal warning.
func (h *Handler) HandleWarning(err ErrorWithPos) {
	if h.rep != nil {
		h.rep.ReportWarning(err)
	}
	h.warnings = append(h.warnings, err)
}

// Errors returns every error recorded so far, in the order reported.
func (h *Handler) Errors() []ErrorWithPos { return h.errs }

// Aborted reports whether the handler has stopped accepting further errors
// (maxErrors reached, or the wrapped Reporter asked to abort). Callers
// driving a multi-step production (parsing a whole file) should stop doing
// further work once this is true.
func (h *Handler) Aborted() bool { return h.aborted != nil }

// Warnings returns every warning recorded so far, in the order reported.
func (h *Handler) Warnings() []ErrorWithPos { return h.warnings }

// Error returns ErrInvalidSource if any error was recorded (or the reporter's
// own abort error), else nil. This is the single value a caller should check
// to decide whether a parse/build/resolve operation succeeded.
func (h *Handler) Error() error {
	if h.aborted != nil {
		return h.aborted
	}
	if len(h.errs) > 0 {
		return ErrInvalidSource
	}
	return nil
}

// Custom error types that carry additional structured information for a
// subset of the taxonomy that downstream callers commonly want to inspect
// programmatically (e.g. to offer a quick-fix). The remaining kinds are
// represented as plain formatted errors created via Errorf, since callers
// rarely need anything beyond the message and position for those.

// AlreadyDefinedError reports a duplicate type, field, or package name.
type AlreadyDefinedError struct {
	Name               string
	isPkg              bool
	PreviousDefinition token.Position
}

func AlreadyDefined(name string, previousDefinition token.Position) AlreadyDefinedError {
	return AlreadyDefinedError{Name: name, PreviousDefinition: previousDefinition}
}

func AlreadyDefinedAsPkg(name string, previousDefinition token.Position) AlreadyDefinedError {
	return AlreadyDefinedError{Name: name, isPkg: true, PreviousDefinition: previousDefinition}
}

func (e AlreadyDefinedError) Error() string {
	var asPkg string
	if e.isPkg {
		asPkg = " as a package"
	}
	return fmt.Sprintf("%q already defined%s at %s", e.Name, asPkg, e.PreviousDefinition)
}

// DuplicateFieldNumberError is spec error kind DuplicateFieldNumber.
type DuplicateFieldNumberError struct {
	Number    int32
	InMessage string
}

func (e DuplicateFieldNumberError) Error() string {
	return fmt.Sprintf("field number %d is already in use in message %q", e.Number, e.InMessage)
}

// UndefinedTypeError is spec error kind UndefinedType.
type UndefinedTypeError struct {
	Reference string
	Container string
}

func (e UndefinedTypeError) Error() string {
	return fmt.Sprintf("%q is not defined (referenced from %q)", e.Reference, e.Container)
}

// CircularDependencyError is spec error kind CircularDependency.
type CircularDependencyError struct {
	Chain []string
}

func (e CircularDependencyError) Error() string {
	return fmt.Sprintf("circular import: %s", joinArrow(e.Chain))
}

func joinArrow(chain []string) string {
	s := ""
	for i, c := range chain {
		if i > 0 {
			s += " -> "
		}
		s += c
	}
	return s
}
