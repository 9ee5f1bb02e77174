// Package status defines the fixed error taxonomy for the BriarSQL boundary
// and the translation of arbitrary failures onto it.
//
// Every operation that crosses the boundary reports failure as a status
// code. Structured failures keep their original code; anything unstructured
// (a foreign error, a panic) collapses to RuntimeError. Translation is
// total: no fault propagates past the boundary without a code.
package status

import (
	"errors"
	"fmt"
)

// Code is a member of the status taxonomy.
//
// The numeric values are a wire and API contract shared with the native
// engine and must never be renumbered.
type Code int

const (
	// OK indicates success.
	OK Code = 0
	// NoMoreElements indicates an exhausted cursor, iterator, or stream.
	NoMoreElements Code = 1
	// InvalidTypeCast indicates an element or column type mismatch.
	InvalidTypeCast Code = 2
	// CompileError indicates the SQL text failed to parse or prepare.
	CompileError Code = 3
	// NotSingleValue indicates a scalar was requested from a multi-value result.
	NotSingleValue Code = 4
	// InvalidOperation indicates an operation applied to a value of the wrong type.
	InvalidOperation Code = 5
	// IndexOutOfBounds indicates an ordinal index outside the valid range.
	IndexOutOfBounds Code = 6
	// NotEnoughMemory indicates an allocator budget or native allocation failure.
	NotEnoughMemory Code = 7
	// NotUnique indicates a uniqueness constraint violation.
	NotUnique Code = 8
	// NotPrepared indicates execution of a statement that was never prepared.
	NotPrepared Code = 9
	// RuntimeError is the collapse point for unstructured native failures.
	RuntimeError Code = 10
	// CommunicationError indicates a network or transport failure.
	CommunicationError Code = 11
	// UpgradeNotPossible indicates a transaction could not be upgraded.
	UpgradeNotPossible Code = 12
	// Conflict indicates a transaction conflict or busy engine.
	Conflict Code = 13
	// NullReference indicates a required handle or reference was nil.
	NullReference Code = 14
	// InvalidState indicates use of a destroyed or not-yet-ready object.
	InvalidState Code = 15
	// InvalidOperand indicates a malformed operand such as a bad literal.
	InvalidOperand Code = 16
	// NullValue indicates an unexpected SQL NULL.
	NullValue Code = 17
	// BadCSVFormat indicates malformed CSV input during bulk load.
	BadCSVFormat Code = 18
	// SystemError indicates an operating system level failure.
	SystemError Code = 19
)

var codeNames = map[Code]string{
	OK:                 "ok",
	NoMoreElements:     "no more elements",
	InvalidTypeCast:    "invalid type cast",
	CompileError:       "compile error",
	NotSingleValue:     "not single value",
	InvalidOperation:   "invalid operation",
	IndexOutOfBounds:   "index out of bounds",
	NotEnoughMemory:    "not enough memory",
	NotUnique:          "not unique",
	NotPrepared:        "not prepared",
	RuntimeError:       "runtime error",
	CommunicationError: "communication error",
	UpgradeNotPossible: "upgrade not possible",
	Conflict:           "conflict",
	NullReference:      "null reference",
	InvalidState:       "invalid state",
	InvalidOperand:     "invalid operand",
	NullValue:          "null value",
	BadCSVFormat:       "bad csv format",
	SystemError:        "system error",
}

// String returns the human-readable name of the code.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(c))
}

// Error is a status-carrying error. It is the only error type that crosses
// the boundary; everything else is wrapped into one before returning.
type Error struct {
	Code Code   // taxonomy member, never OK
	Op   string // operation that failed (e.g. "value.Int"), may be empty
	Msg  string // human-readable detail, may be empty
	Err  error  // underlying error, if any
}

func (e *Error) Error() string {
	s := e.Code.String()
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a status error with the same code. This lets
// errors.Is(err, &status.Error{Code: status.Conflict}) match regardless of
// message and wrapping depth.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// New creates a status error with a message.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// Newf creates a status error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and operation to an underlying error.
// If err is nil, returns nil.
func Wrap(code Code, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Op: op, Err: err}
}

// Opf creates a status error naming the failing operation.
func Opf(code Code, op, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// CodeOf translates any error into a taxonomy member. It is total:
// nil maps to OK, a status error keeps its code through any amount of
// fmt.Errorf wrapping, and every other error collapses to RuntimeError.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return RuntimeError
}

// Is reports whether err carries the given code. A nil error carries OK and
// nothing else; a foreign error carries RuntimeError.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// Normalize guarantees err carries a status. A nil error and a
// status-carrying error pass through unchanged; anything else is wrapped
// as a RuntimeError attributed to op.
func Normalize(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Code: RuntimeError, Op: op, Err: err}
}

// Guard converts a panic in the surrounding function into a RuntimeError
// status. Boundary entry points defer it so that no native fault, however
// it surfaces, escapes untranslated:
//
//	func Execute(...) (err error) {
//	    defer status.Guard("engine.Execute", &err)
//	    ...
//	}
func Guard(op string, errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if err, ok := r.(error); ok {
		*errp = &Error{Code: RuntimeError, Op: op, Msg: "panic", Err: err}
		return
	}
	*errp = Opf(RuntimeError, op, "panic: %v", r)
}
