package status

import (
	"errors"
	"fmt"
	"testing"
)

// The numeric values are shared with the native engine and the remote
// protocol; renumbering them is a breaking change.
func TestCodeValuesAreStable(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{OK, 0},
		{NoMoreElements, 1},
		{InvalidTypeCast, 2},
		{CompileError, 3},
		{NotSingleValue, 4},
		{InvalidOperation, 5},
		{IndexOutOfBounds, 6},
		{NotEnoughMemory, 7},
		{NotUnique, 8},
		{NotPrepared, 9},
		{RuntimeError, 10},
		{CommunicationError, 11},
		{UpgradeNotPossible, 12},
		{Conflict, 13},
		{NullReference, 14},
		{InvalidState, 15},
		{InvalidOperand, 16},
		{NullValue, 17},
		{BadCSVFormat, 18},
		{SystemError, 19},
	}

	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			if int(tt.code) != tt.want {
				t.Errorf("Code %s = %d, want %d", tt.code, int(tt.code), tt.want)
			}
		})
	}
}

func TestCodeString(t *testing.T) {
	if got := Conflict.String(); got != "conflict" {
		t.Errorf("Conflict.String() = %q, want %q", got, "conflict")
	}
	if got := Code(99).String(); got != "status(99)" {
		t.Errorf("Code(99).String() = %q, want %q", got, "status(99)")
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "code only",
			err:  &Error{Code: InvalidOperation},
			want: "invalid operation",
		},
		{
			name: "with op",
			err:  &Error{Code: InvalidOperation, Op: "value.Int"},
			want: "value.Int: invalid operation",
		},
		{
			name: "with message",
			err:  New(InvalidTypeCast, "expected int8 element"),
			want: "invalid type cast: expected int8 element",
		},
		{
			name: "with everything",
			err:  &Error{Code: RuntimeError, Op: "sqlite.Exec", Msg: "step failed", Err: errors.New("disk I/O error")},
			want: "sqlite.Exec: runtime error: step failed: disk I/O error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCodeOfIsTotal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"nil is ok", nil, OK},
		{"status error keeps code", New(Conflict, "busy"), Conflict},
		{"wrapped status keeps code", fmt.Errorf("retrying: %w", New(Conflict, "busy")), Conflict},
		{"deeply wrapped status keeps code", fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", Newf(NotUnique, "key %d", 7))), NotUnique},
		{"foreign error collapses", errors.New("something else"), RuntimeError},
		{"wrap attaches code", Wrap(CompileError, "prepare", errors.New("syntax error")), CompileError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIs(t *testing.T) {
	err := Opf(IndexOutOfBounds, "array.GetAt", "index 5 of 3")
	if !Is(err, IndexOutOfBounds) {
		t.Error("Is() = false for matching code")
	}
	if Is(err, InvalidOperation) {
		t.Error("Is() = true for non-matching code")
	}
	if !Is(nil, OK) {
		t.Error("Is(nil, OK) = false")
	}
	if Is(nil, RuntimeError) {
		t.Error("Is(nil, RuntimeError) = true")
	}

	// errors.Is compatibility through the Is method
	if !errors.Is(fmt.Errorf("ctx: %w", err), &Error{Code: IndexOutOfBounds}) {
		t.Error("errors.Is() did not match code through wrapping")
	}
}

func TestWrapNil(t *testing.T) {
	if got := Wrap(RuntimeError, "op", nil); got != nil {
		t.Errorf("Wrap(nil) = %v, want nil", got)
	}
	if got := Normalize("op", nil); got != nil {
		t.Errorf("Normalize(nil) = %v, want nil", got)
	}
}

func TestNormalize(t *testing.T) {
	orig := New(NullValue, "column 2")
	if got := Normalize("exec", orig); got != orig {
		t.Errorf("Normalize() rewrapped a status error: %v", got)
	}

	foreign := errors.New("driver fault")
	got := Normalize("exec", foreign)
	if CodeOf(got) != RuntimeError {
		t.Errorf("Normalize(foreign) code = %v, want RuntimeError", CodeOf(got))
	}
	if !errors.Is(got, foreign) {
		t.Error("Normalize(foreign) lost the underlying error")
	}
}

func TestGuardRecoversPanics(t *testing.T) {
	boundary := func(f func()) (err error) {
		defer Guard("test.boundary", &err)
		f()
		return nil
	}

	tests := []struct {
		name  string
		panic func()
		want  Code
	}{
		{"string panic", func() { panic("index corrupted") }, RuntimeError},
		{"error panic", func() { panic(errors.New("native fault")) }, RuntimeError},
		{"no panic", func() {}, OK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := boundary(tt.panic)
			if got := CodeOf(err); got != tt.want {
				t.Errorf("CodeOf() after boundary = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGuardKeepsPanicCause(t *testing.T) {
	cause := errors.New("native fault")
	f := func() (err error) {
		defer Guard("test.boundary", &err)
		panic(cause)
	}
	if err := f(); !errors.Is(err, cause) {
		t.Errorf("Guard lost the panic cause: %v", err)
	}
}
