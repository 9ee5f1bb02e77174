package value

import (
	"encoding/binary"
	"testing"

	"github.com/FocuswithJustin/BriarSQL/core/arena"
	"github.com/FocuswithJustin/BriarSQL/core/status"
)

func TestArraySetGet(t *testing.T) {
	a := newTestArena(t)

	av, err := NewArray(a, TypeInt8, 3)
	if err != nil {
		t.Fatalf("NewArray() = %v", err)
	}
	arr, err := av.Array()
	if err != nil {
		t.Fatalf("Array() = %v", err)
	}

	seven, err := NewInt(a, 7)
	if err != nil {
		t.Fatalf("NewInt() = %v", err)
	}
	if err := arr.SetAt(1, seven); err != nil {
		t.Fatalf("SetAt(1) = %v", err)
	}

	ref, err := arr.GetAt(1)
	if err != nil {
		t.Fatalf("GetAt(1) = %v", err)
	}
	defer ref.Release()
	got, err := ref.Value().Int()
	if err != nil {
		t.Fatalf("Int() = %v", err)
	}
	if got != 7 {
		t.Errorf("GetAt(1) = %d, want 7", got)
	}

	// Untouched slots read back as zero values.
	ref0, err := arr.GetAt(0)
	if err != nil {
		t.Fatalf("GetAt(0) = %v", err)
	}
	defer ref0.Release()
	if got, _ := ref0.Value().Int(); got != 0 {
		t.Errorf("GetAt(0) on fresh array = %d, want 0", got)
	}
}

func TestArraySetAtTypeMismatch(t *testing.T) {
	a := newTestArena(t)

	av, err := NewArray(a, TypeInt8, 3)
	if err != nil {
		t.Fatalf("NewArray() = %v", err)
	}
	arr, _ := av.Array()

	strV, err := NewString(a, "x")
	if err != nil {
		t.Fatalf("NewString() = %v", err)
	}
	err = arr.SetAt(1, strV)
	if !status.Is(err, status.InvalidTypeCast) {
		t.Errorf("SetAt(string into int array) = %v, want invalid type cast", err)
	}

	err = arr.SetAt(0, Null())
	if !status.Is(err, status.InvalidTypeCast) {
		t.Errorf("SetAt(null into int array) = %v, want invalid type cast", err)
	}

	realV, _ := NewReal(a, 1.5)
	err = arr.SetAt(0, realV)
	if !status.Is(err, status.InvalidTypeCast) {
		t.Errorf("SetAt(real into int array) = %v, want invalid type cast", err)
	}
}

func TestArrayWidthReconciliation(t *testing.T) {
	a := newTestArena(t)

	// Int8 scalars store into narrow integer arrays; the width is part of
	// the array, not the scalar.
	av, err := NewArray(a, TypeInt2, 2)
	if err != nil {
		t.Fatalf("NewArray() = %v", err)
	}
	arr, _ := av.Array()

	v, _ := NewInt(a, -1234)
	if err := arr.SetAt(0, v); err != nil {
		t.Fatalf("SetAt() = %v", err)
	}
	ref, err := arr.GetAt(0)
	if err != nil {
		t.Fatalf("GetAt() = %v", err)
	}
	defer ref.Release()
	if ref.Value().Type() != TypeInt2 {
		t.Errorf("element type = %v, want int2", ref.Value().Type())
	}
	if got, _ := ref.Value().Int(); got != -1234 {
		t.Errorf("element = %d, want -1234", got)
	}
}

func TestArrayBounds(t *testing.T) {
	a := newTestArena(t)

	av, _ := NewArray(a, TypeInt8, 2)
	arr, _ := av.Array()
	v, _ := NewInt(a, 1)

	tests := []struct {
		name string
		call func() error
	}{
		{"get negative", func() error { _, err := arr.GetAt(-1); return err }},
		{"get past end", func() error { _, err := arr.GetAt(2); return err }},
		{"set negative", func() error { return arr.SetAt(-1, v) }},
		{"set past end", func() error { return arr.SetAt(2, v) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !status.Is(err, status.IndexOutOfBounds) {
				t.Errorf("got %v, want index out of bounds", err)
			}
		})
	}
}

func TestArrayPlainFlag(t *testing.T) {
	a := newTestArena(t)

	plain, _ := NewArray(a, TypeReal8, 1)
	arrPlain, _ := plain.Array()
	if !arrPlain.Plain() {
		t.Error("real8 array is not plain")
	}

	boxed, _ := NewArray(a, TypeString, 1)
	arrBoxed, _ := boxed.Array()
	if arrBoxed.Plain() {
		t.Error("string array is plain")
	}

	numArr, _ := NewArray(a, TypeNumeric, 1)
	arrNum, _ := numArr.Array()
	if arrNum.Plain() {
		t.Error("numeric array is plain; per-element precision needs boxing")
	}
}

func TestArraySetBody(t *testing.T) {
	a := newTestArena(t)

	av, err := NewArray(a, TypeInt4, 2)
	if err != nil {
		t.Fatalf("NewArray() = %v", err)
	}
	arr, _ := av.Array()

	// Three little-endian int4 elements replace the original two.
	raw := make([]byte, 12)
	binary.LittleEndian.PutUint32(raw[0:], 100)
	binary.LittleEndian.PutUint32(raw[4:], 200)
	binary.LittleEndian.PutUint32(raw[8:], 300)
	if err := arr.SetBody(raw); err != nil {
		t.Fatalf("SetBody() = %v", err)
	}

	n, err := arr.Len()
	if err != nil {
		t.Fatalf("Len() = %v", err)
	}
	if n != 3 {
		t.Errorf("Len() after SetBody = %d, want 3", n)
	}
	ref, err := arr.GetAt(2)
	if err != nil {
		t.Fatalf("GetAt(2) = %v", err)
	}
	defer ref.Release()
	if got, _ := ref.Value().Int(); got != 300 {
		t.Errorf("element 2 = %d, want 300", got)
	}
}

func TestArraySetBodyRejectsRaggedBuffer(t *testing.T) {
	a := newTestArena(t)

	av, _ := NewArray(a, TypeInt4, 1)
	arr, _ := av.Array()
	err := arr.SetBody(make([]byte, 5))
	if !status.Is(err, status.InvalidOperand) {
		t.Errorf("SetBody(5 bytes into int4 array) = %v, want invalid operand", err)
	}
}

func TestArraySetBodyRejectsBoxed(t *testing.T) {
	a := newTestArena(t)

	av, _ := NewArray(a, TypeString, 1)
	arr, _ := av.Array()
	err := arr.SetBody([]byte{0})
	if !status.Is(err, status.InvalidOperation) {
		t.Errorf("SetBody() on boxed array = %v, want invalid operation", err)
	}
}

func TestArraySetElems(t *testing.T) {
	a := newTestArena(t)

	av, _ := NewArray(a, TypeString, 2)
	arr, _ := av.Array()

	s1, _ := NewString(a, "first")
	s2, _ := NewString(a, "second")
	if err := arr.SetElems([]*Value{s1, s2}); err != nil {
		t.Fatalf("SetElems() = %v", err)
	}

	ref, err := arr.GetAt(1)
	if err != nil {
		t.Fatalf("GetAt(1) = %v", err)
	}
	p, _ := ref.Value().Bytes()
	if string(p) != "second" {
		t.Errorf("element 1 = %q, want %q", p, "second")
	}

	if err := arr.SetElems([]*Value{s1}); !status.Is(err, status.InvalidOperand) {
		t.Errorf("SetElems() with wrong count = %v, want invalid operand", err)
	}
}

func TestArrayZeroInitBoxedIsNull(t *testing.T) {
	a := newTestArena(t)

	av, _ := NewArray(a, TypeString, 1)
	arr, _ := av.Array()
	ref, err := arr.GetAt(0)
	if err != nil {
		t.Fatalf("GetAt(0) = %v", err)
	}
	if !ref.Value().IsNull() {
		t.Error("fresh boxed slot is not null")
	}
}

func TestArrayAllocator(t *testing.T) {
	a := newTestArena(t)

	av, _ := NewArray(a, TypeInt8, 1)
	arr, _ := av.Array()
	got, err := arr.Allocator()
	if err != nil {
		t.Fatalf("Allocator() = %v", err)
	}
	if got != a {
		t.Error("Allocator() returned a different arena")
	}

	// An array that lost its arena is an invariant violation, reported as
	// RuntimeError rather than a user-level status.
	orphan := &Value{typ: TypeArray, elemT: TypeInt8, plain: true}
	arrOrphan, err := orphan.Array()
	if err != nil {
		t.Fatalf("Array() on orphan = %v", err)
	}
	if _, err := arrOrphan.Allocator(); !status.Is(err, status.RuntimeError) {
		t.Errorf("Allocator() on orphan = %v, want runtime error", err)
	}
}

func TestArrayOpsAfterArenaDestroy(t *testing.T) {
	a := arena.New()
	av, err := NewArray(a, TypeInt8, 2)
	if err != nil {
		t.Fatalf("NewArray() = %v", err)
	}
	arr, err := av.Array()
	if err != nil {
		t.Fatalf("Array() = %v", err)
	}
	v, err := NewInt(a, 1)
	if err != nil {
		t.Fatalf("NewInt() = %v", err)
	}
	if err := a.Destroy(); err != nil {
		t.Fatalf("Destroy() = %v", err)
	}

	if _, err := arr.GetAt(0); !status.Is(err, status.InvalidState) {
		t.Errorf("GetAt() after destroy = %v, want invalid state", err)
	}
	if err := arr.SetAt(0, v); !status.Is(err, status.InvalidState) {
		t.Errorf("SetAt() after destroy = %v, want invalid state", err)
	}
	if err := arr.SetBody(make([]byte, 8)); !status.Is(err, status.InvalidState) {
		t.Errorf("SetBody() after destroy = %v, want invalid state", err)
	}
}
