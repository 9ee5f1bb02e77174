package value

import (
	"testing"
	"time"

	"github.com/FocuswithJustin/BriarSQL/core/status"
)

func TestOfScalars(t *testing.T) {
	a := newTestArena(t)

	tests := []struct {
		name string
		in   any
		typ  Type
	}{
		{"nil", nil, TypeNull},
		{"bool", true, TypeBool},
		{"int", int(7), TypeInt8},
		{"int8", int8(-1), TypeInt8},
		{"int16", int16(300), TypeInt8},
		{"int32", int32(-70000), TypeInt8},
		{"int64", int64(1 << 40), TypeInt8},
		{"uint", uint(7), TypeInt8},
		{"uint64", uint64(9), TypeInt8},
		{"float32", float32(1.5), TypeReal8},
		{"float64", 2.5, TypeReal8},
		{"string", "hi", TypeString},
		{"bytes", []byte{1}, TypeBinary},
		{"time", time.Unix(100, 0), TypeDateTime},
		{"decimal", Decimal{Scaled: 12345, Precision: 2}, TypeNumeric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Of(a, tt.in)
			if err != nil {
				t.Fatalf("Of(%v) = %v", tt.in, err)
			}
			if v.Type() != tt.typ {
				t.Errorf("Of(%v).Type() = %v, want %v", tt.in, v.Type(), tt.typ)
			}
		})
	}
}

func TestOfPreservesValues(t *testing.T) {
	a := newTestArena(t)

	v, err := Of(a, int16(-300))
	if err != nil {
		t.Fatalf("Of() = %v", err)
	}
	if got, _ := v.Int(); got != -300 {
		t.Errorf("Int() = %d, want -300", got)
	}

	d, err := Of(a, Decimal{Scaled: -5, Precision: 1})
	if err != nil {
		t.Fatalf("Of(Decimal) = %v", err)
	}
	scaled, prec, _ := d.Numeric()
	if scaled != -5 || prec != 1 {
		t.Errorf("Numeric() = (%d, %d), want (-5, 1)", scaled, prec)
	}
}

func TestOfSlices(t *testing.T) {
	a := newTestArena(t)

	tests := []struct {
		name  string
		in    any
		elemT Type
		plain bool
		n     int64
	}{
		{"int64 slice", []int64{1, 2, 3}, TypeInt8, true, 3},
		{"int32 slice", []int32{-1, 1}, TypeInt4, true, 2},
		{"float64 slice", []float64{0.5}, TypeReal8, true, 1},
		{"float32 slice", []float32{1, 2}, TypeReal4, true, 2},
		{"bool slice", []bool{true, false, true}, TypeBool, true, 3},
		{"string slice", []string{"a", "b"}, TypeString, false, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Of(a, tt.in)
			if err != nil {
				t.Fatalf("Of() = %v", err)
			}
			arr, err := v.Array()
			if err != nil {
				t.Fatalf("Array() = %v", err)
			}
			if arr.ElemType() != tt.elemT {
				t.Errorf("ElemType() = %v, want %v", arr.ElemType(), tt.elemT)
			}
			if arr.Plain() != tt.plain {
				t.Errorf("Plain() = %v, want %v", arr.Plain(), tt.plain)
			}
			n, err := v.Size()
			if err != nil {
				t.Fatalf("Size() = %v", err)
			}
			if n != tt.n {
				t.Errorf("Size() = %d, want %d", n, tt.n)
			}
		})
	}
}

func TestOfSliceElements(t *testing.T) {
	a := newTestArena(t)

	v, err := Of(a, []int64{10, 20, 30})
	if err != nil {
		t.Fatalf("Of() = %v", err)
	}
	arr, err := v.Array()
	if err != nil {
		t.Fatalf("Array() = %v", err)
	}
	for i, want := range []int64{10, 20, 30} {
		ref, err := arr.GetAt(i)
		if err != nil {
			t.Fatalf("GetAt(%d) = %v", i, err)
		}
		got, err := ref.Value().Int()
		if err != nil {
			t.Fatalf("Int() = %v", err)
		}
		if got != want {
			t.Errorf("element %d = %d, want %d", i, got, want)
		}
		ref.Release()
	}
}

func TestOfRejectsUnsupported(t *testing.T) {
	a := newTestArena(t)

	type opaque struct{ x int }
	_, err := Of(a, opaque{1})
	if !status.Is(err, status.InvalidOperand) {
		t.Errorf("Of(struct) = %v, want invalid operand", err)
	}
	_, err = Of(a, make(chan int))
	if !status.Is(err, status.InvalidOperand) {
		t.Errorf("Of(chan) = %v, want invalid operand", err)
	}
}

func TestNative(t *testing.T) {
	a := newTestArena(t)

	intV, _ := NewInt(a, 5)
	realV, _ := NewReal(a, 2.5)
	strV, _ := NewString(a, "s")
	binV, _ := NewBinary(a, []byte{9})
	numV, _ := NewNumeric(a, 1250, 2)
	dtV, _ := NewDateTime(a, time.Unix(1000, 0))

	tests := []struct {
		name string
		v    *Value
		want any
	}{
		{"null", Null(), nil},
		{"bool", Bool(true), true},
		{"int", intV, int64(5)},
		{"real", realV, 2.5},
		{"string", strV, "s"},
		{"numeric as decimal string", numV, "12.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.v.Native()
			if err != nil {
				t.Fatalf("Native() = %v", err)
			}
			if got != tt.want {
				t.Errorf("Native() = %v (%T), want %v (%T)", got, got, tt.want, tt.want)
			}
		})
	}

	t.Run("binary", func(t *testing.T) {
		got, err := binV.Native()
		if err != nil {
			t.Fatalf("Native() = %v", err)
		}
		p, ok := got.([]byte)
		if !ok || len(p) != 1 || p[0] != 9 {
			t.Errorf("Native() = %v, want [9]", got)
		}
	})

	t.Run("datetime", func(t *testing.T) {
		got, err := dtV.Native()
		if err != nil {
			t.Fatalf("Native() = %v", err)
		}
		ts, ok := got.(time.Time)
		if !ok || ts.Unix() != 1000 {
			t.Errorf("Native() = %v, want unix 1000", got)
		}
	})

	t.Run("array has no native form", func(t *testing.T) {
		arrV, _ := NewArray(a, TypeInt8, 1)
		_, err := arrV.Native()
		if !status.Is(err, status.InvalidOperation) {
			t.Errorf("Native() on array = %v, want invalid operation", err)
		}
	})
}
