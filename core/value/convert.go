package value

import (
	"strconv"
	"time"

	"github.com/FocuswithJustin/BriarSQL/core/arena"
	"github.com/FocuswithJustin/BriarSQL/core/status"
)

// Of converts a Go native into a Value created in the given arena.
// Integers of every width become Int8 values, floats become Real8,
// time.Time becomes DateTime, Decimal becomes Numeric, byte slices become
// Binary, and supported slices become typed arrays. nil becomes the null
// singleton and an existing *Value passes through unchanged. Anything
// else fails with InvalidOperand.
func Of(a *arena.Arena, x any) (*Value, error) {
	switch v := x.(type) {
	case nil:
		return Null(), nil
	case *Value:
		if v == nil {
			return Null(), nil
		}
		return v, nil
	case bool:
		return Bool(v), nil
	case int:
		return NewInt(a, int64(v))
	case int8:
		return NewInt(a, int64(v))
	case int16:
		return NewInt(a, int64(v))
	case int32:
		return NewInt(a, int64(v))
	case int64:
		return NewInt(a, v)
	case uint:
		return NewInt(a, int64(v))
	case uint8:
		return NewInt(a, int64(v))
	case uint16:
		return NewInt(a, int64(v))
	case uint32:
		return NewInt(a, int64(v))
	case uint64:
		return NewInt(a, int64(v))
	case float32:
		return NewReal(a, float64(v))
	case float64:
		return NewReal(a, v)
	case string:
		return NewString(a, v)
	case []byte:
		return NewBinary(a, v)
	case time.Time:
		return NewDateTime(a, v)
	case Decimal:
		return NewNumeric(a, v.Scaled, v.Precision)
	case []int64:
		return arrayOf(a, TypeInt8, len(v), func(i int) (*Value, error) { return NewInt(a, v[i]) })
	case []int32:
		return arrayOf(a, TypeInt4, len(v), func(i int) (*Value, error) { return newWidthInt(a, TypeInt4, int64(v[i])) })
	case []float64:
		return arrayOf(a, TypeReal8, len(v), func(i int) (*Value, error) { return NewReal(a, v[i]) })
	case []float32:
		return arrayOf(a, TypeReal4, len(v), func(i int) (*Value, error) { return newWidthReal(a, TypeReal4, float64(v[i])) })
	case []bool:
		return arrayOf(a, TypeBool, len(v), func(i int) (*Value, error) { return boxedBool(a, v[i]) })
	case []string:
		return arrayOf(a, TypeString, len(v), func(i int) (*Value, error) { return NewString(a, v[i]) })
	default:
		return nil, status.Opf(status.InvalidOperand, "value.Of", "cannot convert %T", x)
	}
}

// arrayOf builds a typed array by constructing each element and storing it
// through SetAt, so the element type discipline is the same one callers see.
func arrayOf(a *arena.Arena, elemT Type, n int, elem func(int) (*Value, error)) (*Value, error) {
	av, err := NewArray(a, elemT, n)
	if err != nil {
		return nil, err
	}
	arr, err := av.Array()
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		ev, err := elem(i)
		if err != nil {
			return nil, err
		}
		if err := arr.SetAt(i, ev); err != nil {
			return nil, err
		}
		// The raw bytes now live in the array body; the scratch element
		// can return its accounting immediately.
		if arr.Plain() {
			_ = ev.Release()
		}
	}
	return av, nil
}

// newWidthInt creates an integer value carrying a narrow tag. Used when
// materializing plain array elements and slice conversions, where the
// declared element width matters.
func newWidthInt(a *arena.Arena, t Type, v int64) (*Value, error) {
	w := t.Width()
	val, err := newValue(a, t, int64(w))
	if err != nil {
		return nil, err
	}
	val.i = v
	return val, nil
}

// newWidthReal creates a floating point value carrying a narrow tag.
func newWidthReal(a *arena.Arena, t Type, v float64) (*Value, error) {
	w := t.Width()
	val, err := newValue(a, t, int64(w))
	if err != nil {
		return nil, err
	}
	val.r = v
	return val, nil
}

// boxedBool creates an arena-scoped boolean for storage in plain bool
// arrays. Scalar callers get the singletons from Bool instead.
func boxedBool(a *arena.Arena, b bool) (*Value, error) {
	val, err := newValue(a, TypeBool, 1)
	if err != nil {
		return nil, err
	}
	val.b = b
	return val, nil
}

// Native converts a scalar value back to its Go shape: nil, bool, int64,
// float64, string, []byte, or time.Time. Numeric values come back as their
// exact decimal string. Containers and streams do not flatten and fail
// with InvalidOperation.
func (v *Value) Native() (any, error) {
	if v == nil || v.typ == TypeNull {
		return nil, nil
	}
	if err := v.live(); err != nil {
		return nil, err
	}
	switch {
	case v.typ == TypeBool:
		return v.b, nil
	case v.typ.IsInteger():
		return v.i, nil
	case v.typ.IsReal():
		return v.r, nil
	case v.typ == TypeDateTime:
		return v.Time()
	case v.typ == TypeNumeric:
		return formatNumeric(v.i, v.prec), nil
	case v.typ.IsCharacter():
		return string(v.z), nil
	case v.typ == TypeBinary:
		return append([]byte(nil), v.z...), nil
	default:
		return nil, status.Opf(status.InvalidOperation, "value.Native", "%s value has no native form", v.typ)
	}
}

// stringify renders the character form of a scalar. Containers and
// streams do not convert.
func (v *Value) stringify() (string, error) {
	switch {
	case v.typ == TypeNull:
		return "null", nil
	case v.typ == TypeBool:
		if v.b {
			return "true", nil
		}
		return "false", nil
	case v.typ.IsInteger():
		return strconv.FormatInt(v.i, 10), nil
	case v.typ.IsReal():
		return strconv.FormatFloat(v.r, 'g', -1, 64), nil
	case v.typ == TypeDateTime:
		t, err := v.Time()
		if err != nil {
			return "", err
		}
		return t.Format(time.RFC3339), nil
	case v.typ == TypeNumeric:
		return formatNumeric(v.i, v.prec), nil
	case v.typ.IsCharacter(), v.typ == TypeBinary:
		return string(v.z), nil
	default:
		return "", status.Opf(status.InvalidOperation, "value.StringRef", "%s value has no string form", v.typ)
	}
}
