package value

import (
	"encoding/binary"
	"math"

	"github.com/FocuswithJustin/BriarSQL/core/arena"
	"github.com/FocuswithJustin/BriarSQL/core/status"
)

// plainable reports whether elements of type t can live unboxed in a raw
// array body. Fixed-width scalars qualify except Numeric, whose per-value
// precision does not fit a bare element slot, and Reference, whose payload
// is not byte-encodable.
func plainable(t Type) bool {
	return t.Width() > 0 && t != TypeNumeric && t != TypeReference
}

// NewArray creates a fixed-length, zero-initialized array of the declared
// element type. Fixed-width element types are stored plain (one raw body
// buffer, little endian); everything else is boxed, with elements starting
// out as the null singleton.
func NewArray(a *arena.Arena, elemT Type, n int) (*Value, error) {
	if n < 0 {
		return nil, status.Opf(status.InvalidOperand, "value.NewArray", "negative length %d", n)
	}
	if plainable(elemT) {
		w := elemT.Width()
		val, err := newValue(a, TypeArray, int64(n*w))
		if err != nil {
			return nil, err
		}
		val.elemT = elemT
		val.plain = true
		val.z = make([]byte, n*w)
		return val, nil
	}
	val, err := newValue(a, TypeArray, int64(n)*8)
	if err != nil {
		return nil, err
	}
	val.elemT = elemT
	elems := make([]*Value, n)
	for i := range elems {
		elems[i] = Null()
	}
	val.elems = elems
	return val, nil
}

// Array is the typed view of an array value. Obtain it through
// Value.Array; every operation re-checks liveness so a destroyed arena
// surfaces as a status instead of corrupt reads.
type Array struct {
	v *Value
}

// Array returns the array view of the value, failing fast with
// InvalidOperation when the tag is not Array.
func (v *Value) Array() (*Array, error) {
	if err := v.live(); err != nil {
		return nil, err
	}
	if v.typ != TypeArray {
		return nil, status.Opf(status.InvalidOperation, "value.Array", "value is %s", v.typ)
	}
	return &Array{v: v}, nil
}

// Value returns the underlying value of the view.
func (ar *Array) Value() *Value {
	return ar.v
}

// Plain reports whether elements are stored unboxed in a raw body buffer.
func (ar *Array) Plain() bool {
	return ar.v.plain
}

// ElemType returns the declared element type.
func (ar *Array) ElemType() Type {
	return ar.v.elemT
}

// Allocator returns the arena owning the array. An array that has lost its
// arena violates a construction invariant and reports RuntimeError.
func (ar *Array) Allocator() (*arena.Arena, error) {
	if ar.v.arena == nil {
		return nil, status.Opf(status.RuntimeError, "value.Array.Allocator", "array has no arena")
	}
	return ar.v.arena, nil
}

// Len returns the element count.
func (ar *Array) Len() (int, error) {
	n, err := ar.v.Size()
	return int(n), err
}

// GetAt returns the element at index i as a reference owned by the
// array's arena. Plain arrays materialize a fresh scalar; boxed arrays
// hand out the stored value.
func (ar *Array) GetAt(i int) (Ref, error) {
	if err := ar.v.live(); err != nil {
		return Ref{}, err
	}
	n, err := ar.Len()
	if err != nil {
		return Ref{}, err
	}
	if i < 0 || i >= n {
		return Ref{}, status.Opf(status.IndexOutOfBounds, "value.Array.GetAt", "index %d of %d", i, n)
	}
	if !ar.v.plain {
		return Ref{a: ar.v.arena, v: ar.v.elems[i]}, nil
	}
	elem, err := ar.readPlain(i)
	if err != nil {
		return Ref{}, err
	}
	return Ref{a: ar.v.arena, v: elem}, nil
}

// SetAt stores elem at index i. The element type must match the array's
// declared type (exact tag, or same scalar family for integer, real, and
// character widths); a mismatch fails with InvalidTypeCast before
// anything is written.
func (ar *Array) SetAt(i int, elem *Value) error {
	if err := ar.v.live(); err != nil {
		return err
	}
	if elem == nil {
		return status.Opf(status.NullReference, "value.Array.SetAt", "nil element")
	}
	if err := elem.live(); err != nil {
		return err
	}
	if !elemCompatible(ar.v.elemT, elem.typ) {
		return status.Opf(status.InvalidTypeCast, "value.Array.SetAt", "%s element into %s array", elem.typ, ar.v.elemT)
	}
	n, err := ar.Len()
	if err != nil {
		return err
	}
	if i < 0 || i >= n {
		return status.Opf(status.IndexOutOfBounds, "value.Array.SetAt", "index %d of %d", i, n)
	}
	if ar.v.plain {
		ar.writePlain(i, elem)
		return nil
	}
	ar.v.elems[i] = elem
	return nil
}

// SetBody replaces the whole element buffer of a plain array with raw
// little-endian element data. The length must be an exact multiple of the
// element width. Boxed arrays have no raw body; use SetElems.
func (ar *Array) SetBody(raw []byte) error {
	if err := ar.v.live(); err != nil {
		return err
	}
	if !ar.v.plain {
		return status.Opf(status.InvalidOperation, "value.Array.SetBody", "array of %s is boxed", ar.v.elemT)
	}
	w := ar.v.elemT.Width()
	if len(raw)%w != 0 {
		return status.Opf(status.InvalidOperand, "value.Array.SetBody", "%d bytes is not a multiple of element width %d", len(raw), w)
	}
	delta := int64(len(raw) - len(ar.v.z))
	if err := ar.v.arena.Adjust(delta); err != nil {
		return err
	}
	ar.v.acct += delta
	ar.v.z = append([]byte(nil), raw...)
	return nil
}

// SetElems replaces all elements in order through SetAt. It is the bulk
// path for boxed arrays and works on plain ones too. The count must match
// the array length exactly.
func (ar *Array) SetElems(elems []*Value) error {
	n, err := ar.Len()
	if err != nil {
		return err
	}
	if len(elems) != n {
		return status.Opf(status.InvalidOperand, "value.Array.SetElems", "%d elements for array of %d", len(elems), n)
	}
	for i, e := range elems {
		if err := ar.SetAt(i, e); err != nil {
			return err
		}
	}
	return nil
}

// elemCompatible decides whether a value of type actual may be stored in
// an array declared with type declared. Exact tags always match; within
// the integer, real, and character families width differences are
// reconciled on store.
func elemCompatible(declared, actual Type) bool {
	if declared == actual {
		return true
	}
	if declared.IsInteger() && actual.IsInteger() {
		return true
	}
	if declared.IsReal() && actual.IsReal() {
		return true
	}
	if declared.IsCharacter() && actual.IsCharacter() {
		return true
	}
	return false
}

// readPlain materializes the element at index i from the raw body into a
// fresh scalar owned by the array's arena.
func (ar *Array) readPlain(i int) (*Value, error) {
	t := ar.v.elemT
	w := t.Width()
	off := i * w
	slot := ar.v.z[off : off+w]
	switch t {
	case TypeBool:
		return boxedBool(ar.v.arena, slot[0] != 0)
	case TypeReal4:
		bits := binary.LittleEndian.Uint32(slot)
		return newWidthReal(ar.v.arena, t, float64(math.Float32frombits(bits)))
	case TypeReal8:
		bits := binary.LittleEndian.Uint64(slot)
		return newWidthReal(ar.v.arena, t, math.Float64frombits(bits))
	case TypeDateTime:
		return NewDateTimeTicks(ar.v.arena, int64(binary.LittleEndian.Uint64(slot)))
	default:
		return newWidthInt(ar.v.arena, t, decodeInt(slot, t))
	}
}

// writePlain encodes elem into the raw body slot at index i, truncating
// to the declared width.
func (ar *Array) writePlain(i int, elem *Value) {
	t := ar.v.elemT
	w := t.Width()
	off := i * w
	slot := ar.v.z[off : off+w]
	switch t {
	case TypeBool:
		slot[0] = 0
		if elem.b {
			slot[0] = 1
		}
	case TypeReal4:
		binary.LittleEndian.PutUint32(slot, math.Float32bits(float32(elem.r)))
	case TypeReal8:
		binary.LittleEndian.PutUint64(slot, math.Float64bits(elem.r))
	default:
		encodeInt(slot, elem.i)
	}
}

// decodeInt reads a little-endian integer slot, sign extending the signed
// widths.
func decodeInt(slot []byte, t Type) int64 {
	switch len(slot) {
	case 1:
		if t == TypeInt1 {
			return int64(int8(slot[0]))
		}
		return int64(slot[0])
	case 2:
		u := binary.LittleEndian.Uint16(slot)
		if t == TypeInt2 {
			return int64(int16(u))
		}
		return int64(u)
	case 4:
		u := binary.LittleEndian.Uint32(slot)
		if t == TypeInt4 {
			return int64(int32(u))
		}
		return int64(u)
	default:
		return int64(binary.LittleEndian.Uint64(slot))
	}
}

// encodeInt writes the low bytes of v into the slot, little endian.
func encodeInt(slot []byte, v int64) {
	switch len(slot) {
	case 1:
		slot[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(slot, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(slot, uint32(v))
	default:
		binary.LittleEndian.PutUint64(slot, uint64(v))
	}
}
