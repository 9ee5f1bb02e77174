// Package value implements the tagged value model of the BriarSQL boundary.
//
// A Value is one SQL datum: a scalar, a typed array, a lazily-produced
// sequence, a positioned blob, or a result record. Every Value carries a
// runtime type tag and lives in exactly one arena, except the Null and
// Bool singletons which are allocator-free and valid for the process
// lifetime. Typed accessors check the tag first and fail with an
// InvalidOperation status before any other work happens, so a caller can
// probe a value of unknown type without risking native faults.
//
// References handed back by accessors travel as a Ref, the pair of a value
// and the arena that owns it. The owning arena of a returned reference is
// not always the parent's: extracting the string form of an integer mints
// a fresh arena holding the converted representation.
package value

import (
	"strconv"
	"time"

	"github.com/FocuswithJustin/BriarSQL/core/arena"
	"github.com/FocuswithJustin/BriarSQL/core/status"
)

// Type is the runtime tag of a Value.
//
// The numeric values are shared with the native engine's column metadata
// and the remote protocol; they must never be renumbered. Scalar
// construction normalizes to the widest member of each family (Int8,
// Real8); the narrower tags appear as array element types and in column
// descriptions.
type Type int

const (
	// TypeNull tags the null singleton.
	TypeNull Type = 0
	// TypeBool tags the boolean singletons.
	TypeBool Type = 1
	// TypeInt1 through TypeUInt8 tag the integer family by width and sign.
	TypeInt1  Type = 2
	TypeUInt1 Type = 3
	TypeInt2  Type = 4
	TypeUInt2 Type = 5
	TypeInt4  Type = 6
	TypeUInt4 Type = 7
	TypeInt8  Type = 8
	TypeUInt8 Type = 9
	// TypeReal4 and TypeReal8 tag floating point values.
	TypeReal4 Type = 10
	TypeReal8 Type = 11
	// TypeDateTime tags timestamps counted in engine ticks.
	TypeDateTime Type = 12
	// TypeNumeric tags fixed-point decimals (scaled integer plus precision).
	TypeNumeric Type = 13
	// TypeUnicode and TypeString tag character data. Payloads are UTF-8
	// either way; the distinction survives only in column metadata.
	TypeUnicode Type = 14
	TypeString  Type = 15
	// TypeBinary tags raw byte strings.
	TypeBinary Type = 16
	// TypeReference tags an opaque engine reference.
	TypeReference Type = 17
	// TypeArray tags fixed-size homogeneous containers.
	TypeArray Type = 18
	// TypeStruct tags result records.
	TypeStruct Type = 19
	// TypeBlob tags positioned byte streams.
	TypeBlob Type = 20
	// TypeDataSource and TypeList appear in column metadata only.
	TypeDataSource Type = 21
	TypeList       Type = 22
	// TypeSequence tags lazily-produced element streams.
	TypeSequence Type = 23
)

var typeNames = map[Type]string{
	TypeNull:       "null",
	TypeBool:       "bool",
	TypeInt1:       "int1",
	TypeUInt1:      "uint1",
	TypeInt2:       "int2",
	TypeUInt2:      "uint2",
	TypeInt4:       "int4",
	TypeUInt4:      "uint4",
	TypeInt8:       "int8",
	TypeUInt8:      "uint8",
	TypeReal4:      "real4",
	TypeReal8:      "real8",
	TypeDateTime:   "datetime",
	TypeNumeric:    "numeric",
	TypeUnicode:    "unicode",
	TypeString:     "string",
	TypeBinary:     "binary",
	TypeReference:  "reference",
	TypeArray:      "array",
	TypeStruct:     "struct",
	TypeBlob:       "blob",
	TypeDataSource: "datasource",
	TypeList:       "list",
	TypeSequence:   "sequence",
}

// String returns the lowercase name of the type tag.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "type(" + strconv.Itoa(int(t)) + ")"
}

// Width returns the fixed element width in bytes for types that have one,
// and 0 for variable-size types. Plain arrays use it to lay out their
// element buffer.
func (t Type) Width() int {
	switch t {
	case TypeBool, TypeInt1, TypeUInt1:
		return 1
	case TypeInt2, TypeUInt2:
		return 2
	case TypeInt4, TypeUInt4, TypeReal4:
		return 4
	case TypeInt8, TypeUInt8, TypeReal8, TypeDateTime, TypeNumeric, TypeReference:
		return 8
	default:
		return 0
	}
}

// IsInteger reports whether the tag belongs to the integer family.
func (t Type) IsInteger() bool {
	return t >= TypeInt1 && t <= TypeUInt8
}

// IsReal reports whether the tag is a floating point type.
func (t Type) IsReal() bool {
	return t == TypeReal4 || t == TypeReal8
}

// IsCharacter reports whether the tag carries character data.
func (t Type) IsCharacter() bool {
	return t == TypeString || t == TypeUnicode
}

// Value is one SQL datum. The zero Value is not meaningful; construct
// through the New* functions, Of, or the singletons.
type Value struct {
	arena    *arena.Arena // nil for the singletons
	typ      Type
	acct     int64 // bytes accounted to the arena, returned on release
	released bool

	b     bool
	i     int64 // integer family, datetime ticks, numeric scaled value
	prec  int   // numeric fractional digits
	r     float64
	z     []byte   // string, unicode, binary payload; plain array body
	elems []*Value // boxed array elements, record columns
	elemT Type     // array and sequence element type
	plain bool     // array body stored unboxed in z
	seq   SequenceProducer
	blob  BlobStream
	ptr   any // reference payload
}

// Singletons. Allocator-free, immutable, valid for the process lifetime.
var (
	nullValue  = Value{typ: TypeNull}
	trueValue  = Value{typ: TypeBool, b: true}
	falseValue = Value{typ: TypeBool}
)

// Null returns the null singleton. It needs no arena and no release.
func Null() *Value {
	return &nullValue
}

// Bool returns the boolean singleton for b. It needs no arena and no
// release.
func Bool(b bool) *Value {
	if b {
		return &trueValue
	}
	return &falseValue
}

// newValue reserves accounting in the arena and returns the shell of an
// allocator-scoped value. Constructors fill in the payload.
func newValue(a *arena.Arena, typ Type, bytes int64) (*Value, error) {
	if a == nil {
		return nil, status.Opf(status.NullReference, "value.new", "nil arena for %s value", typ)
	}
	if err := a.Reserve(bytes); err != nil {
		return nil, err
	}
	return &Value{arena: a, typ: typ, acct: bytes}, nil
}

// NewInt creates an integer value.
func NewInt(a *arena.Arena, v int64) (*Value, error) {
	val, err := newValue(a, TypeInt8, 8)
	if err != nil {
		return nil, err
	}
	val.i = v
	return val, nil
}

// NewReal creates a floating point value.
func NewReal(a *arena.Arena, v float64) (*Value, error) {
	val, err := newValue(a, TypeReal8, 8)
	if err != nil {
		return nil, err
	}
	val.r = v
	return val, nil
}

// TicksPerSecond is the resolution of DateTime values. The engine that
// embeds this layer configures it once at startup; the default of 1 stores
// Unix seconds.
var TicksPerSecond int64 = 1

// NewDateTimeTicks creates a timestamp from a raw engine tick count.
func NewDateTimeTicks(a *arena.Arena, ticks int64) (*Value, error) {
	val, err := newValue(a, TypeDateTime, 8)
	if err != nil {
		return nil, err
	}
	val.i = ticks
	return val, nil
}

// NewDateTime creates a timestamp from a time.Time, truncated to the
// DateTime tick resolution.
func NewDateTime(a *arena.Arena, t time.Time) (*Value, error) {
	ticks := t.Unix() * TicksPerSecond
	if TicksPerSecond > 1 {
		ticks += int64(t.Nanosecond()) * TicksPerSecond / int64(time.Second)
	}
	return NewDateTimeTicks(a, ticks)
}

// NewString creates a character value. The payload is copied.
func NewString(a *arena.Arena, s string) (*Value, error) {
	val, err := newValue(a, TypeString, int64(len(s)))
	if err != nil {
		return nil, err
	}
	val.z = []byte(s)
	return val, nil
}

// NewBinary creates a raw byte value. The payload is copied.
func NewBinary(a *arena.Arena, p []byte) (*Value, error) {
	val, err := newValue(a, TypeBinary, int64(len(p)))
	if err != nil {
		return nil, err
	}
	val.z = append([]byte(nil), p...)
	return val, nil
}

// NewReference creates an opaque reference value.
func NewReference(a *arena.Arena, ptr any) (*Value, error) {
	val, err := newValue(a, TypeReference, 8)
	if err != nil {
		return nil, err
	}
	val.ptr = ptr
	return val, nil
}

// Type returns the runtime tag. Valid even for released values.
func (v *Value) Type() Type {
	return v.typ
}

// Arena returns the owning arena, or nil for the singletons.
func (v *Value) Arena() *arena.Arena {
	return v.arena
}

// live verifies the value has not been released and its arena is alive.
func (v *Value) live() error {
	if v == nil {
		return status.New(status.NullReference, "nil value")
	}
	if v.released {
		return status.Newf(status.InvalidState, "%s value already released", v.typ)
	}
	if v.arena != nil {
		if err := v.arena.Err(); err != nil {
			return err
		}
	}
	return nil
}

// IsNull reports whether this is the null singleton. It is the one
// introspection that cannot fail.
func (v *Value) IsNull() bool {
	return v == nil || v.typ == TypeNull
}

// IsTrue applies the value's own truthiness rule: null is false, booleans
// are themselves, numbers are true when nonzero, character and binary data
// when nonempty, and containers and streams are always true.
func (v *Value) IsTrue() (bool, error) {
	if v == nil || v.typ == TypeNull {
		return false, nil
	}
	if err := v.live(); err != nil {
		return false, err
	}
	switch {
	case v.typ == TypeBool:
		return v.b, nil
	case v.typ.IsInteger(), v.typ == TypeDateTime, v.typ == TypeNumeric:
		return v.i != 0, nil
	case v.typ.IsReal():
		return v.r != 0, nil
	case v.typ.IsCharacter(), v.typ == TypeBinary:
		return len(v.z) > 0, nil
	default:
		return true, nil
	}
}

// Size returns the type-dependent size of the value: element count for
// arrays, records, and sequences, byte length for character and binary
// data, remaining bytes for blobs, byte width for scalars, and 0 for null.
func (v *Value) Size() (int64, error) {
	if err := v.live(); err != nil {
		return 0, err
	}
	switch v.typ {
	case TypeNull:
		return 0, nil
	case TypeArray:
		if v.plain {
			w := v.elemT.Width()
			if w == 0 {
				return 0, status.Opf(status.InvalidState, "value.Size", "plain array of variable-width %s", v.elemT)
			}
			return int64(len(v.z) / w), nil
		}
		return int64(len(v.elems)), nil
	case TypeStruct:
		return int64(len(v.elems)), nil
	case TypeSequence:
		return v.seq.Count()
	case TypeBlob:
		return v.blob.Available()
	case TypeString, TypeUnicode, TypeBinary:
		return int64(len(v.z)), nil
	default:
		if w := v.typ.Width(); w > 0 {
			return int64(w), nil
		}
		return 0, nil
	}
}

// Int extracts an integer. Fails with InvalidOperation for any tag outside
// the integer family.
func (v *Value) Int() (int64, error) {
	if err := v.live(); err != nil {
		return 0, err
	}
	if !v.typ.IsInteger() {
		return 0, status.Opf(status.InvalidOperation, "value.Int", "value is %s", v.typ)
	}
	return v.i, nil
}

// Real extracts a floating point value. Fails with InvalidOperation for
// non-real tags; integers do not convert implicitly.
func (v *Value) Real() (float64, error) {
	if err := v.live(); err != nil {
		return 0, err
	}
	if !v.typ.IsReal() {
		return 0, status.Opf(status.InvalidOperation, "value.Real", "value is %s", v.typ)
	}
	return v.r, nil
}

// DateTime extracts the raw tick count of a timestamp.
func (v *Value) DateTime() (int64, error) {
	if err := v.live(); err != nil {
		return 0, err
	}
	if v.typ != TypeDateTime {
		return 0, status.Opf(status.InvalidOperation, "value.DateTime", "value is %s", v.typ)
	}
	return v.i, nil
}

// Time converts a timestamp to a time.Time at the configured tick
// resolution.
func (v *Value) Time() (time.Time, error) {
	ticks, err := v.DateTime()
	if err != nil {
		return time.Time{}, err
	}
	sec := ticks / TicksPerSecond
	rem := ticks % TicksPerSecond
	nsec := rem * int64(time.Second) / TicksPerSecond
	return time.Unix(sec, nsec).UTC(), nil
}

// Numeric extracts a fixed-point decimal as its scaled integer value and
// precision (number of fractional digits).
func (v *Value) Numeric() (scaled int64, precision int, err error) {
	if err := v.live(); err != nil {
		return 0, 0, err
	}
	if v.typ != TypeNumeric {
		return 0, 0, status.Opf(status.InvalidOperation, "value.Numeric", "value is %s", v.typ)
	}
	return v.i, v.prec, nil
}

// Pointer extracts the payload of an opaque reference value.
func (v *Value) Pointer() (any, error) {
	if err := v.live(); err != nil {
		return nil, err
	}
	if v.typ != TypeReference {
		return nil, status.Opf(status.InvalidOperation, "value.Pointer", "value is %s", v.typ)
	}
	return v.ptr, nil
}

// Bytes returns the payload of a character or binary value as a view
// borrowed from the value. The view is valid only while the value is live;
// use StringRef or BinaryRef for an owned copy.
func (v *Value) Bytes() ([]byte, error) {
	if err := v.live(); err != nil {
		return nil, err
	}
	if !v.typ.IsCharacter() && v.typ != TypeBinary {
		return nil, status.Opf(status.InvalidOperation, "value.Bytes", "value is %s", v.typ)
	}
	return v.z, nil
}

// StringRef returns the character form of the value as a new owned
// reference. For character values this is a copy; for scalars the
// converted representation is built in a freshly minted arena that the
// returned reference owns. Containers and streams do not convert.
func (v *Value) StringRef() (Ref, error) {
	if err := v.live(); err != nil {
		return Ref{}, err
	}
	s, err := v.stringify()
	if err != nil {
		return Ref{}, err
	}
	a := arena.New()
	sv, err := NewString(a, s)
	if err != nil {
		return Ref{}, err
	}
	return Ref{a: a, v: sv, minted: true}, nil
}

// BinaryRef returns the payload of a character or binary value as a new
// owned reference in a freshly minted arena.
func (v *Value) BinaryRef() (Ref, error) {
	p, err := v.Bytes()
	if err != nil {
		return Ref{}, err
	}
	a := arena.New()
	bv, err := NewBinary(a, p)
	if err != nil {
		return Ref{}, err
	}
	return Ref{a: a, v: bv, minted: true}, nil
}

// Release returns the value's accounting to its arena. Releasing a
// singleton or an already-released value is a no-op. Values owned by an
// arena also die wholesale when the arena is destroyed; Release is for
// returning budget early.
func (v *Value) Release() error {
	if v == nil || v.arena == nil || v.released {
		return nil
	}
	v.released = true
	v.arena.Retire(v.acct)
	return nil
}

