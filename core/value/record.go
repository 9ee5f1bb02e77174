package value

import (
	"github.com/FocuswithJustin/BriarSQL/core/arena"
	"github.com/FocuswithJustin/BriarSQL/core/status"
)

// NewRecord creates a record value holding the given column values. The
// arena is the one borrowed from the result set that produced the row;
// records never exist without one.
func NewRecord(a *arena.Arena, cols []*Value) (*Value, error) {
	val, err := newValue(a, TypeStruct, int64(len(cols))*8)
	if err != nil {
		return nil, err
	}
	val.elems = cols
	return val, nil
}

// Record is the typed view of a result row, obtained through Value.Record.
type Record struct {
	v *Value
}

// Record returns the record view of the value, failing fast with
// InvalidOperation when the tag is not Struct.
func (v *Value) Record() (*Record, error) {
	if err := v.live(); err != nil {
		return nil, err
	}
	if v.typ != TypeStruct {
		return nil, status.Opf(status.InvalidOperation, "value.Record", "value is %s", v.typ)
	}
	return &Record{v: v}, nil
}

// Value returns the underlying value of the view.
func (r *Record) Value() *Value {
	return r.v
}

// Allocator returns the arena owning the record. A record without one
// violates a construction invariant and reports RuntimeError rather than
// a user-level status.
func (r *Record) Allocator() (*arena.Arena, error) {
	if r.v.arena == nil {
		return nil, status.Opf(status.RuntimeError, "value.Record.Allocator", "record has no arena")
	}
	return r.v.arena, nil
}

// GetColumn returns the column value at ordinal index i, paired with the
// record's owning arena. Column count is known to the caller from the
// result set that produced the record.
func (r *Record) GetColumn(i int) (Ref, error) {
	if err := r.v.live(); err != nil {
		return Ref{}, err
	}
	if i < 0 || i >= len(r.v.elems) {
		return Ref{}, status.Opf(status.IndexOutOfBounds, "value.Record.GetColumn", "column %d of %d", i, len(r.v.elems))
	}
	return Ref{a: r.v.arena, v: r.v.elems[i]}, nil
}
