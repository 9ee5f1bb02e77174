package value

import (
	"github.com/FocuswithJustin/BriarSQL/core/arena"
)

// Ref pairs a value with the arena that owns it. Accessors that hand out
// values return a Ref so the two always travel together; the arena in the
// pair is not necessarily the one owning the structure the value came out
// of. When the arena was minted just for this reference (a converted
// representation), the Ref owns it and Release destroys it.
type Ref struct {
	a      *arena.Arena
	v      *Value
	minted bool
}

// NewRef pairs an existing value with its owning arena.
func NewRef(a *arena.Arena, v *Value) Ref {
	return Ref{a: a, v: v}
}

// Value returns the referenced value, or nil after Release or Defuse.
func (r Ref) Value() *Value {
	return r.v
}

// Arena returns the arena that governs the referenced value's lifetime.
func (r Ref) Arena() *arena.Arena {
	return r.a
}

// Release releases the referenced value and, if the arena was minted for
// this reference, destroys it too. Safe to call more than once.
func (r *Ref) Release() error {
	if r.v == nil {
		return nil
	}
	err := r.v.Release()
	if r.minted && r.a != nil {
		if derr := r.a.Destroy(); err == nil {
			err = derr
		}
	}
	r.v = nil
	r.a = nil
	return err
}

// Defuse hands ownership of the pair to the caller and turns this Ref
// into a released no-op. The caller becomes responsible for releasing the
// value and, for a minted arena, destroying it.
func (r *Ref) Defuse() (*Value, *arena.Arena) {
	v, a := r.v, r.a
	r.v = nil
	r.a = nil
	r.minted = false
	return v, a
}
