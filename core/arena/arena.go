// Package arena implements the allocator abstraction values live in.
//
// An Arena is a lifetime domain: every allocator-scoped value is created
// in exactly one arena and stays usable only while that arena is alive.
// Destroying an arena invalidates everything it owns at once. Arenas come
// in two variants: owned arenas created by the caller, which the caller
// must destroy, and borrowed arenas handed out by a database, transaction,
// or result set, whose lifetime belongs to that owner. The variant is part
// of the handle, so destroying a borrowed arena is rejected instead of
// corrupting the owner.
//
// Arenas are not safe for concurrent mutation. The expected pattern is one
// arena per worker; sharing one across goroutines requires external
// serialization.
package arena

import (
	"fmt"

	"github.com/FocuswithJustin/BriarSQL/core/status"
)

// Arena owns a set of values and bounds their lifetime.
type Arena struct {
	owned     bool
	destroyed bool
	owner     string // describes the lender of a borrowed arena
	limit     int64  // payload byte budget, 0 means unlimited
	liveVals  int
	liveBytes int64
}

// New creates a fresh caller-owned arena. The caller is responsible for
// calling Destroy when the values created in it are no longer needed.
func New() *Arena {
	return &Arena{owned: true}
}

// NewBorrowed creates an arena whose lifetime belongs to another object,
// such as a database, transaction, or result set. The owner string names
// the lender for diagnostics. Borrowed arenas cannot be destroyed through
// this handle; the lender destroys them when it is closed.
func NewBorrowed(owner string) *Arena {
	return &Arena{owner: owner}
}

// Owned reports whether the caller owns this arena and must destroy it.
func (a *Arena) Owned() bool {
	return a.owned
}

// Alive reports whether the arena can still be used.
func (a *Arena) Alive() bool {
	return !a.destroyed
}

// Owner returns the description of the lender for a borrowed arena, or
// an empty string for an owned one.
func (a *Arena) Owner() string {
	return a.owner
}

// LiveValues returns the number of values currently accounted to the arena.
func (a *Arena) LiveValues() int {
	return a.liveVals
}

// LiveBytes returns the payload bytes currently accounted to the arena.
func (a *Arena) LiveBytes() int64 {
	return a.liveBytes
}

// SetLimit sets a payload byte budget. Constructions that would exceed it
// fail with a NotEnoughMemory status. A limit of 0 removes the budget.
func (a *Arena) SetLimit(n int64) {
	a.limit = n
}

// Err returns nil while the arena is alive and an InvalidState status once
// it has been destroyed. Value accessors call it before touching payloads,
// which turns use-after-destroy into a detectable error instead of
// undefined behavior.
func (a *Arena) Err() error {
	if a == nil {
		return status.New(status.NullReference, "nil arena")
	}
	if a.destroyed {
		return status.Newf(status.InvalidState, "arena destroyed%s", a.describe())
	}
	return nil
}

// Destroy releases the arena and invalidates every value it owns. Only
// owned arenas may be destroyed; a borrowed arena fails with
// InvalidOperation and a second destroy fails with InvalidState.
func (a *Arena) Destroy() error {
	if a == nil {
		return status.New(status.NullReference, "nil arena")
	}
	if !a.owned {
		return status.Newf(status.InvalidOperation, "cannot destroy borrowed arena%s", a.describe())
	}
	if a.destroyed {
		return status.New(status.InvalidState, "arena already destroyed")
	}
	a.destroyed = true
	a.liveVals = 0
	a.liveBytes = 0
	return nil
}

// Reclaim destroys a borrowed arena on behalf of its lender. Databases,
// transactions, and result sets call it when they close; callers never do.
// Reclaiming an owned or already-dead arena is a no-op.
func (a *Arena) Reclaim() {
	if a == nil || a.owned {
		return
	}
	a.destroyed = true
	a.liveVals = 0
	a.liveBytes = 0
}

// Reserve accounts n payload bytes for a value being constructed in the
// arena. Value constructors call it; collaborators producing values
// (result sets, remote clients) call it too. Fails with NotEnoughMemory
// when a budget is set and would be exceeded, and with InvalidState on a
// destroyed arena.
func (a *Arena) Reserve(n int64) error {
	if err := a.Err(); err != nil {
		return err
	}
	if a.limit > 0 && a.liveBytes+n > a.limit {
		return status.Newf(status.NotEnoughMemory, "arena budget %d exceeded by %d byte value", a.limit, n)
	}
	a.liveVals++
	a.liveBytes += n
	return nil
}

// Adjust changes the byte accounting of an already-reserved value by
// delta, without changing the value count. Bulk body replacement uses it.
// Growth is checked against the budget like Reserve.
func (a *Arena) Adjust(delta int64) error {
	if err := a.Err(); err != nil {
		return err
	}
	if delta > 0 && a.limit > 0 && a.liveBytes+delta > a.limit {
		return status.Newf(status.NotEnoughMemory, "arena budget %d exceeded by %d byte growth", a.limit, delta)
	}
	a.liveBytes += delta
	if a.liveBytes < 0 {
		a.liveBytes = 0
	}
	return nil
}

// Retire returns n payload bytes to the arena when a value is released.
// Retiring on a destroyed arena is a no-op; Destroy already dropped the
// accounting.
func (a *Arena) Retire(n int64) {
	if a == nil || a.destroyed {
		return
	}
	a.liveVals--
	a.liveBytes -= n
	if a.liveVals < 0 {
		a.liveVals = 0
	}
	if a.liveBytes < 0 {
		a.liveBytes = 0
	}
}

// String renders the arena state for logs.
func (a *Arena) String() string {
	if a == nil {
		return "arena(nil)"
	}
	kind := "owned"
	if !a.owned {
		kind = "borrowed"
	}
	state := ""
	if a.destroyed {
		state = ", destroyed"
	}
	return fmt.Sprintf("arena(%s, %d values, %d B%s)", kind, a.liveVals, a.liveBytes, state)
}

func (a *Arena) describe() string {
	if a.owner == "" {
		return ""
	}
	return " (from " + a.owner + ")"
}
