package value

import (
	"github.com/FocuswithJustin/BriarSQL/core/arena"
	"github.com/FocuswithJustin/BriarSQL/core/status"
)

// SequenceProducer is the underlying element stream behind a sequence
// value. Producers are supplied by result sets, collaborator engines, or
// tests; the sequence value itself only adds the tag, the arena, and the
// iterator discipline.
//
// Count may require materializing a lazy stream and should be treated as
// potentially expensive. Next returns false at end of stream. A producer
// that cannot restart may return an error from Reset after the first pull.
type SequenceProducer interface {
	Count() (int64, error)
	Reset() error
	Next() (*Value, bool, error)
}

// NewSequence creates a sequence value over a producer of elements of the
// declared type.
func NewSequence(a *arena.Arena, elemT Type, p SequenceProducer) (*Value, error) {
	if p == nil {
		return nil, status.Opf(status.NullReference, "value.NewSequence", "nil producer")
	}
	val, err := newValue(a, TypeSequence, 8)
	if err != nil {
		return nil, err
	}
	val.elemT = elemT
	val.seq = p
	return val, nil
}

// NewSliceSequence creates a sequence backed by an in-memory slice of
// elements. The slice producer is restartable any number of times.
func NewSliceSequence(a *arena.Arena, elemT Type, elems []*Value) (*Value, error) {
	return NewSequence(a, elemT, &sliceProducer{elems: elems})
}

// Sequence is the typed view of a sequence value, obtained through
// Value.Sequence.
type Sequence struct {
	v *Value
}

// Sequence returns the sequence view of the value, failing fast with
// InvalidOperation when the tag is not Sequence.
func (v *Value) Sequence() (*Sequence, error) {
	if err := v.live(); err != nil {
		return nil, err
	}
	if v.typ != TypeSequence {
		return nil, status.Opf(status.InvalidOperation, "value.Sequence", "value is %s", v.typ)
	}
	return &Sequence{v: v}, nil
}

// Value returns the underlying value of the view.
func (s *Sequence) Value() *Value {
	return s.v
}

// ElemType returns the declared element type.
func (s *Sequence) ElemType() Type {
	return s.v.elemT
}

// Allocator returns the arena owning the sequence.
func (s *Sequence) Allocator() (*arena.Arena, error) {
	if s.v.arena == nil {
		return nil, status.Opf(status.RuntimeError, "value.Sequence.Allocator", "sequence has no arena")
	}
	return s.v.arena, nil
}

// Count returns the number of elements. Depending on the producer this
// may force materialization of the whole stream.
func (s *Sequence) Count() (int64, error) {
	if err := s.v.live(); err != nil {
		return 0, err
	}
	n, err := s.v.seq.Count()
	return n, status.Normalize("value.Sequence.Count", err)
}

// Iterator obtains the iterator for the sequence and rewinds it to the
// start. Pulling elements happens only through the returned iterator;
// a sequence cannot be pulled directly.
func (s *Sequence) Iterator() (*SeqIterator, error) {
	if err := s.v.live(); err != nil {
		return nil, err
	}
	it := &SeqIterator{s: s}
	if err := it.Reset(); err != nil {
		return nil, err
	}
	return it, nil
}

// Iterator state machine.
const (
	iterReady     = iota // reset done, no pull yet
	iterIterating        // at least one element pulled
	iterExhausted        // end marker seen
)

// SeqIterator is the explicit iteration state of one walk over a
// sequence. Iterators from the same sequence share the producer, so
// interleaving two of them interleaves their pulls; the usual pattern is
// one iterator at a time, reset before reuse.
type SeqIterator struct {
	s     *Sequence
	state int
}

// Next pulls the next element. It returns (element, true, nil) for each
// element, then (nil, false, nil) at end of stream, and keeps reporting
// the end marker on further calls. A producer failure surfaces as a
// status error; an exhausted producer is not a failure.
func (it *SeqIterator) Next() (*Value, bool, error) {
	if err := it.s.v.live(); err != nil {
		return nil, false, err
	}
	if it.state == iterExhausted {
		return nil, false, nil
	}
	elem, ok, err := it.s.v.seq.Next()
	if err != nil {
		if status.Is(err, status.NoMoreElements) {
			it.state = iterExhausted
			return nil, false, nil
		}
		return nil, false, status.Normalize("value.SeqIterator.Next", err)
	}
	if !ok {
		it.state = iterExhausted
		return nil, false, nil
	}
	it.state = iterIterating
	return elem, true, nil
}

// Reset rewinds the iterator to the start of the sequence. Valid in any
// state; after Reset the next pull yields the first element again.
func (it *SeqIterator) Reset() error {
	if err := it.s.v.live(); err != nil {
		return err
	}
	if err := it.s.v.seq.Reset(); err != nil {
		return status.Normalize("value.SeqIterator.Reset", err)
	}
	it.state = iterReady
	return nil
}

// sliceProducer walks an in-memory slice. Restartable.
type sliceProducer struct {
	elems []*Value
	pos   int
}

func (p *sliceProducer) Count() (int64, error) {
	return int64(len(p.elems)), nil
}

func (p *sliceProducer) Reset() error {
	p.pos = 0
	return nil
}

func (p *sliceProducer) Next() (*Value, bool, error) {
	if p.pos >= len(p.elems) {
		return nil, false, nil
	}
	elem := p.elems[p.pos]
	p.pos++
	return elem, true, nil
}
