package value

import (
	"io"

	"github.com/FocuswithJustin/BriarSQL/core/arena"
	"github.com/FocuswithJustin/BriarSQL/core/status"
)

// BlobStream is the underlying byte stream behind a blob value. Read
// fills p with up to len(p) bytes and returns how many it wrote; 0 means
// end of stream, and short reads are normal. Seek moves the read position
// to an absolute byte offset.
type BlobStream interface {
	Available() (int64, error)
	Read(p []byte) (int, error)
	Seek(pos int64) error
}

// NewBlob creates a blob value over a byte stream.
func NewBlob(a *arena.Arena, stream BlobStream) (*Value, error) {
	if stream == nil {
		return nil, status.Opf(status.NullReference, "value.NewBlob", "nil stream")
	}
	val, err := newValue(a, TypeBlob, 8)
	if err != nil {
		return nil, err
	}
	val.blob = stream
	return val, nil
}

// NewBytesBlob creates a blob backed by an in-memory byte slice. The data
// is copied; the stream is seekable over the whole copy.
func NewBytesBlob(a *arena.Arena, data []byte) (*Value, error) {
	val, err := newValue(a, TypeBlob, int64(len(data)))
	if err != nil {
		return nil, err
	}
	val.blob = &bytesStream{data: append([]byte(nil), data...)}
	return val, nil
}

// Blob is the typed view of a blob value, obtained through Value.Blob.
type Blob struct {
	v *Value
}

// Blob returns the blob view of the value, failing fast with
// InvalidOperation when the tag is not Blob.
func (v *Value) Blob() (*Blob, error) {
	if err := v.live(); err != nil {
		return nil, err
	}
	if v.typ != TypeBlob {
		return nil, status.Opf(status.InvalidOperation, "value.Blob", "value is %s", v.typ)
	}
	return &Blob{v: v}, nil
}

// Value returns the underlying value of the view.
func (b *Blob) Value() *Value {
	return b.v
}

// Available returns the number of unread bytes remaining at the current
// position.
func (b *Blob) Available() (int64, error) {
	if err := b.v.live(); err != nil {
		return 0, err
	}
	n, err := b.v.blob.Available()
	return n, status.Normalize("value.Blob.Available", err)
}

// Get reads up to len(p) bytes into p and returns the number actually
// read. A return of 0 with no error means end of stream. Reads shorter
// than len(p) are normal and not an error.
func (b *Blob) Get(p []byte) (int, error) {
	if err := b.v.live(); err != nil {
		return 0, err
	}
	n, err := b.v.blob.Read(p)
	return n, status.Normalize("value.Blob.Get", err)
}

// Reset seeks to an absolute position; Reset(0) rewinds to the start.
// Seeking past the end fails with IndexOutOfBounds.
func (b *Blob) Reset(pos int64) error {
	if err := b.v.live(); err != nil {
		return err
	}
	return status.Normalize("value.Blob.Reset", b.v.blob.Seek(pos))
}

// Reader adapts the blob to io.Reader semantics: it reports io.EOF at end
// of stream instead of the zero-read convention. Reading starts at the
// blob's current position.
func (b *Blob) Reader() io.Reader {
	return &blobReader{b: b}
}

type blobReader struct {
	b *Blob
}

func (r *blobReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n, err := r.b.Get(p)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// bytesStream is the in-memory BlobStream behind NewBytesBlob.
type bytesStream struct {
	data []byte
	pos  int64
}

func (s *bytesStream) Available() (int64, error) {
	return int64(len(s.data)) - s.pos, nil
}

func (s *bytesStream) Read(p []byte) (int, error) {
	if s.pos >= int64(len(s.data)) {
		return 0, nil
	}
	n := copy(p, s.data[s.pos:])
	s.pos += int64(n)
	return n, nil
}

func (s *bytesStream) Seek(pos int64) error {
	if pos < 0 || pos > int64(len(s.data)) {
		return status.Opf(status.IndexOutOfBounds, "value.blob.Seek", "position %d of %d", pos, len(s.data))
	}
	s.pos = pos
	return nil
}
