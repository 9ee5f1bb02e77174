// Package remote implements remote SQL: a WebSocket server binding any
// engine.Engine, and a client that implements engine.Engine over the
// same protocol. Statements execute on the server; query results stay
// server-side and stream to the client in row batches against an opaque
// result handle.
//
// Frames are JSON. Values travel as tagged wire values mirroring the
// boundary's type tags; binary payloads ride base64 inside JSON.
package remote

import (
	"github.com/FocuswithJustin/BriarSQL/core/arena"
	"github.com/FocuswithJustin/BriarSQL/core/status"
	"github.com/FocuswithJustin/BriarSQL/core/value"
)

// WireValue is the JSON shape of one tagged value.
type WireValue struct {
	T int `json:"t"`

	B    bool        `json:"b,omitempty"`
	I    int64       `json:"i,omitempty"`
	Prec int         `json:"p,omitempty"`
	R    float64     `json:"r,omitempty"`
	S    string      `json:"s,omitempty"`
	Bin  []byte      `json:"bin,omitempty"`
	ET   int         `json:"et,omitempty"`
	El   []WireValue `json:"el,omitempty"`
}

// EncodeValue flattens a value to its wire shape. Scalars and arrays
// encode; sequences and blobs are drained into an array and a binary
// payload respectively, since their producers cannot cross the wire.
func EncodeValue(v *value.Value) (WireValue, error) {
	if v == nil || v.IsNull() {
		return WireValue{T: int(value.TypeNull)}, nil
	}
	t := v.Type()
	switch {
	case t == value.TypeBool:
		b, err := v.IsTrue()
		if err != nil {
			return WireValue{}, err
		}
		return WireValue{T: int(t), B: b}, nil
	case t.IsInteger():
		i, err := v.Int()
		if err != nil {
			return WireValue{}, err
		}
		return WireValue{T: int(value.TypeInt8), I: i}, nil
	case t.IsReal():
		r, err := v.Real()
		if err != nil {
			return WireValue{}, err
		}
		return WireValue{T: int(value.TypeReal8), R: r}, nil
	case t == value.TypeDateTime:
		ticks, err := v.DateTime()
		if err != nil {
			return WireValue{}, err
		}
		return WireValue{T: int(t), I: ticks}, nil
	case t == value.TypeNumeric:
		scaled, prec, err := v.Numeric()
		if err != nil {
			return WireValue{}, err
		}
		return WireValue{T: int(t), I: scaled, Prec: prec}, nil
	case t.IsCharacter():
		p, err := v.Bytes()
		if err != nil {
			return WireValue{}, err
		}
		return WireValue{T: int(value.TypeString), S: string(p)}, nil
	case t == value.TypeBinary:
		p, err := v.Bytes()
		if err != nil {
			return WireValue{}, err
		}
		return WireValue{T: int(t), Bin: p}, nil
	case t == value.TypeArray:
		return encodeArray(v)
	case t == value.TypeSequence:
		return encodeSequence(v)
	case t == value.TypeBlob:
		return encodeBlob(v)
	default:
		return WireValue{}, status.Opf(status.InvalidOperand, "remote.EncodeValue", "%s value cannot cross the wire", t)
	}
}

func encodeArray(v *value.Value) (WireValue, error) {
	arr, err := v.Array()
	if err != nil {
		return WireValue{}, err
	}
	n, err := arr.Len()
	if err != nil {
		return WireValue{}, err
	}
	w := WireValue{T: int(value.TypeArray), ET: int(arr.ElemType()), El: make([]WireValue, n)}
	for i := 0; i < n; i++ {
		ref, err := arr.GetAt(i)
		if err != nil {
			return WireValue{}, err
		}
		ew, err := EncodeValue(ref.Value())
		if err != nil {
			return WireValue{}, err
		}
		w.El[i] = ew
	}
	return w, nil
}

func encodeSequence(v *value.Value) (WireValue, error) {
	seq, err := v.Sequence()
	if err != nil {
		return WireValue{}, err
	}
	it, err := seq.Iterator()
	if err != nil {
		return WireValue{}, err
	}
	w := WireValue{T: int(value.TypeArray), ET: int(seq.ElemType())}
	for {
		elem, ok, err := it.Next()
		if err != nil {
			return WireValue{}, err
		}
		if !ok {
			return w, nil
		}
		ew, err := EncodeValue(elem)
		if err != nil {
			return WireValue{}, err
		}
		w.El = append(w.El, ew)
	}
}

func encodeBlob(v *value.Value) (WireValue, error) {
	blob, err := v.Blob()
	if err != nil {
		return WireValue{}, err
	}
	if err := blob.Reset(0); err != nil {
		return WireValue{}, err
	}
	var data []byte
	buf := make([]byte, 4096)
	for {
		n, err := blob.Get(buf)
		if err != nil {
			return WireValue{}, err
		}
		if n == 0 {
			return WireValue{T: int(value.TypeBinary), Bin: data}, nil
		}
		data = append(data, buf[:n]...)
	}
}

// DecodeValue rebuilds a value from its wire shape in the given arena.
func DecodeValue(a *arena.Arena, w WireValue) (*value.Value, error) {
	t := value.Type(w.T)
	switch {
	case t == value.TypeNull:
		return value.Null(), nil
	case t == value.TypeBool:
		return value.Bool(w.B), nil
	case t.IsInteger():
		return value.NewInt(a, w.I)
	case t.IsReal():
		return value.NewReal(a, w.R)
	case t == value.TypeDateTime:
		return value.NewDateTimeTicks(a, w.I)
	case t == value.TypeNumeric:
		return value.NewNumeric(a, w.I, w.Prec)
	case t.IsCharacter():
		return value.NewString(a, w.S)
	case t == value.TypeBinary:
		return value.NewBinary(a, w.Bin)
	case t == value.TypeArray:
		av, err := value.NewArray(a, value.Type(w.ET), len(w.El))
		if err != nil {
			return nil, err
		}
		arr, err := av.Array()
		if err != nil {
			return nil, err
		}
		for i, ew := range w.El {
			elem, err := DecodeValue(a, ew)
			if err != nil {
				return nil, err
			}
			if err := arr.SetAt(i, elem); err != nil {
				return nil, err
			}
		}
		return av, nil
	default:
		return nil, status.Opf(status.InvalidOperand, "remote.DecodeValue", "unknown wire tag %d", w.T)
	}
}

// encodeBinds flattens bind values for a request frame.
func encodeBinds(binds []*value.Value) ([]WireValue, error) {
	if len(binds) == 0 {
		return nil, nil
	}
	out := make([]WireValue, len(binds))
	for i, b := range binds {
		w, err := EncodeValue(b)
		if err != nil {
			return nil, err
		}
		out[i] = w
	}
	return out, nil
}

// decodeBinds rebuilds request binds in the server's scratch arena.
func decodeBinds(a *arena.Arena, ws []WireValue) ([]*value.Value, error) {
	if len(ws) == 0 {
		return nil, nil
	}
	out := make([]*value.Value, len(ws))
	for i, w := range ws {
		v, err := DecodeValue(a, w)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
