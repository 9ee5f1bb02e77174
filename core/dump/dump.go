// Package dump streams a query result set to JSONL or CSV, optionally
// through an xz compressor. Its output is shaped so core/ingest can load
// it back.
package dump

import (
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/BriarSQL/core/engine"
	"github.com/FocuswithJustin/BriarSQL/core/status"
)

// Injectable for fault testing.
var xzNewWriter = xz.NewWriter

// Format selects the output shape.
type Format string

const (
	FormatJSONL Format = "jsonl"
	FormatCSV   Format = "csv"
)

// ParseFormat maps a format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "jsonl", "json":
		return FormatJSONL, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", status.Opf(status.InvalidOperand, "dump.ParseFormat", "unknown format %q", s)
	}
}

// Option configures a Writer.
type Option func(*Writer)

// WithXZ compresses the output as an xz stream. The Writer must be
// closed for the stream to be finalized.
func WithXZ() Option {
	return func(w *Writer) {
		w.compress = true
	}
}

// Writer streams result sets to one output in a fixed format.
type Writer struct {
	out      io.Writer
	format   Format
	compress bool
	closer   io.Closer
}

// NewWriter builds a Writer over out.
func NewWriter(out io.Writer, format Format, opts ...Option) (*Writer, error) {
	w := &Writer{out: out, format: format}
	for _, opt := range opts {
		opt(w)
	}
	switch format {
	case FormatJSONL, FormatCSV:
	default:
		return nil, status.Opf(status.InvalidOperand, "dump.NewWriter", "unknown format %q", format)
	}
	if w.compress {
		xw, err := xzNewWriter(out)
		if err != nil {
			return nil, fmt.Errorf("creating xz writer: %w", err)
		}
		w.out = xw
		w.closer = xw
	}
	return w, nil
}

// Close finalizes the output stream. Required when compressing; harmless
// otherwise.
func (w *Writer) Close() error {
	if w.closer == nil {
		return nil
	}
	c := w.closer
	w.closer = nil
	return c.Close()
}

// Dump streams every row of the result set and returns the row count.
// The caller keeps ownership of the result set and still releases it.
func (w *Writer) Dump(ds engine.DataSource) (int64, error) {
	if ds == nil {
		return 0, status.Opf(status.NullReference, "dump.Dump", "nil data source")
	}
	switch w.format {
	case FormatCSV:
		return w.dumpCSV(ds)
	default:
		return w.dumpJSONL(ds)
	}
}

func (w *Writer) dumpJSONL(ds engine.DataSource) (int64, error) {
	cols := ds.Columns()
	cur, err := ds.Cursor()
	if err != nil {
		return 0, err
	}
	enc := json.NewEncoder(w.out)

	var rows int64
	for {
		ok, err := cur.Advance()
		if err != nil {
			return rows, err
		}
		if !ok {
			return rows, nil
		}
		rec, err := cur.Record()
		if err != nil {
			return rows, err
		}
		obj := make(map[string]any, len(cols))
		for i, col := range cols {
			ref, err := rec.GetColumn(i)
			if err != nil {
				return rows, err
			}
			native, err := ref.Value().Native()
			if err != nil {
				return rows, err
			}
			obj[col.Name] = jsonCell(native)
		}
		if err := enc.Encode(obj); err != nil {
			return rows, fmt.Errorf("row %d: %w", rows+1, err)
		}
		rows++
	}
}

func (w *Writer) dumpCSV(ds engine.DataSource) (int64, error) {
	cols := ds.Columns()
	cur, err := ds.Cursor()
	if err != nil {
		return 0, err
	}
	cw := csv.NewWriter(w.out)

	header := make([]string, len(cols))
	for i, col := range cols {
		header[i] = col.Name
	}
	if err := cw.Write(header); err != nil {
		return 0, err
	}

	var rows int64
	fields := make([]string, len(cols))
	for {
		ok, err := cur.Advance()
		if err != nil {
			return rows, err
		}
		if !ok {
			cw.Flush()
			return rows, cw.Error()
		}
		rec, err := cur.Record()
		if err != nil {
			return rows, err
		}
		for i := range cols {
			ref, err := rec.GetColumn(i)
			if err != nil {
				return rows, err
			}
			native, err := ref.Value().Native()
			if err != nil {
				return rows, err
			}
			fields[i] = csvCell(native)
		}
		if err := cw.Write(fields); err != nil {
			return rows, fmt.Errorf("row %d: %w", rows+1, err)
		}
		rows++
	}
}

// jsonCell keeps JSON-native shapes and renders the rest as strings.
func jsonCell(native any) any {
	switch v := native.(type) {
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return v
	}
}

// csvCell renders one cell as CSV text. Nulls become empty fields, which
// is what the CSV loader reads them back as.
func csvCell(native any) string {
	switch v := native.(type) {
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return v
	case []byte:
		return base64.StdEncoding.EncodeToString(v)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}
