package sqlite

import (
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/FocuswithJustin/BriarSQL/core/arena"
	"github.com/FocuswithJustin/BriarSQL/core/engine"
	"github.com/FocuswithJustin/BriarSQL/core/status"
	"github.com/FocuswithJustin/BriarSQL/core/value"
)

// dataSource is the engine.DataSource over a finished SQLite query. The
// raw rows are drained from the driver at construction so the result set
// survives the transaction that produced it; cells turn into Values only
// when the cursor reaches their row.
type dataSource struct {
	cols     []engine.ColumnInfo
	rows     [][]any
	alloc    *arena.Arena
	released bool
	cursored bool
}

var _ engine.DataSource = (*dataSource)(nil)

// newDataSource drains rows into memory and closes them. Column types come
// from the declared SQLite column types; expression columns without a
// declaration stay untyped (Null tag) and their cells carry their own tags.
func newDataSource(rows *sqlx.Rows) (*dataSource, error) {
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, mapError("sqlite.DataSource", err)
	}
	cols := make([]engine.ColumnInfo, len(types))
	for i, ct := range types {
		cols[i] = engine.ColumnInfo{
			Name: ct.Name(),
			Type: MapDeclaredType(ct.DatabaseTypeName()),
		}
	}

	var all [][]any
	for rows.Next() {
		row, err := rows.SliceScan()
		if err != nil {
			return nil, mapError("sqlite.DataSource", err)
		}
		all = append(all, row)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("sqlite.DataSource", err)
	}
	return &dataSource{
		cols:  cols,
		rows:  all,
		alloc: arena.NewBorrowed("data source"),
	}, nil
}

// NColumns returns the number of columns in each record.
func (ds *dataSource) NColumns() int {
	return len(ds.cols)
}

// Columns describes the result columns in ordinal order.
func (ds *dataSource) Columns() []engine.ColumnInfo {
	out := make([]engine.ColumnInfo, len(ds.cols))
	copy(out, ds.cols)
	return out
}

// Allocator returns the borrowed arena owning the cursor's records.
func (ds *dataSource) Allocator() *arena.Arena {
	return ds.alloc
}

// Cursor returns the cursor over the rows. One cursor per result set.
func (ds *dataSource) Cursor() (engine.Cursor, error) {
	if ds.released {
		return nil, status.Opf(status.InvalidState, "sqlite.Cursor", "result set released")
	}
	if ds.cursored {
		return nil, status.Opf(status.InvalidOperation, "sqlite.Cursor", "cursor already obtained")
	}
	ds.cursored = true
	return &cursor{ds: ds, pos: -1}, nil
}

// Release frees the result set. Every record the cursor produced dies
// with the arena.
func (ds *dataSource) Release() error {
	if ds.released {
		return nil
	}
	ds.released = true
	ds.rows = nil
	ds.alloc.Reclaim()
	return nil
}

// cursor walks the drained rows, materializing one Record per Advance.
type cursor struct {
	ds  *dataSource
	pos int
	rec *value.Record
}

var _ engine.Cursor = (*cursor)(nil)

// Advance moves to the next row, reporting false at the end.
func (c *cursor) Advance() (bool, error) {
	if c.ds.released {
		return false, status.Opf(status.InvalidState, "sqlite.Advance", "result set released")
	}
	c.rec = nil
	if c.pos+1 >= len(c.ds.rows) {
		c.pos = len(c.ds.rows)
		return false, nil
	}
	c.pos++
	rec, err := c.materialize(c.ds.rows[c.pos])
	if err != nil {
		return false, err
	}
	c.rec = rec
	return true, nil
}

// Record returns the current row. Calling it before the first Advance or
// past the end fails with NoMoreElements.
func (c *cursor) Record() (*value.Record, error) {
	if c.ds.released {
		return nil, status.Opf(status.InvalidState, "sqlite.Record", "result set released")
	}
	if c.rec == nil {
		return nil, status.Opf(status.NoMoreElements, "sqlite.Record", "cursor is not on a row")
	}
	return c.rec, nil
}

func (c *cursor) materialize(raw []any) (*value.Record, error) {
	cells := make([]*value.Value, len(raw))
	for i, cell := range raw {
		// Drivers scan TEXT cells as []byte; the declared column type
		// decides whether the bytes are character data.
		if p, ok := cell.([]byte); ok && c.ds.cols[i].Type == value.TypeString {
			cell = string(p)
		}
		v, err := value.Of(c.ds.alloc, cell)
		if err != nil {
			return nil, err
		}
		cells[i] = v
	}
	rv, err := value.NewRecord(c.ds.alloc, cells)
	if err != nil {
		return nil, err
	}
	return rv.Record()
}

// MapDeclaredType maps a declared SQLite column type to a value tag.
// SQLite's affinity rules make this a substring match, the same way the
// engine itself decides affinity. Unknown or undeclared types map to the
// Null tag, meaning the column is dynamically typed.
func MapDeclaredType(decl string) value.Type {
	d := strings.ToUpper(decl)
	switch {
	case d == "":
		return value.TypeNull
	case strings.Contains(d, "INT"):
		return value.TypeInt8
	case strings.Contains(d, "BOOL"):
		return value.TypeBool
	case strings.Contains(d, "DATE"), strings.Contains(d, "TIME"):
		return value.TypeDateTime
	case strings.Contains(d, "NUMERIC"), strings.Contains(d, "DECIMAL"):
		return value.TypeNumeric
	case strings.Contains(d, "CHAR"), strings.Contains(d, "CLOB"), strings.Contains(d, "TEXT"):
		return value.TypeString
	case strings.Contains(d, "BLOB"):
		return value.TypeBinary
	case strings.Contains(d, "REAL"), strings.Contains(d, "FLOA"), strings.Contains(d, "DOUB"):
		return value.TypeReal8
	default:
		return value.TypeNumeric
	}
}
