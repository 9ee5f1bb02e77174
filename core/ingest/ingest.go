// Package ingest bulk-loads rows into a table from CSV, XML, or JSONL
// input. Each load runs in a single transaction when the engine exposes
// its database handle; otherwise rows autocommit individually (the
// remote client path). Field values are inferred into typed bind values
// built in a per-batch arena.
package ingest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/FocuswithJustin/BriarSQL/core/arena"
	"github.com/FocuswithJustin/BriarSQL/core/engine"
	"github.com/FocuswithJustin/BriarSQL/core/status"
	"github.com/FocuswithJustin/BriarSQL/core/value"
	"github.com/FocuswithJustin/BriarSQL/internal/logging"
)

// batchSize is how many rows share one scratch arena before it is
// reclaimed.
const batchSize = 256

// Option configures a load.
type Option func(*config)

type config struct {
	header  bool
	columns []string
}

// WithoutHeader treats the first CSV row as data. Column names then come
// from WithColumns, or the insert is positional.
func WithoutHeader() Option {
	return func(c *config) {
		c.header = false
	}
}

// WithColumns names the target columns explicitly, overriding any header
// row.
func WithColumns(cols ...string) Option {
	return func(c *config) {
		c.columns = cols
	}
}

// execFunc runs one insert. It is bound to either an explicit
// transaction or the engine's autocommit path.
type execFunc func(sql string, binds []*value.Value) (int64, error)

// databaser is satisfied by engines that expose their database handle,
// which lets a load run as one transaction.
type databaser interface {
	Database() engine.Database
}

// runLoad wraps fn in a transaction when the engine supports it.
func runLoad(eng engine.Engine, fn func(exec execFunc) error) error {
	if eng == nil {
		return status.Opf(status.NullReference, "ingest.runLoad", "nil engine")
	}
	dber, ok := eng.(databaser)
	if !ok {
		return fn(eng.ExecuteStatement)
	}
	db := dber.Database()
	txn, err := db.Begin(engine.ReadWrite, engine.Default)
	if err != nil {
		return err
	}
	err = fn(func(sql string, binds []*value.Value) (int64, error) {
		return engine.ExecuteStatement(db, txn, sql, binds...)
	})
	if err != nil {
		_ = txn.Rollback()
		return err
	}
	return txn.Commit()
}

// insertSQL builds a positional insert for the table. With no column
// names the statement relies on the table's declared column order.
func insertSQL(table string, columns []string, n int) string {
	marks := make([]string, n)
	for i := range marks {
		marks[i] = "?"
	}
	if len(columns) == 0 {
		return fmt.Sprintf("INSERT INTO %s VALUES (%s)", table, strings.Join(marks, ", "))
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), strings.Join(marks, ", "))
}

// inferValue builds a typed value from a text field. Empty fields load
// as null; integers, reals, and booleans are recognized; everything else
// stays a string.
func inferValue(a *arena.Arena, field string) (*value.Value, error) {
	if field == "" {
		return value.Null(), nil
	}
	if n, err := strconv.ParseInt(field, 10, 64); err == nil {
		return value.NewInt(a, n)
	}
	if r, err := strconv.ParseFloat(field, 64); err == nil {
		return value.NewReal(a, r)
	}
	switch strings.ToLower(field) {
	case "true":
		return value.Bool(true), nil
	case "false":
		return value.Bool(false), nil
	}
	return value.NewString(a, field)
}

// batcher hands out scratch arenas that recycle every batchSize rows, so
// long loads do not accumulate bind values.
type batcher struct {
	a    *arena.Arena
	rows int
}

func (b *batcher) arena() *arena.Arena {
	if b.a == nil || b.rows >= batchSize {
		b.destroy()
		b.a = arena.New()
		b.rows = 0
	}
	b.rows++
	return b.a
}

func (b *batcher) destroy() {
	if b.a != nil {
		_ = b.a.Destroy()
		b.a = nil
	}
}

// LoadCSV loads CSV rows into the table. The first row is a header
// naming the target columns unless WithoutHeader or WithColumns says
// otherwise. Malformed CSV fails the whole load with a BadCSVFormat
// status naming the offending row.
func LoadCSV(eng engine.Engine, table string, r io.Reader, opts ...Option) (int64, error) {
	cfg := config{header: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	var loaded int64
	err := runLoad(eng, func(exec execFunc) error {
		cr := csv.NewReader(r)
		cr.ReuseRecord = true

		columns := cfg.columns
		row := 0
		if cfg.header && len(columns) == 0 {
			hdr, err := cr.Read()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return status.Wrap(status.BadCSVFormat, "ingest.LoadCSV", err)
			}
			row = 1
			columns = append([]string(nil), hdr...)
		} else if cfg.header {
			// Named columns were given; the header row is consumed and
			// ignored.
			if _, err := cr.Read(); err != nil && err != io.EOF {
				return status.Wrap(status.BadCSVFormat, "ingest.LoadCSV", err)
			}
			row = 1
		}

		var b batcher
		defer b.destroy()
		sql := ""
		for {
			rec, err := cr.Read()
			if err == io.EOF {
				return nil
			}
			row++
			if err != nil {
				return status.Opf(status.BadCSVFormat, "ingest.LoadCSV", "row %d: %v", row, err)
			}
			if sql == "" {
				sql = insertSQL(table, columns, len(rec))
			}
			a := b.arena()
			binds := make([]*value.Value, len(rec))
			for i, field := range rec {
				v, err := inferValue(a, field)
				if err != nil {
					return err
				}
				binds[i] = v
			}
			if _, err := exec(sql, binds); err != nil {
				return fmt.Errorf("row %d: %w", row, err)
			}
			loaded++
		}
	})
	if err != nil {
		return loaded, err
	}
	logging.IngestProgress("csv", table, loaded)
	return loaded, nil
}

// LoadJSONL loads one JSON object per input line into the table. Object
// keys name the target columns; the first object fixes the column set
// and later objects must not introduce new keys.
func LoadJSONL(eng engine.Engine, table string, r io.Reader) (int64, error) {
	var loaded int64
	err := runLoad(eng, func(exec execFunc) error {
		dec := json.NewDecoder(r)
		var b batcher
		defer b.destroy()

		var columns []string
		sql := ""
		line := 0
		for {
			var obj map[string]any
			if err := dec.Decode(&obj); err == io.EOF {
				return nil
			} else if err != nil {
				return status.Opf(status.InvalidOperand, "ingest.LoadJSONL", "object %d: %v", line+1, err)
			}
			line++
			if columns == nil {
				columns = sortedKeys(obj)
				sql = insertSQL(table, columns, len(columns))
			}
			a := b.arena()
			binds := make([]*value.Value, len(columns))
			for i, col := range columns {
				v, err := jsonValue(a, obj[col])
				if err != nil {
					return fmt.Errorf("object %d, column %s: %w", line, col, err)
				}
				binds[i] = v
			}
			if _, err := exec(sql, binds); err != nil {
				return fmt.Errorf("object %d: %w", line, err)
			}
			loaded++
		}
	})
	if err != nil {
		return loaded, err
	}
	logging.IngestProgress("jsonl", table, loaded)
	return loaded, nil
}

// jsonValue maps a decoded JSON value to a typed bind value. JSON
// numbers with no fraction load as integers.
func jsonValue(a *arena.Arena, x any) (*value.Value, error) {
	switch v := x.(type) {
	case nil:
		return value.Null(), nil
	case bool:
		return value.Bool(v), nil
	case float64:
		if v == float64(int64(v)) {
			return value.NewInt(a, int64(v))
		}
		return value.NewReal(a, v)
	case string:
		return value.NewString(a, v)
	default:
		// Nested arrays and objects re-serialize to JSON text.
		p, err := json.Marshal(v)
		if err != nil {
			return nil, status.Wrap(status.InvalidOperand, "ingest.jsonValue", err)
		}
		return value.NewString(a, string(p))
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
