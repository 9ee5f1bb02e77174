package dump

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/BriarSQL/core/engine"
	"github.com/FocuswithJustin/BriarSQL/core/ingest"
	"github.com/FocuswithJustin/BriarSQL/core/sqlite"
	"github.com/FocuswithJustin/BriarSQL/core/status"
)

// openTestEngine returns a local engine with a populated source table
// and an empty copy table.
func openTestEngine(t *testing.T) *engine.Local {
	t.Helper()
	db, err := sqlite.Open(sqlite.Memory)
	if err != nil {
		t.Fatalf("sqlite.Open = %v", err)
	}
	eng, err := engine.NewLocal(db)
	if err != nil {
		t.Fatalf("engine.NewLocal = %v", err)
	}
	t.Cleanup(func() { _ = eng.Close() })

	stmts := []string{
		"CREATE TABLE people (name TEXT, age INTEGER, score REAL)",
		"CREATE TABLE copy (name TEXT, age INTEGER, score REAL)",
		"INSERT INTO people VALUES ('ada', 36, 9.5)",
		"INSERT INTO people VALUES ('grace', 45, 8.25)",
		"INSERT INTO people VALUES ('linus', NULL, NULL)",
	}
	for _, s := range stmts {
		if _, err := eng.ExecuteStatement(s, nil); err != nil {
			t.Fatalf("%s: %v", s, err)
		}
	}
	return eng
}

func queryPeople(t *testing.T, eng engine.Engine) engine.DataSource {
	t.Helper()
	ds, err := eng.ExecuteQuery("SELECT name, age, score FROM people ORDER BY name", nil)
	if err != nil {
		t.Fatalf("ExecuteQuery = %v", err)
	}
	t.Cleanup(func() { _ = ds.Release() })
	return ds
}

func countCopy(t *testing.T, eng engine.Engine) int64 {
	t.Helper()
	ds, err := eng.ExecuteQuery("SELECT COUNT(*) FROM copy", nil)
	if err != nil {
		t.Fatalf("count query: %v", err)
	}
	defer func() { _ = ds.Release() }()
	cur, err := ds.Cursor()
	if err != nil {
		t.Fatalf("Cursor = %v", err)
	}
	if ok, err := cur.Advance(); !ok || err != nil {
		t.Fatalf("Advance = %v, %v", ok, err)
	}
	rec, err := cur.Record()
	if err != nil {
		t.Fatalf("Record = %v", err)
	}
	ref, err := rec.GetColumn(0)
	if err != nil {
		t.Fatalf("GetColumn = %v", err)
	}
	n, err := ref.Value().Int()
	if err != nil {
		t.Fatalf("Int = %v", err)
	}
	return n
}

func TestDumpCSVRoundTrip(t *testing.T) {
	eng := openTestEngine(t)

	var buf bytes.Buffer
	w, err := NewWriter(&buf, FormatCSV)
	if err != nil {
		t.Fatalf("NewWriter = %v", err)
	}
	n, err := w.Dump(queryPeople(t, eng))
	if err != nil {
		t.Fatalf("Dump = %v", err)
	}
	if n != 3 {
		t.Errorf("dumped = %d, want 3", n)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "name,age,score\n") {
		t.Errorf("output missing header:\n%s", out)
	}

	loaded, err := ingest.LoadCSV(eng, "copy", &buf)
	if err != nil {
		t.Fatalf("LoadCSV = %v", err)
	}
	if loaded != 3 || countCopy(t, eng) != 3 {
		t.Errorf("round trip loaded %d rows, want 3", loaded)
	}
}

func TestDumpJSONLRoundTrip(t *testing.T) {
	eng := openTestEngine(t)

	var buf bytes.Buffer
	w, err := NewWriter(&buf, FormatJSONL)
	if err != nil {
		t.Fatalf("NewWriter = %v", err)
	}
	n, err := w.Dump(queryPeople(t, eng))
	if err != nil {
		t.Fatalf("Dump = %v", err)
	}
	if n != 3 {
		t.Errorf("dumped = %d, want 3", n)
	}
	if lines := strings.Count(buf.String(), "\n"); lines != 3 {
		t.Errorf("output has %d lines, want 3:\n%s", lines, buf.String())
	}

	loaded, err := ingest.LoadJSONL(eng, "copy", &buf)
	if err != nil {
		t.Fatalf("LoadJSONL = %v", err)
	}
	if loaded != 3 || countCopy(t, eng) != 3 {
		t.Errorf("round trip loaded %d rows, want 3", loaded)
	}
}

func TestDumpXZRoundTrip(t *testing.T) {
	eng := openTestEngine(t)

	var buf bytes.Buffer
	w, err := NewWriter(&buf, FormatCSV, WithXZ())
	if err != nil {
		t.Fatalf("NewWriter = %v", err)
	}
	if _, err := w.Dump(queryPeople(t, eng)); err != nil {
		t.Fatalf("Dump = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close = %v", err)
	}

	xr, err := xz.NewReader(&buf)
	if err != nil {
		t.Fatalf("xz.NewReader = %v", err)
	}
	loaded, err := ingest.LoadCSV(eng, "copy", xr)
	if err != nil {
		t.Fatalf("LoadCSV = %v", err)
	}
	if loaded != 3 || countCopy(t, eng) != 3 {
		t.Errorf("round trip loaded %d rows, want 3", loaded)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"jsonl", FormatJSONL, false},
		{"json", FormatJSONL, false},
		{"csv", FormatCSV, false},
		{"yaml", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				if !status.Is(err, status.InvalidOperand) {
					t.Errorf("ParseFormat(%q) err = %v, want InvalidOperand", tt.in, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, %v, want %q", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestNewWriterUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if _, err := NewWriter(&buf, Format("yaml")); !status.Is(err, status.InvalidOperand) {
		t.Errorf("NewWriter(yaml) = %v, want InvalidOperand", err)
	}
}

func TestDumpNilDataSource(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, FormatJSONL)
	if err != nil {
		t.Fatalf("NewWriter = %v", err)
	}
	if _, err := w.Dump(nil); !status.Is(err, status.NullReference) {
		t.Errorf("Dump(nil) = %v, want NullReference", err)
	}
}

func TestCloseWithoutCompression(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, FormatCSV)
	if err != nil {
		t.Fatalf("NewWriter = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close = %v", err)
	}
}
