package remote

import (
	"net"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/FocuswithJustin/BriarSQL/core/arena"
	"github.com/FocuswithJustin/BriarSQL/core/engine"
	"github.com/FocuswithJustin/BriarSQL/core/sqlite"
	"github.com/FocuswithJustin/BriarSQL/core/status"
	"github.com/FocuswithJustin/BriarSQL/core/value"
)

// startTestServer runs a remote SQL server over an in-memory database and
// returns client parameters pointing at it.
func startTestServer(t *testing.T, opts ...ServerOption) ClientParams {
	t.Helper()

	db, err := sqlite.Open(sqlite.Memory)
	if err != nil {
		t.Fatalf("sqlite.Open = %v", err)
	}
	eng, err := engine.NewLocal(db)
	if err != nil {
		t.Fatalf("engine.NewLocal = %v", err)
	}
	if _, err := eng.ExecuteStatement("CREATE TABLE people (id INTEGER PRIMARY KEY, name TEXT NOT NULL, score REAL)", nil); err != nil {
		t.Fatalf("create table: %v", err)
	}

	srv, err := NewServer(eng, NewServerParams(0), opts...)
	if err != nil {
		t.Fatalf("NewServer = %v", err)
	}
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		hs.Close()
		_ = eng.Close()
	})

	host, portStr, err := net.SplitHostPort(hs.Listener.Addr().String())
	if err != nil {
		t.Fatalf("SplitHostPort = %v", err)
	}
	port, _ := strconv.Atoi(portStr)
	params := NewClientParams(host, port)
	params.MaxConnAttempts = 2
	return params
}

func dialTest(t *testing.T, params ClientParams, opts ...ClientOption) *Remote {
	t.Helper()
	r, err := Connect(params, opts...)
	if err != nil {
		t.Fatalf("Connect = %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func bindOf(t *testing.T, a *arena.Arena, x any) *value.Value {
	t.Helper()
	v, err := value.Of(a, x)
	if err != nil {
		t.Fatalf("value.Of(%v) = %v", x, err)
	}
	return v
}

func TestRemoteExecAndQuery(t *testing.T) {
	params := startTestServer(t)
	r := dialTest(t, params)

	a := arena.New()
	defer a.Destroy()

	n, err := r.ExecuteStatement(
		"INSERT INTO people (name, score) VALUES (?, ?), (?, ?)",
		[]*value.Value{
			bindOf(t, a, "ada"), bindOf(t, a, 9.5),
			bindOf(t, a, "grace"), bindOf(t, a, 8.25),
		})
	if err != nil {
		t.Fatalf("ExecuteStatement = %v", err)
	}
	if n != 2 {
		t.Errorf("affected = %d, want 2", n)
	}

	ds, err := r.ExecuteQuery("SELECT name, score FROM people ORDER BY id", nil)
	if err != nil {
		t.Fatalf("ExecuteQuery = %v", err)
	}
	defer func() { _ = ds.Release() }()

	cols := ds.Columns()
	if len(cols) != 2 || cols[0].Name != "name" {
		t.Fatalf("columns = %+v, want name, score", cols)
	}

	cur, err := ds.Cursor()
	if err != nil {
		t.Fatalf("Cursor = %v", err)
	}

	var names []string
	for {
		ok, err := cur.Advance()
		if err != nil {
			t.Fatalf("Advance = %v", err)
		}
		if !ok {
			break
		}
		rec, err := cur.Record()
		if err != nil {
			t.Fatalf("Record = %v", err)
		}
		ref, err := rec.GetColumn(0)
		if err != nil {
			t.Fatalf("GetColumn(0) = %v", err)
		}
		p, err := ref.Value().Bytes()
		if err != nil {
			t.Fatalf("Bytes = %v", err)
		}
		names = append(names, string(p))
	}
	if len(names) != 2 || names[0] != "ada" || names[1] != "grace" {
		t.Errorf("names = %v, want [ada grace]", names)
	}

	// Off the end the cursor holds no row.
	if _, err := cur.Record(); !status.Is(err, status.NoMoreElements) {
		t.Errorf("Record past end = %v, want NoMoreElements", err)
	}
}

func TestRemoteBatchStreaming(t *testing.T) {
	params := startTestServer(t)
	r := dialTest(t, params)

	a := arena.New()
	defer a.Destroy()

	// More rows than one batch frame carries.
	for i := 0; i < defaultBatch+10; i++ {
		_, err := r.ExecuteStatement("INSERT INTO people (name) VALUES (?)",
			[]*value.Value{bindOf(t, a, "row"+strconv.Itoa(i))})
		if err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	ds, err := r.ExecuteQuery("SELECT id FROM people ORDER BY id", nil)
	if err != nil {
		t.Fatalf("ExecuteQuery = %v", err)
	}
	defer func() { _ = ds.Release() }()

	cur, err := ds.Cursor()
	if err != nil {
		t.Fatalf("Cursor = %v", err)
	}
	count := 0
	for {
		ok, err := cur.Advance()
		if err != nil {
			t.Fatalf("Advance at row %d: %v", count, err)
		}
		if !ok {
			break
		}
		count++
	}
	if count != defaultBatch+10 {
		t.Errorf("streamed %d rows, want %d", count, defaultBatch+10)
	}
}

func TestRemoteServerErrorsKeepTheirCode(t *testing.T) {
	params := startTestServer(t)
	r := dialTest(t, params)

	tests := []struct {
		name string
		sql  string
		want status.Code
	}{
		{"syntax error", "SELEC 1", status.CompileError},
		{"missing table", "SELECT * FROM nothing", status.CompileError},
		{"null violation", "INSERT INTO people (name) VALUES (NULL)", status.NullValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.ExecuteStatement(tt.sql, nil)
			if !status.Is(err, tt.want) {
				t.Errorf("code = %v (err %v), want %v", status.CodeOf(err), err, tt.want)
			}
		})
	}
}

func TestRemoteReleaseInvalidatesResult(t *testing.T) {
	params := startTestServer(t)
	r := dialTest(t, params)

	ds, err := r.ExecuteQuery("SELECT 1", nil)
	if err != nil {
		t.Fatalf("ExecuteQuery = %v", err)
	}
	cur, err := ds.Cursor()
	if err != nil {
		t.Fatalf("Cursor = %v", err)
	}
	if err := ds.Release(); err != nil {
		t.Fatalf("Release = %v", err)
	}
	if err := ds.Release(); err != nil {
		t.Errorf("second Release = %v, want nil", err)
	}
	if _, err := cur.Advance(); !status.Is(err, status.InvalidState) {
		t.Errorf("Advance after release = %v, want InvalidState", err)
	}
}

func TestRemoteSecondCursorRejected(t *testing.T) {
	params := startTestServer(t)
	r := dialTest(t, params)

	ds, err := r.ExecuteQuery("SELECT 1", nil)
	if err != nil {
		t.Fatalf("ExecuteQuery = %v", err)
	}
	defer func() { _ = ds.Release() }()

	if _, err := ds.Cursor(); err != nil {
		t.Fatalf("first Cursor = %v", err)
	}
	if _, err := ds.Cursor(); !status.Is(err, status.InvalidOperation) {
		t.Errorf("second Cursor = %v, want InvalidOperation", err)
	}
}

func TestRemotePing(t *testing.T) {
	params := startTestServer(t)
	r := dialTest(t, params)
	if err := r.Ping(); err != nil {
		t.Errorf("Ping = %v", err)
	}
}

func TestRemoteAuth(t *testing.T) {
	secret := []byte("remote-test-secret")
	params := startTestServer(t, WithAuthSecret(secret))

	t.Run("no token is refused", func(t *testing.T) {
		p := params
		p.MaxConnAttempts = 1
		if _, err := Connect(p); !status.Is(err, status.CommunicationError) {
			t.Errorf("Connect without token = %v, want CommunicationError", err)
		}
	})

	t.Run("valid token connects", func(t *testing.T) {
		token, err := IssueToken(secret, "tester", time.Minute)
		if err != nil {
			t.Fatalf("IssueToken = %v", err)
		}
		r := dialTest(t, params, WithBearerToken(token))
		if _, err := r.ExecuteStatement("INSERT INTO people (name) VALUES ('authed')", nil); err != nil {
			t.Errorf("ExecuteStatement over authed connection = %v", err)
		}
	})

	t.Run("garbage token is refused", func(t *testing.T) {
		p := params
		p.MaxConnAttempts = 1
		if _, err := Connect(p, WithBearerToken("not-a-jwt")); !status.Is(err, status.CommunicationError) {
			t.Errorf("Connect with bad token = %v, want CommunicationError", err)
		}
	})
}

func TestRemoteUseAfterClose(t *testing.T) {
	params := startTestServer(t)
	r, err := Connect(params)
	if err != nil {
		t.Fatalf("Connect = %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close = %v", err)
	}
	if _, err := r.ExecuteStatement("SELECT 1", nil); !status.Is(err, status.InvalidState) {
		t.Errorf("ExecuteStatement after Close = %v, want InvalidState", err)
	}
}
