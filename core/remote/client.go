package remote

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/FocuswithJustin/BriarSQL/core/arena"
	"github.com/FocuswithJustin/BriarSQL/core/engine"
	"github.com/FocuswithJustin/BriarSQL/core/status"
	"github.com/FocuswithJustin/BriarSQL/core/value"
	"github.com/FocuswithJustin/BriarSQL/internal/logging"
)

// ClientParams configures a remote SQL connection.
type ClientParams struct {
	Host            string
	Port            int
	TxBufSize       int // transmit buffer size
	MaxConnAttempts int // dial retries before giving up
}

// NewClientParams returns client parameters with the standard defaults:
// 64 KiB transmit buffer, 10 connection attempts.
func NewClientParams(host string, port int) ClientParams {
	return ClientParams{
		Host:            host,
		Port:            port,
		TxBufSize:       64 * 1024,
		MaxConnAttempts: 10,
	}
}

// ClientOption configures optional client behavior.
type ClientOption func(*Remote)

// WithBearerToken attaches a bearer token to the connection handshake for
// servers running with WithAuthSecret.
func WithBearerToken(token string) ClientOption {
	return func(r *Remote) {
		r.token = token
	}
}

// Remote is a connection to a remote SQL server. It implements
// engine.Engine, so everything that runs against a local engine runs
// against a remote one unchanged.
//
// Requests are serialized over the single connection; the mutex makes a
// Remote safe to share, though result-set streaming interleaves with
// other calls at frame granularity.
type Remote struct {
	mu    sync.Mutex
	conn  *websocket.Conn
	token string
}

var _ engine.Engine = (*Remote)(nil)

// Connect dials the remote SQL server, retrying up to MaxConnAttempts
// times with a short backoff. Network failures surface as
// CommunicationError.
func Connect(params ClientParams, opts ...ClientOption) (*Remote, error) {
	if params.TxBufSize <= 0 {
		params.TxBufSize = 64 * 1024
	}
	if params.MaxConnAttempts <= 0 {
		params.MaxConnAttempts = 10
	}
	r := &Remote{}
	for _, opt := range opts {
		opt(r)
	}

	url := fmt.Sprintf("ws://%s:%d/", params.Host, params.Port)
	dialer := websocket.Dialer{
		ReadBufferSize:   params.TxBufSize,
		WriteBufferSize:  params.TxBufSize,
		HandshakeTimeout: 10 * time.Second,
	}
	var hdr http.Header
	if r.token != "" {
		hdr = http.Header{"Authorization": []string{"Bearer " + r.token}}
	}

	var lastErr error
	for attempt := 0; attempt < params.MaxConnAttempts; attempt++ {
		conn, _, err := dialer.Dial(url, hdr)
		if err == nil {
			r.conn = conn
			logging.RemoteEvent("connected", url, "attempts", attempt+1)
			return r, nil
		}
		lastErr = err
		time.Sleep(time.Duration(attempt+1) * 50 * time.Millisecond)
	}
	return nil, status.Wrap(status.CommunicationError, "remote.Connect", lastErr)
}

// call sends one request frame and reads the matching response.
func (r *Remote) call(req *request) (*response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil, status.Opf(status.InvalidState, "remote.call", "connection closed")
	}
	if err := r.conn.WriteJSON(req); err != nil {
		return nil, status.Wrap(status.CommunicationError, "remote.call", err)
	}
	var resp response
	if err := r.conn.ReadJSON(&resp); err != nil {
		return nil, status.Wrap(status.CommunicationError, "remote.call", err)
	}
	if resp.Status != 0 {
		// Server-reported statuses pass through unchanged.
		return nil, status.New(status.Code(resp.Status), resp.Error)
	}
	return &resp, nil
}

// Ping round-trips a no-op frame.
func (r *Remote) Ping() error {
	_, err := r.call(&request{Op: opPing})
	return err
}

// ExecuteStatement runs DDL or DML on the server and returns the
// affected row count.
func (r *Remote) ExecuteStatement(sql string, binds []*value.Value) (int64, error) {
	ws, err := encodeBinds(binds)
	if err != nil {
		return 0, err
	}
	resp, err := r.call(&request{Op: opExec, SQL: sql, Binds: ws})
	if err != nil {
		return 0, err
	}
	return resp.Affected, nil
}

// ExecuteQuery runs a query on the server. The result set stays
// server-side; rows stream to the returned DataSource in batches as its
// cursor advances.
func (r *Remote) ExecuteQuery(sql string, binds []*value.Value) (engine.DataSource, error) {
	ws, err := encodeBinds(binds)
	if err != nil {
		return nil, err
	}
	resp, err := r.call(&request{Op: opQuery, SQL: sql, Binds: ws})
	if err != nil {
		return nil, err
	}
	cols := make([]engine.ColumnInfo, len(resp.Columns))
	for i, c := range resp.Columns {
		cols[i] = engine.ColumnInfo{Name: c.Name, Type: value.Type(c.Type)}
	}
	return &remoteDataSource{
		client: r,
		handle: resp.Handle,
		cols:   cols,
		alloc:  arena.NewBorrowed("remote data source"),
	}, nil
}

// Close tells the server the session is done and drops the connection.
// The server releases any result sets the client left open.
func (r *Remote) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil
	}
	_ = r.conn.WriteJSON(&request{Op: opClose})
	err := r.conn.Close()
	r.conn = nil
	return status.Wrap(status.CommunicationError, "remote.Close", err)
}

// remoteDataSource streams rows for one server-side result handle.
type remoteDataSource struct {
	client   *Remote
	handle   string
	cols     []engine.ColumnInfo
	alloc    *arena.Arena
	released bool
	cursored bool

	pending [][]WireValue
	eof     bool
}

var _ engine.DataSource = (*remoteDataSource)(nil)

func (ds *remoteDataSource) NColumns() int {
	return len(ds.cols)
}

func (ds *remoteDataSource) Columns() []engine.ColumnInfo {
	out := make([]engine.ColumnInfo, len(ds.cols))
	copy(out, ds.cols)
	return out
}

func (ds *remoteDataSource) Allocator() *arena.Arena {
	return ds.alloc
}

func (ds *remoteDataSource) Cursor() (engine.Cursor, error) {
	if ds.released {
		return nil, status.Opf(status.InvalidState, "remote.Cursor", "result set released")
	}
	if ds.cursored {
		return nil, status.Opf(status.InvalidOperation, "remote.Cursor", "cursor already obtained")
	}
	ds.cursored = true
	return &remoteCursor{ds: ds}, nil
}

// Release frees the server-side result set and the records fetched so
// far. The handle may already be gone when the server session cleaned up
// first; that is not an error worth surfacing.
func (ds *remoteDataSource) Release() error {
	if ds.released {
		return nil
	}
	ds.released = true
	ds.pending = nil
	ds.alloc.Reclaim()
	_, err := ds.client.call(&request{Op: opRelease, Handle: ds.handle})
	if status.Is(err, status.InvalidOperand) {
		return nil
	}
	return err
}

// fetch pulls the next row batch from the server.
func (ds *remoteDataSource) fetch() error {
	resp, err := ds.client.call(&request{Op: opNext, Handle: ds.handle, Batch: defaultBatch})
	if err != nil {
		return err
	}
	ds.pending = append(ds.pending, resp.Rows...)
	if resp.EOF {
		ds.eof = true
	}
	return nil
}

type remoteCursor struct {
	ds  *remoteDataSource
	rec *value.Record
}

var _ engine.Cursor = (*remoteCursor)(nil)

func (c *remoteCursor) Advance() (bool, error) {
	ds := c.ds
	if ds.released {
		return false, status.Opf(status.InvalidState, "remote.Advance", "result set released")
	}
	c.rec = nil
	for len(ds.pending) == 0 {
		if ds.eof {
			return false, nil
		}
		if err := ds.fetch(); err != nil {
			return false, err
		}
	}
	row := ds.pending[0]
	ds.pending = ds.pending[1:]

	cells := make([]*value.Value, len(row))
	for i, w := range row {
		v, err := DecodeValue(ds.alloc, w)
		if err != nil {
			return false, err
		}
		cells[i] = v
	}
	rv, err := value.NewRecord(ds.alloc, cells)
	if err != nil {
		return false, err
	}
	rec, err := rv.Record()
	if err != nil {
		return false, err
	}
	c.rec = rec
	return true, nil
}

func (c *remoteCursor) Record() (*value.Record, error) {
	if c.ds.released {
		return nil, status.Opf(status.InvalidState, "remote.Record", "result set released")
	}
	if c.rec == nil {
		return nil, status.Opf(status.NoMoreElements, "remote.Record", "cursor is not on a row")
	}
	return c.rec, nil
}
