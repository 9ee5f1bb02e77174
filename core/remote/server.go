package remote

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/FocuswithJustin/BriarSQL/core/arena"
	"github.com/FocuswithJustin/BriarSQL/core/engine"
	"github.com/FocuswithJustin/BriarSQL/core/status"
	"github.com/FocuswithJustin/BriarSQL/core/value"
	"github.com/FocuswithJustin/BriarSQL/internal/logging"
)

// ServerParams configures the remote SQL server.
type ServerParams struct {
	Port        int
	BufSize     int // read/write buffer size per connection
	Threads     int // maximum concurrent connections served
	ListenQueue int // accept backlog hint
}

// NewServerParams returns server parameters with the standard defaults:
// 64 KiB buffers, 8 worker threads, a listen queue of 5.
func NewServerParams(port int) ServerParams {
	return ServerParams{
		Port:        port,
		BufSize:     64 * 1024,
		Threads:     8,
		ListenQueue: 5,
	}
}

// ServerOption configures optional server behavior.
type ServerOption func(*Server)

// WithAuthSecret enables bearer authentication: connections must present
// a valid HS256 JWT signed with the secret, either as a bearer token in
// the Authorization header or as a token query parameter.
func WithAuthSecret(secret []byte) ServerOption {
	return func(s *Server) {
		s.authSecret = secret
	}
}

// WithOriginCheck replaces the WebSocket origin check. The default
// accepts any origin, which suits non-browser SQL clients.
func WithOriginCheck(fn func(r *http.Request) bool) ServerOption {
	return func(s *Server) {
		s.upgrader.CheckOrigin = fn
	}
}

// Server binds an engine.Engine to the remote SQL protocol. Each
// connection is served by one goroutine with serialized dispatch, so the
// per-connection scratch arena needs no locking.
type Server struct {
	eng        engine.Engine
	params     ServerParams
	upgrader   websocket.Upgrader
	authSecret []byte

	mu       sync.Mutex
	listener net.Listener
	httpSrv  *http.Server
	sessions int
	sem      chan struct{}
}

// NewServer creates a remote SQL server over the engine. The server has
// to be started explicitly with Start, or mounted via Handler.
func NewServer(eng engine.Engine, params ServerParams, opts ...ServerOption) (*Server, error) {
	if eng == nil {
		return nil, status.Opf(status.NullReference, "remote.NewServer", "nil engine")
	}
	if params.BufSize <= 0 {
		params.BufSize = 64 * 1024
	}
	if params.Threads <= 0 {
		params.Threads = 8
	}
	if params.ListenQueue <= 0 {
		params.ListenQueue = 5
	}
	s := &Server{
		eng:    eng,
		params: params,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  params.BufSize,
			WriteBufferSize: params.BufSize,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		sem: make(chan struct{}, params.Threads),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handler returns the HTTP handler serving the SQL endpoint, for mounting
// into an existing server or a test harness.
func (s *Server) Handler() http.Handler {
	return logging.CombinedMiddleware(http.HandlerFunc(s.serveSQL))
}

// Start listens on the configured port and serves until Stop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.params.Port))
	if err != nil {
		return status.Wrap(status.CommunicationError, "remote.Start", err)
	}
	s.mu.Lock()
	s.listener = ln
	s.httpSrv = &http.Server{Handler: s.Handler()}
	srv := s.httpSrv
	s.mu.Unlock()

	logging.ServerStartup("remote-sql", "websocket", s.params.Port,
		"threads", s.params.Threads, "buf_size", s.params.BufSize)

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("remote server stopped", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound listen address once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down and drops every connection.
func (s *Server) Stop() error {
	s.mu.Lock()
	srv := s.httpSrv
	s.httpSrv = nil
	s.listener = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return status.Wrap(status.CommunicationError, "remote.Stop", srv.Close())
}

func (s *Server) serveSQL(w http.ResponseWriter, r *http.Request) {
	if err := s.authorize(r); err != nil {
		logging.SecurityEvent("auth_failed", "remote", "remote_addr", r.RemoteAddr, "error", err.Error())
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	default:
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error("websocket upgrade failed", "error", err)
		return
	}

	s.mu.Lock()
	s.sessions++
	n := s.sessions
	s.mu.Unlock()
	logging.RemoteEvent("client_connected", r.RemoteAddr, "sessions", n)

	sess := newServerSession(s.eng, conn)
	sess.run()

	s.mu.Lock()
	s.sessions--
	n = s.sessions
	s.mu.Unlock()
	logging.RemoteEvent("client_disconnected", r.RemoteAddr, "sessions", n)
}

// authorize validates the bearer token when auth is enabled.
func (s *Server) authorize(r *http.Request) error {
	if len(s.authSecret) == 0 {
		return nil
	}
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if raw == "" || raw == r.Header.Get("Authorization") {
		raw = r.URL.Query().Get("token")
	}
	if raw == "" {
		return status.New(status.CommunicationError, "missing bearer token")
	}
	_, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.authSecret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return status.Wrap(status.CommunicationError, "remote.authorize", err)
	}
	return nil
}

// IssueToken signs a short-lived HS256 bearer token for the secret. The
// CLI uses it to mint client tokens for a server it also started.
func IssueToken(secret []byte, subject string, ttl time.Duration) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	})
	signed, err := tok.SignedString(secret)
	if err != nil {
		return "", status.Wrap(status.RuntimeError, "remote.IssueToken", err)
	}
	return signed, nil
}

// serverSession is the per-connection state: one scratch arena for bind
// values and the open result sets keyed by uuid handles.
type serverSession struct {
	eng     engine.Engine
	conn    *websocket.Conn
	scratch *arena.Arena
	results map[string]*serverResult
}

type serverResult struct {
	ds  engine.DataSource
	cur engine.Cursor
}

func newServerSession(eng engine.Engine, conn *websocket.Conn) *serverSession {
	return &serverSession{
		eng:     eng,
		conn:    conn,
		scratch: arena.New(),
		results: make(map[string]*serverResult),
	}
}

// run dispatches frames until the connection drops or the client sends
// close. Dispatch is serialized per connection.
func (ss *serverSession) run() {
	defer ss.cleanup()
	for {
		var req request
		if err := ss.conn.ReadJSON(&req); err != nil {
			return
		}
		resp, closing := ss.dispatch(&req)
		if err := ss.conn.WriteJSON(resp); err != nil {
			return
		}
		if closing {
			return
		}
	}
}

func (ss *serverSession) cleanup() {
	for h, res := range ss.results {
		_ = res.ds.Release()
		delete(ss.results, h)
	}
	_ = ss.scratch.Destroy()
	_ = ss.conn.Close()
}

func (ss *serverSession) dispatch(req *request) (resp response, closing bool) {
	// No fault may drop the connection without a status frame.
	defer func() {
		if r := recover(); r != nil {
			resp = errorResponse(status.Opf(status.RuntimeError, "remote.dispatch", "panic: %v", r))
		}
	}()

	switch req.Op {
	case opPing:
		return response{}, false
	case opClose:
		return response{}, true
	case opExec:
		return ss.handleExec(req), false
	case opQuery:
		return ss.handleQuery(req), false
	case opNext:
		return ss.handleNext(req), false
	case opRelease:
		return ss.handleRelease(req), false
	default:
		return errorResponse(status.Opf(status.InvalidOperand, "remote.dispatch", "unknown op %q", req.Op)), false
	}
}

func (ss *serverSession) handleExec(req *request) response {
	binds, err := decodeBinds(ss.scratch, req.Binds)
	if err != nil {
		return errorResponse(err)
	}
	defer releaseAll(binds)
	n, err := ss.eng.ExecuteStatement(req.SQL, binds)
	if err != nil {
		return errorResponse(err)
	}
	return response{Affected: n}
}

func (ss *serverSession) handleQuery(req *request) response {
	binds, err := decodeBinds(ss.scratch, req.Binds)
	if err != nil {
		return errorResponse(err)
	}
	defer releaseAll(binds)
	ds, err := ss.eng.ExecuteQuery(req.SQL, binds)
	if err != nil {
		return errorResponse(err)
	}
	cur, err := ds.Cursor()
	if err != nil {
		_ = ds.Release()
		return errorResponse(err)
	}
	handle := uuid.NewString()
	ss.results[handle] = &serverResult{ds: ds, cur: cur}

	cols := ds.Columns()
	wcols := make([]wireColumn, len(cols))
	for i, c := range cols {
		wcols[i] = wireColumn{Name: c.Name, Type: int(c.Type)}
	}
	return response{Handle: handle, Columns: wcols}
}

func (ss *serverSession) handleNext(req *request) response {
	res, ok := ss.results[req.Handle]
	if !ok {
		return errorResponse(status.Opf(status.InvalidOperand, "remote.next", "unknown result handle"))
	}
	batch := req.Batch
	if batch <= 0 {
		batch = defaultBatch
	}
	ncols := res.ds.NColumns()
	var rows [][]WireValue
	for len(rows) < batch {
		ok, err := res.cur.Advance()
		if err != nil {
			return errorResponse(err)
		}
		if !ok {
			return response{Rows: rows, EOF: true}
		}
		rec, err := res.cur.Record()
		if err != nil {
			return errorResponse(err)
		}
		row := make([]WireValue, ncols)
		for i := 0; i < ncols; i++ {
			ref, err := rec.GetColumn(i)
			if err != nil {
				return errorResponse(err)
			}
			w, err := EncodeValue(ref.Value())
			if err != nil {
				return errorResponse(err)
			}
			row[i] = w
		}
		rows = append(rows, row)
	}
	return response{Rows: rows}
}

func (ss *serverSession) handleRelease(req *request) response {
	res, ok := ss.results[req.Handle]
	if !ok {
		return errorResponse(status.Opf(status.InvalidOperand, "remote.release", "unknown result handle"))
	}
	delete(ss.results, req.Handle)
	if err := res.ds.Release(); err != nil {
		return errorResponse(err)
	}
	return response{}
}

func errorResponse(err error) response {
	return response{
		Status: int(status.CodeOf(err)),
		Error:  err.Error(),
	}
}

func releaseAll(vals []*value.Value) {
	for _, v := range vals {
		_ = v.Release()
	}
}
