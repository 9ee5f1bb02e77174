// Package sqlite is the reference collaborator behind the BriarSQL
// boundary: a Database, Transaction, and DataSource implementation over a
// SQLite file or in-memory database.
//
// Build modes:
//   - Default (CGO_ENABLED=0): Uses pure Go modernc.org/sqlite
//   - CGO mode (CGO_ENABLED=1 -tags cgo_sqlite): Uses mattn/go-sqlite3 via contrib/sqlite-external
//
// The CGO driver is located in contrib/sqlite-external/ to clearly separate
// optional external dependencies from core functionality.
//
// The driver name is "sqlite" or "sqlite3" depending on the implementation.
// Use Open() instead of sql.Open() to ensure the correct driver is used.
package sqlite

import (
	"database/sql"
	"encoding/hex"

	"github.com/jmoiron/sqlx"
	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/BriarSQL/core/arena"
	"github.com/FocuswithJustin/BriarSQL/core/cache"
	"github.com/FocuswithJustin/BriarSQL/core/engine"
	"github.com/FocuswithJustin/BriarSQL/core/status"
	"github.com/FocuswithJustin/BriarSQL/core/value"
	"github.com/FocuswithJustin/BriarSQL/internal/logging"
)

// DriverName returns the SQL driver name in use.
func DriverName() string {
	return driverName
}

// DriverType returns a string identifying the underlying implementation.
// Returns "cgo" for mattn/go-sqlite3, "purego" for modernc.org/sqlite.
func DriverType() string {
	return driverType
}

// IsCGO returns true if the CGO implementation is being used.
func IsCGO() bool {
	return driverType == "cgo"
}

// Info contains information about the SQLite driver configuration.
type Info struct {
	DriverName string `json:"driver_name"`
	DriverType string `json:"driver_type"`
	IsCGO      bool   `json:"is_cgo"`
	Package    string `json:"package"`
}

// GetInfo returns information about the current SQLite configuration.
func GetInfo() Info {
	return Info{
		DriverName: driverName,
		DriverType: driverType,
		IsCGO:      IsCGO(),
		Package:    driverPackage,
	}
}

// Memory is the data source name of a private in-memory database.
const Memory = ":memory:"

// Option configures an opened database.
type Option func(*config)

type config struct {
	stmtCacheSize int
}

// WithStatementCacheSize sets how many prepared statements stay cached.
// The default is 64; zero or a negative value disables caching, and
// statements then prepare per call on the connection pool.
func WithStatementCacheSize(n int) Option {
	return func(c *config) {
		c.stmtCacheSize = n
	}
}

// DB implements engine.Database over a SQLite database.
//
// All boundary values pass through the tagged value model: bind values
// flatten to driver natives on the way in, result cells come back as
// Values owned by the result set's arena. The DB is safe for concurrent
// statement execution the way database/sql is, but the borrowed arena it
// lends out follows the usual single-worker arena discipline.
type DB struct {
	dbx   *sqlx.DB
	alloc *arena.Arena
	stmts cache.Cache[string, *sqlx.Stmt]
}

var _ engine.Database = (*DB)(nil)

// Open opens a SQLite database at path, creating it if needed. Use Memory
// for a private in-memory database.
func Open(path string, opts ...Option) (*DB, error) {
	cfg := config{stmtCacheSize: 64}
	for _, opt := range opts {
		opt(&cfg)
	}
	dbx, err := sqlx.Open(driverName, path)
	if err != nil {
		return nil, mapError("sqlite.Open", err)
	}
	// In-memory databases vanish when their last connection closes; pin a
	// single connection so every statement sees the same database.
	if path == Memory {
		dbx.SetMaxOpenConns(1)
	}
	if err := dbx.Ping(); err != nil {
		_ = dbx.Close()
		return nil, mapError("sqlite.Open", err)
	}
	db := &DB{
		dbx:   dbx,
		alloc: arena.NewBorrowed("database"),
	}
	// A nil cache means caching is off; the cache's own zero MaxSize
	// would mean unlimited, which is the opposite of disabled.
	if cfg.stmtCacheSize > 0 {
		db.stmts = cache.NewLRUCache[string, *sqlx.Stmt](cache.Config{
			MaxSize: cfg.stmtCacheSize,
			OnEvict: func(_, v interface{}) {
				_ = v.(*sqlx.Stmt).Close()
			},
		})
	}
	return db, nil
}

// Allocator returns the database-scoped borrowed arena.
func (db *DB) Allocator() *arena.Arena {
	return db.alloc
}

// Begin opens a transaction. ReadOnly maps to a deferred read-only
// transaction; the writing modes defer lock acquisition to SQLite's own
// upgrade-on-first-write discipline.
func (db *DB) Begin(mode engine.TransactionMode, level engine.IsolationLevel) (engine.Transaction, error) {
	// SQLite transactions are always serializable; the requested isolation
	// level is accepted and subsumed.
	_ = level
	tx, err := db.dbx.Beginx()
	if err != nil {
		return nil, mapError("sqlite.Begin", err)
	}
	// Read-only is enforced as a connection pragma rather than TxOptions
	// so both drivers behave identically.
	readOnly := mode == engine.ReadOnly
	if readOnly {
		if _, err := tx.Exec("PRAGMA query_only = 1"); err != nil {
			_ = tx.Rollback()
			return nil, mapError("sqlite.Begin", err)
		}
	}
	return &Tx{tx: tx, alloc: arena.NewBorrowed("transaction"), readOnly: readOnly}, nil
}

// stmt returns the cached prepared statement for sql, preparing and
// caching it on miss. Cache keys are blake3 digests so arbitrarily long
// statement text stays a fixed-size key.
func (db *DB) stmt(sqlText string) (*sqlx.Stmt, error) {
	sum := blake3.Sum256([]byte(sqlText))
	key := hex.EncodeToString(sum[:])
	if st, ok := db.stmts.Get(key); ok {
		return st, nil
	}
	st, err := db.dbx.Preparex(sqlText)
	if err != nil {
		return nil, mapError("sqlite.Prepare", err)
	}
	db.stmts.Put(key, st)
	return st, nil
}

// ExecuteStatement runs DDL or DML and returns the affected row count.
// A nil transaction runs in autocommit mode.
func (db *DB) ExecuteStatement(txn engine.Transaction, sqlText string, binds []*value.Value) (int64, error) {
	args, err := flattenBinds(binds)
	if err != nil {
		return 0, err
	}
	var res sql.Result
	if txn == nil {
		if db.stmts == nil {
			res, err = db.dbx.Exec(sqlText, args...)
		} else {
			st, serr := db.stmt(sqlText)
			if serr != nil {
				return 0, serr
			}
			res, err = st.Exec(args...)
		}
	} else {
		// Inside a transaction everything runs on the transaction's own
		// connection; pool-level prepared statements would need a second
		// connection and deadlock a pinned in-memory database.
		tx, terr := db.sqliteTx(txn)
		if terr != nil {
			return 0, terr
		}
		res, err = tx.tx.Exec(sqlText, args...)
	}
	if err != nil {
		return 0, mapError("sqlite.ExecuteStatement", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, mapError("sqlite.ExecuteStatement", err)
	}
	return n, nil
}

// ExecuteQuery runs a query and returns its result set. Rows are read
// from the driver up front so the result set outlives the transaction;
// cells become Values lazily, one record at a time, as the cursor walks.
func (db *DB) ExecuteQuery(txn engine.Transaction, sqlText string, binds []*value.Value) (engine.DataSource, error) {
	args, err := flattenBinds(binds)
	if err != nil {
		return nil, err
	}
	var rows *sqlx.Rows
	if txn == nil {
		if db.stmts == nil {
			rows, err = db.dbx.Queryx(sqlText, args...)
		} else {
			st, serr := db.stmt(sqlText)
			if serr != nil {
				return nil, serr
			}
			rows, err = st.Queryx(args...)
		}
	} else {
		tx, terr := db.sqliteTx(txn)
		if terr != nil {
			return nil, terr
		}
		rows, err = tx.tx.Queryx(sqlText, args...)
	}
	if err != nil {
		return nil, mapError("sqlite.ExecuteQuery", err)
	}
	ds, err := newDataSource(rows)
	if err != nil {
		return nil, err
	}
	logging.Query(sqlText, len(binds), ds.NColumns())
	return ds, nil
}

// Close evicts every cached statement, reclaims the borrowed arena, and
// closes the underlying database.
func (db *DB) Close() error {
	if db.stmts != nil {
		db.stmts.Clear()
	}
	db.alloc.Reclaim()
	return mapError("sqlite.Close", db.dbx.Close())
}

func (db *DB) sqliteTx(txn engine.Transaction) (*Tx, error) {
	tx, ok := txn.(*Tx)
	if !ok {
		return nil, status.Opf(status.InvalidOperand, "sqlite", "foreign transaction %T", txn)
	}
	if tx.done {
		return nil, status.Opf(status.InvalidState, "sqlite", "transaction already finished")
	}
	return tx, nil
}

// Tx implements engine.Transaction over a SQLite transaction.
type Tx struct {
	tx       *sqlx.Tx
	alloc    *arena.Arena
	readOnly bool
	done     bool
}

var _ engine.Transaction = (*Tx)(nil)

// Allocator returns the transaction-scoped borrowed arena.
func (t *Tx) Allocator() *arena.Arena {
	return t.alloc
}

// Commit commits the transaction and reclaims its arena.
func (t *Tx) Commit() error {
	if t.done {
		return status.Opf(status.InvalidState, "sqlite.Commit", "transaction already finished")
	}
	t.done = true
	defer t.alloc.Reclaim()
	if t.readOnly {
		_, _ = t.tx.Exec("PRAGMA query_only = 0")
	}
	return mapError("sqlite.Commit", t.tx.Commit())
}

// Rollback rolls the transaction back and reclaims its arena.
func (t *Tx) Rollback() error {
	if t.done {
		return status.Opf(status.InvalidState, "sqlite.Rollback", "transaction already finished")
	}
	t.done = true
	defer t.alloc.Reclaim()
	if t.readOnly {
		_, _ = t.tx.Exec("PRAGMA query_only = 0")
	}
	return mapError("sqlite.Rollback", t.tx.Rollback())
}

// flattenBinds converts bound Values to driver natives. Containers and
// streams have no SQLite shape and fail with InvalidOperation through
// value.Native.
func flattenBinds(binds []*value.Value) ([]any, error) {
	args := make([]any, len(binds))
	for i, b := range binds {
		if b == nil {
			args[i] = nil
			continue
		}
		n, err := b.Native()
		if err != nil {
			return nil, err
		}
		args[i] = n
	}
	return args, nil
}
