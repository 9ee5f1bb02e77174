package engine

import (
	"github.com/FocuswithJustin/BriarSQL/core/status"
	"github.com/FocuswithJustin/BriarSQL/core/value"
)

// Local adapts a Database to the Engine contract with per-call
// autocommit: each statement runs in its own read-write transaction and
// each query in its own read-only one, committed on success and rolled
// back on failure. Callers that need multi-statement transactions use the
// Database interface directly.
type Local struct {
	db Database
}

// NewLocal creates a local engine over the database.
func NewLocal(db Database) (*Local, error) {
	if db == nil {
		return nil, status.Opf(status.NullReference, "engine.NewLocal", "nil database")
	}
	return &Local{db: db}, nil
}

// Database returns the underlying database handle for direct
// transactional use.
func (l *Local) Database() Database {
	return l.db
}

// ExecuteStatement runs the statement in a fresh read-write transaction.
func (l *Local) ExecuteStatement(sql string, binds []*value.Value) (int64, error) {
	txn, err := l.db.Begin(ReadWrite, Default)
	if err != nil {
		return 0, status.Normalize("engine.Local.ExecuteStatement", err)
	}
	n, err := ExecuteStatement(l.db, txn, sql, binds...)
	if err != nil {
		_ = txn.Rollback()
		return 0, err
	}
	if err := txn.Commit(); err != nil {
		return 0, status.Normalize("engine.Local.ExecuteStatement", err)
	}
	return n, nil
}

// ExecuteQuery runs the query in a fresh read-only transaction. The
// transaction commits before the result set is returned; the result set
// stays valid until released because its records are materialized into
// its own arena.
func (l *Local) ExecuteQuery(sql string, binds []*value.Value) (DataSource, error) {
	txn, err := l.db.Begin(ReadOnly, Default)
	if err != nil {
		return nil, status.Normalize("engine.Local.ExecuteQuery", err)
	}
	ds, err := ExecuteQuery(l.db, txn, sql, binds...)
	if err != nil {
		_ = txn.Rollback()
		return nil, err
	}
	if err := txn.Commit(); err != nil {
		_ = ds.Release()
		return nil, status.Normalize("engine.Local.ExecuteQuery", err)
	}
	return ds, nil
}

// Close closes the underlying database.
func (l *Local) Close() error {
	return status.Normalize("engine.Local.Close", l.db.Close())
}
