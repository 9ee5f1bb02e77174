// Package engine defines the collaborator interfaces of the BriarSQL
// boundary and the statement/query executor built on them.
//
// The underlying query engine is reached only through the Database and
// Transaction interfaces; this layer never inspects their internals. A
// Database lends out its allocator, begins transactions, and executes SQL
// with positionally bound values. Query results come back as a DataSource
// walked through a Cursor into Records.
//
// Engine is the caller-facing contract shared by the local autocommit
// engine and the remote client: execute a statement for an affected-row
// count, or execute a query for a streaming result set.
package engine

import (
	"github.com/FocuswithJustin/BriarSQL/core/arena"
	"github.com/FocuswithJustin/BriarSQL/core/value"
)

// TransactionMode selects the access mode of a transaction. The numeric
// values are part of the wire contract.
type TransactionMode int

const (
	// ReadOnly transactions may not modify data.
	ReadOnly TransactionMode = 0
	// Update transactions start read-only and may be upgraded.
	Update TransactionMode = 1
	// ReadWrite transactions take write intent immediately.
	ReadWrite TransactionMode = 2
	// Exclusive transactions lock out all concurrent access.
	Exclusive TransactionMode = 3
)

func (m TransactionMode) String() string {
	switch m {
	case ReadOnly:
		return "read-only"
	case Update:
		return "update"
	case ReadWrite:
		return "read-write"
	case Exclusive:
		return "exclusive"
	default:
		return "mode(?)"
	}
}

// IsolationLevel selects the isolation of a transaction. Default defers to
// the collaborator's own default.
type IsolationLevel int

const (
	Default        IsolationLevel = 0
	ReadCommitted  IsolationLevel = 1
	RepeatableRead IsolationLevel = 2
	Serializable   IsolationLevel = 3
)

// ColumnInfo describes one column of a result set.
type ColumnInfo struct {
	Name string
	Type value.Type
}

// Database is the opaque engine handle supplied by the embedding
// collaborator. Statement and query execution accept an optional
// transaction; a nil transaction means autocommit at the collaborator's
// discretion.
type Database interface {
	// Allocator returns the database-scoped borrowed arena.
	Allocator() *arena.Arena

	// Begin opens a transaction in the given mode and isolation level.
	Begin(mode TransactionMode, level IsolationLevel) (Transaction, error)

	// ExecuteStatement runs DDL or DML and returns the affected row count.
	ExecuteStatement(txn Transaction, sql string, binds []*value.Value) (int64, error)

	// ExecuteQuery runs a query and returns its result set. The caller
	// must Release the result set when done.
	ExecuteQuery(txn Transaction, sql string, binds []*value.Value) (DataSource, error)

	// Close releases the database handle and its borrowed arena.
	Close() error
}

// Transaction is an open transaction on a Database.
type Transaction interface {
	// Allocator returns the transaction-scoped borrowed arena.
	Allocator() *arena.Arena

	Commit() error
	Rollback() error
}

// DataSource is a streaming result set produced by a query.
type DataSource interface {
	// NColumns returns the number of columns in each record.
	NColumns() int

	// Columns describes the result columns in ordinal order.
	Columns() []ColumnInfo

	// Cursor returns the cursor for walking the rows. The usual contract
	// is one cursor per result set.
	Cursor() (Cursor, error)

	// Allocator returns the result-set-scoped borrowed arena that owns
	// the records the cursor produces.
	Allocator() *arena.Arena

	// Release frees the result set and every record it produced.
	Release() error
}

// Cursor walks the rows of a DataSource. Advance moves to the next row and
// reports false at the end; Record returns the current row. Record before
// the first Advance, or after Advance reported false, is a caller error
// and fails with a status.
type Cursor interface {
	Advance() (bool, error)
	Record() (*value.Record, error)
}

// Engine is the caller-facing execution contract, implemented by the
// local autocommit engine and the remote client alike.
type Engine interface {
	ExecuteStatement(sql string, binds []*value.Value) (int64, error)
	ExecuteQuery(sql string, binds []*value.Value) (DataSource, error)
	Close() error
}
