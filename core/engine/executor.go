package engine

import (
	"github.com/FocuswithJustin/BriarSQL/core/status"
	"github.com/FocuswithJustin/BriarSQL/core/value"
	"github.com/FocuswithJustin/BriarSQL/internal/logging"
)

// ExecuteStatement runs DDL or DML against the database inside txn and
// returns the affected row count. Bound values are positional; name
// binding is not supported at this layer. A nil database fails with
// NullReference; any collaborator failure comes back as a status.
func ExecuteStatement(db Database, txn Transaction, sql string, binds ...*value.Value) (n int64, err error) {
	defer status.Guard("engine.ExecuteStatement", &err)
	if db == nil {
		return 0, status.Opf(status.NullReference, "engine.ExecuteStatement", "nil database")
	}
	n, err = db.ExecuteStatement(txn, sql, binds)
	if err != nil {
		return 0, status.Normalize("engine.ExecuteStatement", err)
	}
	logging.Statement(sql, len(binds), n)
	return n, nil
}

// ExecuteQuery runs a query against the database inside txn and returns
// its result set. The caller must Release the result set; callers that do
// not want it should use DiscardQuery instead so it is never left open.
func ExecuteQuery(db Database, txn Transaction, sql string, binds ...*value.Value) (ds DataSource, err error) {
	defer status.Guard("engine.ExecuteQuery", &err)
	if db == nil {
		return nil, status.Opf(status.NullReference, "engine.ExecuteQuery", "nil database")
	}
	ds, err = db.ExecuteQuery(txn, sql, binds)
	if err != nil {
		return nil, status.Normalize("engine.ExecuteQuery", err)
	}
	return ds, nil
}

// DiscardQuery runs a query and releases the result set immediately. This
// is the path for a caller that declines the result: the query still
// executes, but no result set handle crosses the boundary and nothing is
// leaked.
func DiscardQuery(db Database, txn Transaction, sql string, binds ...*value.Value) (err error) {
	defer status.Guard("engine.DiscardQuery", &err)
	ds, err := ExecuteQuery(db, txn, sql, binds...)
	if err != nil {
		return err
	}
	return status.Normalize("engine.DiscardQuery", ds.Release())
}
