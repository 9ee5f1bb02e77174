package sqlite

import (
	"strings"

	"github.com/FocuswithJustin/BriarSQL/core/status"
)

// mapError translates a SQLite driver error into a status error. The two
// drivers wrap different error types around the same engine messages, so
// classification works on the message text the way the SQLite result-code
// strings define it. Anything unrecognized collapses to RuntimeError.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return status.Wrap(classify(err), op, err)
}

func classify(err error) status.Code {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "syntax error"),
		strings.Contains(msg, "incomplete input"),
		strings.Contains(msg, "no such table"),
		strings.Contains(msg, "no such column"),
		strings.Contains(msg, "no such function"),
		strings.Contains(msg, "wrong number of arguments"):
		return status.CompileError
	case strings.Contains(msg, "unique constraint"),
		strings.Contains(msg, "primary key constraint"):
		return status.NotUnique
	case strings.Contains(msg, "not null constraint"):
		return status.NullValue
	case strings.Contains(msg, "datatype mismatch"):
		return status.InvalidTypeCast
	case strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "database table is locked"),
		strings.Contains(msg, "busy"):
		return status.Conflict
	case strings.Contains(msg, "readonly database"),
		strings.Contains(msg, "query_only"),
		strings.Contains(msg, "read-only"):
		return status.InvalidOperation
	case strings.Contains(msg, "out of memory"):
		return status.NotEnoughMemory
	case strings.Contains(msg, "disk i/o error"),
		strings.Contains(msg, "unable to open database"):
		return status.SystemError
	default:
		return status.RuntimeError
	}
}
