package engine

import (
	"github.com/FocuswithJustin/BriarSQL/core/arena"
	"github.com/FocuswithJustin/BriarSQL/core/status"
	"github.com/FocuswithJustin/BriarSQL/core/value"
)

// Session pairs an Engine with one caller-owned scratch arena for bind
// values. The expected pattern is one session per worker: sessions are
// not safe for concurrent use, matching the arena discipline.
type Session struct {
	eng     Engine
	scratch *arena.Arena
	ownEng  bool
}

// NewSession creates a session over the engine. The session owns its
// scratch arena; the engine stays owned by the caller.
func NewSession(eng Engine) (*Session, error) {
	if eng == nil {
		return nil, status.Opf(status.NullReference, "engine.NewSession", "nil engine")
	}
	return &Session{eng: eng, scratch: arena.New()}, nil
}

// NewOwningSession creates a session that also closes the engine on Close.
func NewOwningSession(eng Engine) (*Session, error) {
	s, err := NewSession(eng)
	if err != nil {
		return nil, err
	}
	s.ownEng = true
	return s, nil
}

// Arena returns the session's scratch arena for constructing bind values.
func (s *Session) Arena() *arena.Arena {
	return s.scratch
}

// Engine returns the wrapped engine.
func (s *Session) Engine() Engine {
	return s.eng
}

// Exec constructs bind values from Go natives in the scratch arena and
// executes the statement.
func (s *Session) Exec(sql string, args ...any) (int64, error) {
	binds, err := s.bind(args)
	if err != nil {
		return 0, err
	}
	return s.eng.ExecuteStatement(sql, binds)
}

// Query constructs bind values from Go natives in the scratch arena and
// executes the query.
func (s *Session) Query(sql string, args ...any) (DataSource, error) {
	binds, err := s.bind(args)
	if err != nil {
		return nil, err
	}
	return s.eng.ExecuteQuery(sql, binds)
}

func (s *Session) bind(args []any) ([]*value.Value, error) {
	if err := s.scratch.Err(); err != nil {
		return nil, err
	}
	binds := make([]*value.Value, len(args))
	for i, arg := range args {
		v, err := value.Of(s.scratch, arg)
		if err != nil {
			return nil, err
		}
		binds[i] = v
	}
	return binds, nil
}

// Close destroys the scratch arena and, for an owning session, closes the
// engine too.
func (s *Session) Close() error {
	err := s.scratch.Destroy()
	if s.ownEng {
		if cerr := s.eng.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
