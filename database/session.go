package database

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/centraunit/ambientdb/uow"
)

const (
	logMsgSQLExecuted     = "executed sql"
	logMsgCloseRowsFailed = "failed to close database rows"
	logAttrSessionID      = "session_id"
	logAttrQuery          = "query"
	logAttrDurationMS     = "duration_ms"
	logAttrError          = "error"
)

// Session is one open backend transaction owned by one unit of work.
// Statements on a session run one at a time, in the order they are issued.
type Session struct {
	id      string
	tx      Tx
	factory *SessionFactory
	log     Logger
	mu      sync.Mutex
	open    atomic.Bool
}

func newSession(factory *SessionFactory, tx Tx) *Session {
	s := &Session{
		id:      uuid.NewString(),
		tx:      tx,
		factory: factory,
		log:     factory.log,
	}
	s.open.Store(true)
	return s
}

// CurrentSession returns the session bound to ctx by an enclosing Scoped call.
func CurrentSession(ctx context.Context) (*Session, bool) {
	ambient, ok := uow.Current(ctx)
	if !ok {
		return nil, false
	}
	s, ok := ambient.(*Session)
	return s, ok
}

// SessionFor returns the innermost open session opened by db, even when a session of
// another database was entered after it.
func SessionFor(ctx context.Context, db Database) (*Session, bool) {
	found, ok := uow.Find(ctx, func(candidate uow.Session) bool {
		s, ok := candidate.(*Session)
		return ok && s.IsOpen() && Database(s.factory) == db
	})
	if !ok {
		return nil, false
	}
	return found.(*Session), true
}

// ID identifies the unit of work in logs and traces.
func (s *Session) ID() string {
	return s.id
}

// IsOpen reports whether the unit of work owning the session is still running.
func (s *Session) IsOpen() bool {
	return s.open.Load()
}

// Query runs a statement that returns rows and materializes them.
func (s *Session) Query(ctx context.Context, query string, args ...any) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mustBeOpen()

	start := time.Now()
	rows, err := s.tx.Query(ctx, query, args...)
	s.logQuery(query, start, err)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.log.Warn(logMsgCloseRowsFailed, logAttrSessionID, s.id, logAttrError, closeErr.Error())
		}
	}()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	result := &Result{Columns: columns}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	result.RowsAffected = int64(len(result.Rows))

	return result, nil
}

// Exec runs a statement that returns no rows.
func (s *Session) Exec(ctx context.Context, query string, args ...any) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mustBeOpen()

	start := time.Now()
	res, err := s.tx.Exec(ctx, query, args...)
	s.logQuery(query, start, err)
	if err != nil {
		return nil, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	return &Result{RowsAffected: affected}, nil
}

// close waits for the running statement and marks the session unusable.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open.Store(false)
}

func (s *Session) mustBeOpen() {
	if !s.open.Load() {
		panic(ErrSessionClosed)
	}
}

func (s *Session) logQuery(query string, start time.Time, err error) {
	if err != nil {
		s.log.Debug(logMsgSQLExecuted, logAttrSessionID, s.id, logAttrQuery, query, logAttrError, err.Error())
		return
	}
	s.log.Debug(logMsgSQLExecuted,
		logAttrSessionID, s.id,
		logAttrQuery, query,
		logAttrDurationMS, float64(time.Since(start).Microseconds())/1000.0)
}
