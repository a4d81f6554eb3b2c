package database

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/centraunit/ambientdb/uow"
)

const (
	logMsgRollback      = "session rollback because of error"
	logMsgRollbackFail  = "session rollback failed"
	logMsgCommitFailed  = "session commit failed"
	logMsgBeginFailed   = "session begin failed"
	spanUnitOfWork      = "database.unit_of_work"
	attrSessionID       = "db.session_id"
	attrOutcome         = "db.outcome"
	outcomeCommitted    = "committed"
	outcomeRolledBack   = "rolled_back"
	outcomeCommitFailed = "commit_failed"
)

var errAbandoned = errors.New("unit of work abandoned by panic")

// Scoped runs fn inside a unit of work.
//
// If ctx already carries a session opened by this factory, fn runs on it directly: no
// transaction is begun, nothing is committed or rolled back, and the enclosing scope
// stays responsible for the outcome.
//
// Otherwise a transaction is begun and bound to the context handed to fn. When fn
// returns nil and ctx is still live the transaction commits; when fn returns an error,
// panics, or ctx is cancelled or timed out, it rolls back. Either way the session is
// closed and its connection returned to the pool before Scoped returns.
func (f *SessionFactory) Scoped(ctx context.Context, fn func(ctx context.Context, s *Session) error) error {
	if ambient, ok := SessionFor(ctx, f); ok {
		return fn(ctx, ambient)
	}

	ctx, span := f.tracer.Start(ctx, spanUnitOfWork)
	defer span.End()

	tx, err := f.driver.Begin(ctx)
	if err != nil {
		f.log.Error(logMsgBeginFailed, logAttrError, err.Error())
		span.SetStatus(codes.Error, err.Error())
		return &TransactionError{Op: OpBegin, Err: err}
	}

	session := newSession(f, tx)
	span.SetAttributes(attribute.String(attrSessionID, session.id))
	scopedCtx, token := uow.Enter(ctx, session)
	defer uow.Exit(token)

	completed := false
	defer func() {
		if completed {
			return
		}
		recovered := recover()
		session.close()
		_ = f.rollback(ctx, session, errAbandoned)
		span.SetStatus(codes.Error, errAbandoned.Error())
		if recovered != nil {
			panic(recovered)
		}
	}()

	fnErr := fn(scopedCtx, session)
	completed = true

	return f.finish(ctx, session, fnErr, span)
}

func (f *SessionFactory) finish(ctx context.Context, session *Session, fnErr error, span trace.Span) error {
	session.close()

	if fnErr == nil {
		fnErr = ctx.Err()
	}
	if fnErr != nil {
		span.SetAttributes(attribute.String(attrOutcome, outcomeRolledBack))
		span.SetStatus(codes.Error, fnErr.Error())
		if rbErr := f.rollback(ctx, session, fnErr); rbErr != nil {
			return errors.Join(fnErr, rbErr)
		}
		return fnErr
	}

	if err := session.tx.Commit(ctx); err != nil {
		f.log.Error(logMsgCommitFailed, logAttrSessionID, session.id, logAttrError, err.Error())
		span.SetAttributes(attribute.String(attrOutcome, outcomeCommitFailed))
		span.SetStatus(codes.Error, err.Error())
		return &TransactionError{Op: OpCommit, Err: err}
	}

	span.SetAttributes(attribute.String(attrOutcome, outcomeCommitted))
	return nil
}

// rollback runs even when ctx is already cancelled.
func (f *SessionFactory) rollback(ctx context.Context, session *Session, cause error) error {
	f.log.Warn(logMsgRollback, logAttrSessionID, session.id, logAttrError, cause.Error())

	if err := session.tx.Rollback(context.WithoutCancel(ctx)); err != nil {
		f.log.Error(logMsgRollbackFail, logAttrSessionID, session.id, logAttrError, err.Error())
		return &TransactionError{Op: OpRollback, Err: err}
	}
	return nil
}
