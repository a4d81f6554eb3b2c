// Package uow binds the active transactional session to the calling task.
//
// The task is identified by its context.Context: a session entered on a context is
// visible to everything that context is passed to and invisible to every context
// derived elsewhere, so two concurrent requests never observe each other's session.
package uow

import (
	"context"
	"sync/atomic"
)

// Session is the minimum a bound session has to expose.
type Session interface {
	ID() string
}

type bindingKey struct{}

// binding is one Enter call. It remembers the binding that was ambient before it,
// which Current falls back to once this one has been exited.
type binding struct {
	session Session
	prev    *binding
	open    atomic.Bool
}

// Token is returned by Enter and consumed by Exit.
type Token struct {
	b *binding
}

// Current returns the session bound to ctx, if any.
func Current(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return nil, false
	}
	b, _ := ctx.Value(bindingKey{}).(*binding)
	for b != nil && !b.open.Load() {
		b = b.prev
	}
	if b == nil {
		return nil, false
	}
	return b.session, true
}

// Find returns the innermost open session match accepts, looking past open
// bindings it rejects.
func Find(ctx context.Context, match func(Session) bool) (Session, bool) {
	if ctx == nil {
		return nil, false
	}
	b, _ := ctx.Value(bindingKey{}).(*binding)
	for ; b != nil; b = b.prev {
		if b.open.Load() && match(b.session) {
			return b.session, true
		}
	}
	return nil, false
}

// Enter binds session as ambient for the returned context.
func Enter(ctx context.Context, session Session) (context.Context, Token) {
	if ctx == nil {
		ctx = context.Background()
	}
	prev, _ := ctx.Value(bindingKey{}).(*binding)
	b := &binding{session: session, prev: prev}
	b.open.Store(true)
	return context.WithValue(ctx, bindingKey{}, b), Token{b: b}
}

// Exit unbinds the session entered with token.
// Contexts derived from the Enter result see the previously ambient session again.
// Exiting the same token twice is a no-op.
func Exit(token Token) {
	if token.b == nil {
		return
	}
	token.b.open.Store(false)
}

// Active reports whether the binding behind token is still open.
func (t Token) Active() bool {
	return t.b != nil && t.b.open.Load()
}
