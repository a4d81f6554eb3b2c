// Package database manages request-scoped transactional sessions.
//
// A SessionFactory opens one backend transaction per unit of work and binds it to the
// caller's context. Nested Scoped calls on a context that already carries a session
// reuse it: only the outermost scope commits or rolls back, so composed operations
// never commit partially.
//
//	err := db.Scoped(ctx, func(ctx context.Context, s *database.Session) error {
//		// every operation given ctx joins this transaction
//		return nil
//	})
package database
