// Package ambientdb provides a capability registry (service locator) whose
// providers are either memoized singletons or per-call factories.
//
// A capability is any Go type, usually an interface. Providers are registered at
// startup and resolved anywhere afterwards:
//
//	ambientdb.Register[database.Database](func() (database.Database, error) {
//		return database.Open(ctx, cfg.Database)
//	})
//	db, err := ambientdb.Resolve[database.Database]()
//
// Boot constructs every singleton eagerly and freezes the registry; Shutdown closes
// the singletons that hold resources.
package ambientdb
