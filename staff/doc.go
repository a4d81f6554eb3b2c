// Package staff manages user accounts.
//
// Every function resolves its collaborators (the database and the password hasher)
// from the default registry and runs in the unit of work carried by ctx, or in a
// unit of work of its own when ctx carries none.
package staff
