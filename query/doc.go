// Package query turns statement builders into executable operations.
//
// An Operation pairs a builder, which maps arguments to a goqu statement, with a
// shaper, which maps the materialized result to the caller's type. Execute joins the
// unit of work carried by the context when there is one and opens a short-lived one
// otherwise; the shaper runs the same way on both paths.
//
//	users := query.NewTable[User]("users")
//	u, err := users.Create.Execute(ctx, goqu.Record{"username": "ada"})
package query
