package query

import (
	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
)

// Filter is a conjunction of conditions. An empty filter matches every row.
type Filter []exp.Expression

// Where builds a filter.
func Where(conditions ...exp.Expression) Filter {
	return conditions
}

// Change is an update: the columns to set and the rows to set them on.
type Change struct {
	Set   goqu.Record
	Where Filter
}

// Table holds the standard operations over one table whose rows decode into M.
type Table[M any] struct {
	Name string

	// Create inserts one row and returns it as stored.
	Create *Operation[goqu.Record, *M]
	// SelectAll returns the matching rows ordered by primary key.
	SelectAll *Operation[Filter, []M]
	// SelectOne returns the first matching row, or nil.
	SelectOne *Operation[Filter, *M]
	// Update returns the number of rows changed.
	Update *Operation[Change, int64]
	// Exists reports whether any row matches.
	Exists *Operation[Filter, bool]
	// Delete removes the matching rows and returns them.
	Delete *Operation[Filter, []M]
	// Count returns the number of matching rows.
	Count *Operation[Filter, int64]
}

// NewTable builds the operations for table name.
func NewTable[M any](name string, options ...Option) *Table[M] {
	key := newConfig(options).key
	table := goqu.T(name)

	return &Table[M]{
		Name: name,

		Create: New(name+".create",
			func(d goqu.DialectWrapper, record goqu.Record) (Statement, error) {
				return d.Insert(table).Rows(record).Returning(goqu.Star()).Prepared(true), nil
			},
			Then(First, ToModel[M]),
			options...),

		SelectAll: New(name+".select_all",
			func(d goqu.DialectWrapper, f Filter) (Statement, error) {
				return d.From(table).Where(f...).Order(goqu.C(key).Asc()).Prepared(true), nil
			},
			Then(All, ToModels[M]),
			options...),

		SelectOne: New(name+".select_one",
			func(d goqu.DialectWrapper, f Filter) (Statement, error) {
				return d.From(table).Where(f...).Order(goqu.C(key).Asc()).Limit(1).Prepared(true), nil
			},
			Then(First, ToModel[M]),
			options...),

		Update: NewExec(name+".update",
			func(d goqu.DialectWrapper, c Change) (Statement, error) {
				if len(c.Set) == 0 {
					return nil, errEmptyChange
				}
				return d.Update(table).Set(c.Set).Where(c.Where...).Prepared(true), nil
			},
			Affected,
			options...),

		Exists: New(name+".exists",
			func(d goqu.DialectWrapper, f Filter) (Statement, error) {
				return d.From(table).Select(goqu.L("1")).Where(f...).Limit(1).Prepared(true), nil
			},
			NonEmpty,
			options...),

		Delete: New(name+".delete",
			func(d goqu.DialectWrapper, f Filter) (Statement, error) {
				return d.Delete(table).Where(f...).Returning(goqu.Star()).Prepared(true), nil
			},
			Then(All, ToModels[M]),
			options...),

		Count: New(name+".count",
			func(d goqu.DialectWrapper, f Filter) (Statement, error) {
				return d.From(table).Select(goqu.COUNT(goqu.Star())).Where(f...).Prepared(true), nil
			},
			Int,
			options...),
	}
}
