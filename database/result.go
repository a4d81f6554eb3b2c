package database

// Result is a fully materialized statement result.
type Result struct {
	Columns      []string
	Rows         [][]any
	RowsAffected int64
}

// Mappings returns every row keyed by column name.
func (r *Result) Mappings() []map[string]any {
	if r == nil {
		return nil
	}
	mappings := make([]map[string]any, 0, len(r.Rows))
	for _, row := range r.Rows {
		mappings = append(mappings, r.mapping(row))
	}
	return mappings
}

// First returns the first row keyed by column name.
func (r *Result) First() (map[string]any, bool) {
	if r == nil || len(r.Rows) == 0 {
		return nil, false
	}
	return r.mapping(r.Rows[0]), true
}

// Scalar returns the first column of the first row.
func (r *Result) Scalar() (any, bool) {
	if r == nil || len(r.Rows) == 0 || len(r.Rows[0]) == 0 {
		return nil, false
	}
	return r.Rows[0][0], true
}

func (r *Result) mapping(row []any) map[string]any {
	m := make(map[string]any, len(r.Columns))
	for i, column := range r.Columns {
		if i < len(row) {
			m[column] = row[i]
		}
	}
	return m
}
