package query

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/mitchellh/mapstructure"

	"github.com/centraunit/ambientdb/database"
)

// First returns the first row keyed by column name, or nil when there is none.
func First(r *database.Result) (map[string]any, error) {
	row, _ := r.First()
	return row, nil
}

// All returns every row keyed by column name.
func All(r *database.Result) ([]map[string]any, error) {
	return r.Mappings(), nil
}

// Scalar returns the first column of the first row, or nil when there is none.
func Scalar(r *database.Result) (any, error) {
	v, _ := r.Scalar()
	return v, nil
}

// Discard ignores the result.
func Discard(*database.Result) (struct{}, error) {
	return struct{}{}, nil
}

// Affected returns the number of rows the statement touched.
func Affected(r *database.Result) (int64, error) {
	if r == nil {
		return 0, nil
	}
	return r.RowsAffected, nil
}

// NonEmpty reports whether the statement returned at least one row.
func NonEmpty(r *database.Result) (bool, error) {
	return r != nil && len(r.Rows) > 0, nil
}

// Int returns the first column of the first row as an int64; absent rows count as 0.
func Int(r *database.Result) (int64, error) {
	v, ok := r.Scalar()
	if !ok || v == nil {
		return 0, nil
	}
	return toInt64(v)
}

// Then applies mapTo to the output of shape.
func Then[T, R any](shape Shaper[T], mapTo func(T) (R, error)) Shaper[R] {
	return func(r *database.Result) (R, error) {
		v, err := shape(r)
		if err != nil {
			var zero R
			return zero, err
		}
		return mapTo(v)
	}
}

// ToModel decodes a row into M using the struct's db tags. A nil row yields nil.
func ToModel[M any](row map[string]any) (*M, error) {
	if row == nil {
		return nil, nil
	}
	model := new(M)
	if err := decode(row, model); err != nil {
		return nil, err
	}
	return model, nil
}

// ToModels decodes every row into M.
func ToModels[M any](rows []map[string]any) ([]M, error) {
	models := make([]M, 0, len(rows))
	for _, row := range rows {
		var model M
		if err := decode(row, &model); err != nil {
			return nil, err
		}
		models = append(models, model)
	}
	return models, nil
}

func decode(row map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       bytesToString,
		WeaklyTypedInput: true,
		TagName:          "db",
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(row); err != nil {
		return fmt.Errorf("decode row into %T: %w", out, err)
	}
	return nil
}

// bytesToString lets text columns drivers return as []byte land in string fields.
func bytesToString(_ reflect.Type, to reflect.Type, data any) (any, error) {
	b, ok := data.([]byte)
	if !ok || to.Kind() == reflect.Slice {
		return data, nil
	}
	return string(b), nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case []byte:
		return strconv.ParseInt(string(n), 10, 64)
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to int64", v)
	}
}
