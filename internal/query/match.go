package query

import (
	"cmp"
	"encoding"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Match evaluates a filter tree against one decoded row. It mirrors CompileSQL
// for backends that keep rows in memory.
func Match(e *Entity, x Expr, row map[string]any) (bool, error) {
	switch n := x.(type) {
	case nil:
		return true, nil
	case Cond:
		return matchCond(e, n, row)
	case And:
		for _, c := range n {
			ok, err := Match(e, c, row)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case Or:
		for _, c := range n {
			ok, err := Match(e, c, row)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
	return false, fmt.Errorf("unknown expression %T", x)
}

func matchCond(e *Entity, c Cond, row map[string]any) (bool, error) {
	typ, ok := e.Columns[c.Field]
	if !ok {
		return false, malformed("unknown field %q", c.Field)
	}
	got := row[c.Field]

	if c.Value == nil {
		switch c.Op {
		case OpEq:
			return got == nil, nil
		case OpNe:
			return got != nil, nil
		}
		return false, malformed("operator %s needs a value for %q", c.Op, c.Field)
	}
	if got == nil {
		return c.Op == OpNe || c.Op == OpNin, nil
	}

	switch c.Op {
	case OpContains:
		term, ok := c.Value.(string)
		if !ok {
			return false, malformed("search on %q needs text", c.Field)
		}
		s, _ := got.(string)
		return strings.Contains(strings.ToLower(s), strings.ToLower(term)), nil
	case OpIn, OpNin:
		vals, ok := c.Value.([]any)
		if !ok {
			return false, malformed("operator %s on %q needs a list", c.Op, c.Field)
		}
		hit := false
		for _, v := range vals {
			eq, err := equal(typ, got, v)
			if err != nil {
				return false, err
			}
			if eq {
				hit = true
				break
			}
		}
		return hit == (c.Op == OpIn), nil
	}

	if typ == TypeTextArray {
		eq, err := equal(typ, got, c.Value)
		if err != nil {
			return false, err
		}
		switch c.Op {
		case OpEq:
			return eq, nil
		case OpNe:
			return !eq, nil
		}
		return false, malformed("operator %s not supported on %q", c.Op, c.Field)
	}

	d, err := Compare(typ, got, c.Value)
	if err != nil {
		return false, err
	}
	switch c.Op {
	case OpEq:
		return d == 0, nil
	case OpNe:
		return d != 0, nil
	case OpGt:
		return d > 0, nil
	case OpGte:
		return d >= 0, nil
	case OpLt:
		return d < 0, nil
	case OpLte:
		return d <= 0, nil
	}
	return false, malformed("unknown operator %d", int(c.Op))
}

// equal treats an array column as matching when it contains want.
func equal(typ ColumnType, got, want any) (bool, error) {
	if typ == TypeTextArray {
		w := fmt.Sprint(want)
		switch arr := got.(type) {
		case []string:
			return slices.Contains(arr, w), nil
		case []any:
			for _, v := range arr {
				if fmt.Sprint(v) == w {
					return true, nil
				}
			}
			return false, nil
		}
		return false, nil
	}
	d, err := Compare(typ, got, want)
	return d == 0, err
}

// Compare orders two values of a column. nil sorts after everything, as
// Postgres does for ascending order.
func Compare(typ ColumnType, a, b any) (int, error) {
	switch {
	case a == nil && b == nil:
		return 0, nil
	case a == nil:
		return 1, nil
	case b == nil:
		return -1, nil
	}
	na, err := normalize(typ, a)
	if err != nil {
		return 0, err
	}
	nb, err := normalize(typ, b)
	if err != nil {
		return 0, err
	}
	switch x := na.(type) {
	case string:
		return strings.Compare(x, nb.(string)), nil
	case float64:
		return cmp.Compare(x, nb.(float64)), nil
	case bool:
		y := nb.(bool)
		switch {
		case x == y:
			return 0, nil
		case !x:
			return -1, nil
		}
		return 1, nil
	case time.Time:
		return x.Compare(nb.(time.Time)), nil
	}
	return 0, malformed("cannot compare %T", na)
}

func normalize(typ ColumnType, v any) (any, error) {
	switch typ {
	case TypeUUID:
		switch x := v.(type) {
		case uuid.UUID:
			return x.String(), nil
		case string:
			return strings.ToLower(x), nil
		}
	case TypeText:
		switch x := v.(type) {
		case string:
			return x, nil
		case encoding.TextMarshaler:
			b, err := x.MarshalText()
			return string(b), err
		case fmt.Stringer:
			return x.String(), nil
		}
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.String {
			return rv.String(), nil
		}
	case TypeInt, TypeFloat:
		switch x := v.(type) {
		case float64:
			return x, nil
		case float32:
			return float64(x), nil
		case int:
			return float64(x), nil
		case int32:
			return float64(x), nil
		case int64:
			return float64(x), nil
		}
	case TypeBool:
		if x, ok := v.(bool); ok {
			return x, nil
		}
	case TypeTime:
		switch x := v.(type) {
		case time.Time:
			return x, nil
		case string:
			t, err := time.Parse(time.RFC3339Nano, x)
			if err != nil {
				return nil, malformed("bad time %q", x)
			}
			return t, nil
		}
	}
	return nil, malformed("value %v (%T) does not fit column type %d", v, v, typ)
}

// SortRows orders rows in place by keys.
func SortRows(e *Entity, rows []map[string]any, keys []SortKey) error {
	var firstErr error
	slices.SortStableFunc(rows, func(a, b map[string]any) int {
		for _, k := range keys {
			d, err := Compare(e.Columns[k.Field], a[k.Field], b[k.Field])
			if err != nil && firstErr == nil {
				firstErr = err
			}
			if d == 0 {
				continue
			}
			if k.Desc {
				return -d
			}
			return d
		}
		return 0
	})
	return firstErr
}

// Project keeps only fields of row.
func Project(row map[string]any, fields []string) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		out[f] = row[f]
	}
	return out
}
