package query

import (
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/qh20812/Edu-Core-Server/internal/apperr"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100

	listSeparator = ","
)

// reserved parameters never become filters.
var reserved = map[string]bool{
	"page":         true,
	"sort":         true,
	"limit":        true,
	"fields":       true,
	"search":       true,
	"searchFields": true,
}

type SortKey struct {
	Field string
	Desc  bool
}

// Request is a parsed list request.
type Request struct {
	Filter Expr
	Sort   []SortKey
	Fields []string
	Page   int
	Limit  int
}

func (r Request) Offset() int {
	return (r.Page - 1) * r.Limit
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", apperr.ErrMalformedQuery, fmt.Sprintf(format, args...))
}

// Parse builds a Request for entity e from a raw parameter bag. defaultSort
// overrides the entity default when non-empty.
func Parse(e *Entity, params url.Values, defaultSort ...SortKey) (Request, error) {
	req := Request{
		Page:  intParam(params.Get("page"), DefaultPage),
		Limit: intParam(params.Get("limit"), DefaultLimit),
	}
	if req.Limit > MaxLimit {
		req.Limit = MaxLimit
	}
	// keeps (Page-1)*Limit inside int
	if maxPage := math.MaxInt / req.Limit; req.Page > maxPage {
		req.Page = maxPage
	}

	filter, err := parseFilters(e, params)
	if err != nil {
		return Request{}, err
	}
	search, err := parseSearch(e, params.Get("search"), params.Get("searchFields"))
	if err != nil {
		return Request{}, err
	}
	req.Filter = AllOf(filter, search)

	if len(defaultSort) == 0 {
		defaultSort = e.DefaultSort
	}
	if req.Sort, err = parseSort(e, params.Get("sort"), defaultSort); err != nil {
		return Request{}, err
	}
	if req.Fields, err = parseFields(e, params.Get("fields")); err != nil {
		return Request{}, err
	}
	return req, nil
}

func intParam(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}

// parseFilters handles "field=value", "field=a,b" and "field[op]=value".
func parseFilters(e *Entity, params url.Values) (Expr, error) {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var conds []Expr
	for _, key := range keys {
		if reserved[key] {
			continue
		}
		field, op, err := splitKey(key)
		if err != nil {
			return nil, err
		}
		typ := e.Columns[field]
		if !e.Exposed(field) {
			return nil, malformed("unknown filter field %q", field)
		}
		if typ == TypeJSON {
			return nil, malformed("field %q is not filterable", field)
		}
		for _, raw := range params[key] {
			c, err := buildCond(field, typ, op, raw)
			if err != nil {
				return nil, err
			}
			conds = append(conds, c)
		}
	}
	return AllOf(conds...), nil
}

func splitKey(key string) (string, Op, error) {
	open := strings.IndexByte(key, '[')
	if open < 0 {
		return key, OpEq, nil
	}
	if !strings.HasSuffix(key, "]") || open == 0 {
		return "", 0, malformed("bad filter key %q", key)
	}
	op, ok := opNames[key[open+1:len(key)-1]]
	if !ok {
		return "", 0, malformed("unknown operator in %q", key)
	}
	return key[:open], op, nil
}

func buildCond(field string, typ ColumnType, op Op, raw string) (Cond, error) {
	if op == OpEq && strings.Contains(raw, listSeparator) {
		op = OpIn
	}
	if op == OpIn || op == OpNin {
		parts := strings.Split(raw, listSeparator)
		vals := make([]any, 0, len(parts))
		for _, p := range parts {
			v, err := coerce(field, typ, strings.TrimSpace(p))
			if err != nil {
				return Cond{}, err
			}
			vals = append(vals, v)
		}
		return Cond{Field: field, Op: op, Value: vals}, nil
	}
	v, err := coerce(field, typ, raw)
	if err != nil {
		return Cond{}, err
	}
	return Cond{Field: field, Op: op, Value: v}, nil
}

func coerce(field string, typ ColumnType, raw string) (any, error) {
	var (
		v   any
		err error
	)
	switch typ {
	case TypeText, TypeTextArray:
		v = raw
	case TypeUUID:
		v, err = uuid.Parse(raw)
	case TypeInt:
		v, err = strconv.ParseInt(raw, 10, 64)
	case TypeFloat:
		v, err = strconv.ParseFloat(raw, 64)
	case TypeBool:
		v, err = strconv.ParseBool(raw)
	case TypeTime:
		v, err = parseTime(raw)
	default:
		err = fmt.Errorf("unsupported column type")
	}
	if err != nil {
		return nil, malformed("value %q for %q: %v", raw, field, err)
	}
	return v, nil
}

func parseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, raw)
}

func parseSearch(e *Entity, term, fields string) (Expr, error) {
	if term == "" {
		return nil, nil
	}
	targets := e.DefaultSearch
	if fields != "" {
		targets = strings.Split(fields, listSeparator)
	}
	if len(targets) == 0 {
		// nothing to search in, so nothing matches
		return In("id"), nil
	}
	var or []Expr
	for _, f := range targets {
		f = strings.TrimSpace(f)
		if !e.Exposed(f) || e.Columns[f] != TypeText {
			return nil, malformed("field %q is not searchable", f)
		}
		or = append(or, Cond{Field: f, Op: OpContains, Value: term})
	}
	return AnyOf(or...), nil
}

func parseSort(e *Entity, raw string, def []SortKey) ([]SortKey, error) {
	var keys []SortKey
	if raw == "" {
		keys = append(keys, def...)
	} else {
		for _, part := range strings.Split(raw, listSeparator) {
			part = strings.TrimSpace(part)
			k := SortKey{Field: strings.TrimPrefix(part, "-"), Desc: strings.HasPrefix(part, "-")}
			if t := e.Columns[k.Field]; !e.Exposed(k.Field) || t == TypeJSON || t == TypeTextArray {
				return nil, malformed("cannot sort by %q", k.Field)
			}
			keys = append(keys, k)
		}
	}
	// id tiebreak keeps pages disjoint when sort values repeat
	for _, k := range keys {
		if k.Field == "id" {
			return keys, nil
		}
	}
	if e.Has("id") {
		keys = append(keys, SortKey{Field: "id"})
	}
	return keys, nil
}

func parseFields(e *Entity, raw string) ([]string, error) {
	if raw == "" {
		return e.Visible(), nil
	}
	out := []string{"id"}
	for _, f := range strings.Split(raw, listSeparator) {
		f = strings.TrimSpace(f)
		if f == "id" || f == "" {
			continue
		}
		if !e.Exposed(f) {
			return nil, malformed("unknown field %q", f)
		}
		out = append(out, f)
	}
	return out, nil
}
