package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Populate expands a reference column into an object holding Fields of the
// referenced row. The id is always included.
type Populate struct {
	Field  string
	Entity *Entity
	Fields []string
}

// Find is a fully resolved read against one entity.
type Find struct {
	Entity   *Entity
	Where    Expr
	Sort     []SortKey
	Fields   []string
	Offset   int
	Limit    int
	Populate []Populate
}

const alias = "t"

type sqlBuilder struct {
	e    *Entity
	args []any
}

func (b *sqlBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

func ident(table, col string) string {
	return pgx.Identifier{table, col}.Sanitize()
}

// CompileSQL renders a filter tree as a WHERE fragment over alias "t".
// Field names are checked against the entity; values are always bound.
func CompileSQL(e *Entity, x Expr) (string, []any, error) {
	b := &sqlBuilder{e: e}
	where, err := b.expr(x)
	if err != nil {
		return "", nil, err
	}
	return where, b.args, nil
}

func (b *sqlBuilder) expr(x Expr) (string, error) {
	switch n := x.(type) {
	case nil:
		return "TRUE", nil
	case Cond:
		return b.cond(n)
	case And:
		return b.join(n, " AND ", "TRUE")
	case Or:
		return b.join(n, " OR ", "FALSE")
	}
	return "", fmt.Errorf("unknown expression %T", x)
}

func (b *sqlBuilder) join(xs []Expr, sep, empty string) (string, error) {
	if len(xs) == 0 {
		return empty, nil
	}
	parts := make([]string, 0, len(xs))
	for _, x := range xs {
		s, err := b.expr(x)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

func (b *sqlBuilder) cond(c Cond) (string, error) {
	typ, ok := b.e.Columns[c.Field]
	if !ok {
		return "", malformed("unknown field %q", c.Field)
	}
	col := ident(alias, c.Field)

	if c.Value == nil {
		switch c.Op {
		case OpEq:
			return col + " IS NULL", nil
		case OpNe:
			return col + " IS NOT NULL", nil
		}
		return "", malformed("operator %s needs a value for %q", c.Op, c.Field)
	}

	switch c.Op {
	case OpIn, OpNin:
		vals, ok := c.Value.([]any)
		if !ok {
			return "", malformed("operator %s on %q needs a list", c.Op, c.Field)
		}
		return b.set(col, typ, c.Op == OpNin, vals), nil
	case OpContains:
		s, ok := c.Value.(string)
		if !ok {
			return "", malformed("search on %q needs text", c.Field)
		}
		return col + " ILIKE " + b.arg("%"+escapeLike(s)+"%"), nil
	}

	if typ == TypeTextArray {
		switch c.Op {
		case OpEq:
			return b.arg(c.Value) + " = ANY(" + col + ")", nil
		case OpNe:
			return "NOT (" + b.arg(c.Value) + " = ANY(" + col + "))", nil
		}
		return "", malformed("operator %s not supported on %q", c.Op, c.Field)
	}

	sym := map[Op]string{OpEq: "=", OpNe: "<>", OpGt: ">", OpGte: ">=", OpLt: "<", OpLte: "<="}[c.Op]
	if sym == "" {
		return "", malformed("unknown operator %d", int(c.Op))
	}
	if c.Op == OpNe {
		// NULL <> x is unknown; "not equal" includes missing values
		return "(" + col + " IS NULL OR " + col + " <> " + b.arg(c.Value) + ")", nil
	}
	return col + " " + sym + " " + b.arg(c.Value), nil
}

func (b *sqlBuilder) set(col string, typ ColumnType, negate bool, vals []any) string {
	if len(vals) == 0 {
		if negate {
			return "TRUE"
		}
		return "FALSE"
	}
	ph := make([]string, len(vals))
	for i, v := range vals {
		ph[i] = b.arg(v)
	}
	var s string
	if typ == TypeTextArray {
		s = col + " && ARRAY[" + strings.Join(ph, ", ") + "]::text[]"
	} else {
		s = col + " IN (" + strings.Join(ph, ", ") + ")"
	}
	if negate {
		return "NOT (" + s + ")"
	}
	return s
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// SelectSQL renders the page query for f.
func SelectSQL(f Find) (string, []any, error) {
	b := &sqlBuilder{e: f.Entity}
	where, err := b.expr(f.Where)
	if err != nil {
		return "", nil, err
	}

	populated := make(map[string]Populate, len(f.Populate))
	for _, p := range f.Populate {
		populated[p.Field] = p
	}

	cols := make([]string, 0, len(f.Fields))
	for _, name := range f.Fields {
		typ, ok := f.Entity.Columns[name]
		if !ok {
			return "", nil, malformed("unknown field %q", name)
		}
		if p, ok := populated[name]; ok {
			sub, err := populateSQL(p)
			if err != nil {
				return "", nil, err
			}
			cols = append(cols, sub)
			continue
		}
		col := ident(alias, name)
		if typ == TypeUUID {
			col += "::text"
		}
		cols = append(cols, col+" AS "+pgx.Identifier{name}.Sanitize())
	}

	order := make([]string, 0, len(f.Sort))
	for _, k := range f.Sort {
		if !f.Entity.Has(k.Field) {
			return "", nil, malformed("cannot sort by %q", k.Field)
		}
		dir := " ASC"
		if k.Desc {
			dir = " DESC"
		}
		order = append(order, ident(alias, k.Field)+dir)
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(" FROM " + pgx.Identifier{f.Entity.Table}.Sanitize() + " " + alias)
	sb.WriteString(" WHERE " + where)
	if len(order) > 0 {
		sb.WriteString(" ORDER BY " + strings.Join(order, ", "))
	}
	sb.WriteString(" LIMIT " + b.arg(f.Limit) + " OFFSET " + b.arg(f.Offset))
	return sb.String(), b.args, nil
}

func populateSQL(p Populate) (string, error) {
	fields := []string{"id"}
	for _, f := range p.Fields {
		if f != "id" {
			fields = append(fields, f)
		}
	}
	pairs := make([]string, 0, len(fields))
	for _, name := range fields {
		if !p.Entity.Exposed(name) {
			return "", malformed("cannot populate %s.%s", p.Entity.Name, name)
		}
		pairs = append(pairs, "'"+name+"', "+ident("p", name))
	}
	return fmt.Sprintf("(SELECT json_build_object(%s) FROM %s p WHERE p.id = %s) AS %s",
		strings.Join(pairs, ", "),
		pgx.Identifier{p.Entity.Table}.Sanitize(),
		ident(alias, p.Field),
		pgx.Identifier{p.Field}.Sanitize(),
	), nil
}

// CountSQL renders the total query for the same filter, without paging.
func CountSQL(e *Entity, where Expr) (string, []any, error) {
	w, args, err := CompileSQL(e, where)
	if err != nil {
		return "", nil, err
	}
	return "SELECT count(*) FROM " + pgx.Identifier{e.Table}.Sanitize() + " " + alias + " WHERE " + w, args, nil
}
