// Package query turns a raw list request into a typed filter, sort, page and
// projection, and runs it against a storage backend.
package query

import "fmt"

type Op int

const (
	OpEq Op = iota
	OpNe
	OpGt
	OpGte
	OpLt
	OpLte
	OpIn
	OpNin
	OpContains // case-insensitive substring
)

var opNames = map[string]Op{
	"eq":  OpEq,
	"ne":  OpNe,
	"gt":  OpGt,
	"gte": OpGte,
	"lt":  OpLt,
	"lte": OpLte,
	"in":  OpIn,
	"nin": OpNin,
}

func (o Op) String() string {
	for name, op := range opNames {
		if op == o {
			return name
		}
	}
	if o == OpContains {
		return "contains"
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// Expr is a node of the filter tree: Cond, And or Or.
type Expr interface {
	isExpr()
}

// Cond compares one field. For OpIn and OpNin Value is a []any.
type Cond struct {
	Field string
	Op    Op
	Value any
}

type And []Expr

type Or []Expr

func (Cond) isExpr() {}
func (And) isExpr()  {}
func (Or) isExpr()   {}

func Eq(field string, v any) Cond { return Cond{Field: field, Op: OpEq, Value: v} }

func In(field string, vs ...any) Cond { return Cond{Field: field, Op: OpIn, Value: vs} }

// AllOf joins the non-nil expressions with AND.
func AllOf(exprs ...Expr) Expr {
	out := make(And, 0, len(exprs))
	for _, e := range exprs {
		if e == nil {
			continue
		}
		if and, ok := e.(And); ok {
			out = append(out, and...)
			continue
		}
		out = append(out, e)
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}

// AnyOf joins the non-nil expressions with OR.
func AnyOf(exprs ...Expr) Expr {
	out := make(Or, 0, len(exprs))
	for _, e := range exprs {
		if e != nil {
			out = append(out, e)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}

// walk visits every Cond in the tree.
func walk(e Expr, fn func(Cond) error) error {
	switch n := e.(type) {
	case nil:
		return nil
	case Cond:
		return fn(n)
	case And:
		for _, c := range n {
			if err := walk(c, fn); err != nil {
				return err
			}
		}
	case Or:
		for _, c := range n {
			if err := walk(c, fn); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown expression %T", e)
	}
	return nil
}
