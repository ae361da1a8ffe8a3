// Package expressions compiles condition expressions and runs jq queries
// over step trees. Nothing here evaluates a condition against live data.
package expressions

import (
	"github.com/zyztek/suna-sub010/pkg/schema"
)

// Dialect names a condition expression language.
type Dialect string

const (
	DialectCEL  Dialect = "cel"
	DialectExpr Dialect = "expr"
	DialectNone Dialect = "none"
)

// Checker compiles an expression and reports syntax or type errors.
type Checker interface {
	Name() string
	Check(expression string) error
}

// NewChecker returns the checker for a dialect. DialectNone and the empty
// dialect return a nil Checker, which disables expression checks.
func NewChecker(d Dialect) (Checker, error) {
	switch d {
	case DialectCEL:
		return NewCELChecker()
	case DialectExpr:
		return NewExprChecker(), nil
	case DialectNone, "":
		return nil, nil
	}
	return nil, schema.NewErrorf(schema.ErrCodeInvalidArgument, "unknown expression dialect %q", d)
}
