package expressions

import (
	"sync"

	"github.com/expr-lang/expr"

	"github.com/zyztek/suna-sub010/pkg/schema"
)

// ExprChecker compiles conditions with expr-lang/expr. Undefined variables
// are allowed since the data a condition sees is only known at run time.
// Results are cached per expression; it is safe for concurrent use.
type ExprChecker struct {
	mu    sync.RWMutex
	cache map[string]error
}

// NewExprChecker creates an ExprChecker.
func NewExprChecker() *ExprChecker {
	return &ExprChecker{cache: make(map[string]error)}
}

// Name returns "expr".
func (c *ExprChecker) Name() string { return string(DialectExpr) }

// Check compiles expression.
func (c *ExprChecker) Check(expression string) error {
	if expression == "" {
		return schema.NewError(schema.ErrCodeExpression, "empty expr expression")
	}

	c.mu.RLock()
	err, ok := c.cache[expression]
	c.mu.RUnlock()
	if ok {
		return err
	}

	if _, cerr := expr.Compile(expression, expr.AllowUndefinedVariables()); cerr != nil {
		err = schema.NewErrorf(schema.ErrCodeExpression,
			"expr compile error in %q: %s", expression, cerr.Error()).
			WithCause(cerr).
			WithDetails(map[string]any{"expression": expression})
	}

	c.mu.Lock()
	c.cache[expression] = err
	c.mu.Unlock()
	return err
}

var _ Checker = (*ExprChecker)(nil)
