package expressions

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/zyztek/suna-sub010/pkg/schema"
)

// celVariables are the top-level names a condition may reference.
var celVariables = []string{"input", "steps", "vars", "context"}

// CELChecker compiles conditions with Google's Common Expression Language.
// Every variable is a map(string, dyn). Results are cached per expression;
// it is safe for concurrent use.
type CELChecker struct {
	env *cel.Env

	mu    sync.RWMutex
	cache map[string]error
}

// NewCELChecker builds the CEL environment.
func NewCELChecker() (*CELChecker, error) {
	mapType := cel.MapType(cel.StringType, cel.DynType)
	opts := make([]cel.EnvOption, 0, len(celVariables))
	for _, name := range celVariables {
		opts = append(opts, cel.Variable(name, mapType))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}
	return &CELChecker{env: env, cache: make(map[string]error)}, nil
}

// Name returns "cel".
func (c *CELChecker) Name() string { return string(DialectCEL) }

// Check compiles expression. A condition must produce a bool.
func (c *CELChecker) Check(expression string) error {
	if expression == "" {
		return schema.NewError(schema.ErrCodeExpression, "empty CEL expression")
	}

	c.mu.RLock()
	err, ok := c.cache[expression]
	c.mu.RUnlock()
	if ok {
		return err
	}

	err = c.compile(expression)

	c.mu.Lock()
	c.cache[expression] = err
	c.mu.Unlock()
	return err
}

func (c *CELChecker) compile(expression string) error {
	ast, issues := c.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return schema.NewErrorf(schema.ErrCodeExpression,
			"CEL compile error in %q: %s", expression, issues.Err().Error()).
			WithCause(issues.Err()).
			WithDetails(map[string]any{"expression": expression})
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return schema.NewErrorf(schema.ErrCodeExpression,
			"CEL expression %q yields %s, want bool", expression, out).
			WithDetails(map[string]any{"expression": expression})
	}
	return nil
}

var _ Checker = (*CELChecker)(nil)
