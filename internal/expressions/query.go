package expressions

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/itchyny/gojq"

	"github.com/zyztek/suna-sub010/pkg/schema"
)

// Query runs jq programs over step trees and graphs. Compiled programs are
// cached; it is safe for concurrent use.
type Query struct {
	mu    sync.RWMutex
	cache map[string]*gojq.Code
}

// NewQuery creates a Query.
func NewQuery() *Query {
	return &Query{cache: make(map[string]*gojq.Code)}
}

// Run evaluates program against v, which is first reduced to plain JSON
// values. Every output of the program is returned in order.
func (q *Query) Run(ctx context.Context, program string, v any) ([]any, error) {
	if program == "" {
		return nil, schema.NewError(schema.ErrCodeExpression, "empty jq program")
	}

	code, err := q.getOrCompile(program)
	if err != nil {
		return nil, err
	}

	input, err := toPlainJSON(v)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeInvalidArgument, "query input is not JSON serializable").WithCause(err)
	}

	iter := code.RunWithContext(ctx, input)
	results := []any{}
	for {
		val, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := val.(error); isErr {
			return nil, schema.NewErrorf(schema.ErrCodeExpression,
				"jq evaluation failed for %q: %s", program, err.Error()).
				WithCause(err).
				WithDetails(map[string]any{"expression": program})
		}
		results = append(results, val)
	}
	return results, nil
}

// Steps runs program against a step tree.
func (q *Query) Steps(ctx context.Context, program string, steps []schema.Step) ([]any, error) {
	if steps == nil {
		steps = []schema.Step{}
	}
	return q.Run(ctx, program, steps)
}

func (q *Query) getOrCompile(program string) (*gojq.Code, error) {
	q.mu.RLock()
	if code, ok := q.cache[program]; ok {
		q.mu.RUnlock()
		return code, nil
	}
	q.mu.RUnlock()

	q.mu.Lock()
	defer q.mu.Unlock()

	if code, ok := q.cache[program]; ok {
		return code, nil
	}

	parsed, err := gojq.Parse(program)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeExpression,
			"jq parse error in %q: %s", program, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": program})
	}

	code, err := gojq.Compile(parsed,
		// No access to the process environment.
		gojq.WithEnvironLoader(func() []string { return nil }),
	)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeExpression,
			"jq compile error in %q: %s", program, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": program})
	}

	q.cache[program] = code
	return code, nil
}

// toPlainJSON round-trips v through encoding/json so that structs become
// maps and numbers become float64, the only shapes gojq accepts.
func toPlainJSON(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
