package validation

import (
	"fmt"

	"github.com/zyztek/suna-sub010/pkg/schema"
)

// ExpressionChecker compiles a condition expression without evaluating it.
type ExpressionChecker interface {
	Check(expression string) error
}

// Validator runs the structural checks and, when an expression checker is
// configured, a syntax stage over condition expressions.
type Validator struct {
	expressions ExpressionChecker
}

// NewValidator creates a Validator. checker may be nil to skip expression
// syntax checks.
func NewValidator(checker ExpressionChecker) *Validator {
	return &Validator{expressions: checker}
}

// Validate returns the aggregated result for g.
func (v *Validator) Validate(g schema.Graph) *schema.ValidationResult {
	result := ValidateGraph(g)
	if v.expressions != nil {
		result.Merge(v.checkExpressions(g.Nodes))
	}
	return result
}

// ValidateError is Validate reduced to an error, nil when the graph is valid.
func (v *Validator) ValidateError(g schema.Graph) error {
	return v.Validate(g).ToError()
}

// checkExpressions reports expressions that fail to compile. They are
// warnings: the dialect evaluating them lives outside the editor.
func (v *Validator) checkExpressions(nodes []schema.GraphNode) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	for _, n := range nodes {
		if !n.IsCondition() || n.Data == nil || n.Data.Expression == "" {
			continue
		}
		if err := v.expressions.Check(n.Data.Expression); err != nil {
			result.AddWarning(n.ID, schema.IssueInvalidExpression,
				fmt.Sprintf("Condition %s has an invalid expression: %v", nodeLabel(n), err))
		}
	}
	return result
}
