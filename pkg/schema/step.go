package schema

// Step is one node of a persisted workflow tree.
// Children holds either a nested sequential continuation or, when the
// children are condition steps, the branches of a condition group.
type Step struct {
	ID          string         `json:"id,omitempty"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Type        StepType       `json:"type"`
	Config      map[string]any `json:"config,omitempty"`
	Conditions  *Conditions    `json:"conditions,omitempty"`
	Order       int            `json:"order"`
	Enabled     bool           `json:"enabled"`
	HasIssues   bool           `json:"hasIssues"`
	Position    *Position      `json:"position,omitempty"`
	Children    []Step         `json:"children,omitempty"`
}

// StepType enumerates the kinds of persisted steps.
type StepType string

const (
	StepTypeInstruction StepType = "instruction"
	StepTypeCondition   StepType = "condition"
	StepTypeSequence    StepType = "sequence"
	StepTypeTrigger     StepType = "trigger"
)

// Valid reports whether t is one of the known step types.
func (t StepType) Valid() bool {
	switch t {
	case StepTypeInstruction, StepTypeCondition, StepTypeSequence, StepTypeTrigger:
		return true
	}
	return false
}

// IsCondition reports whether the step is a branch of a condition group.
func (s Step) IsCondition() bool {
	return s.Type == StepTypeCondition
}

// Tool returns config["tool"] when it is a string.
func (s Step) Tool() string {
	if s.Config == nil {
		return ""
	}
	tool, _ := s.Config["tool"].(string)
	return tool
}

// Conditions describes the branch a condition step represents.
type Conditions struct {
	Type       ConditionType `json:"type"`
	Expression string        `json:"expression,omitempty"`
}

// ConditionType is the position of a branch inside its condition group.
type ConditionType string

const (
	ConditionIf     ConditionType = "if"
	ConditionElseIf ConditionType = "elseif"
	ConditionElse   ConditionType = "else"
)

// Valid reports whether c is if, elseif or else.
func (c ConditionType) Valid() bool {
	switch c {
	case ConditionIf, ConditionElseIf, ConditionElse:
		return true
	}
	return false
}

// Label returns the human form used on graph edges.
func (c ConditionType) Label() string {
	switch c {
	case ConditionIf:
		return "if"
	case ConditionElseIf:
		return "else if"
	case ConditionElse:
		return "else"
	default:
		return string(c)
	}
}

// NeedsExpression reports whether a branch of this type must carry an expression.
func (c ConditionType) NeedsExpression() bool {
	return c == ConditionIf || c == ConditionElseIf
}

// Rank orders branch types inside a group: if, elseif, else.
func (c ConditionType) Rank() int {
	switch c {
	case ConditionIf:
		return 0
	case ConditionElseIf:
		return 1
	case ConditionElse:
		return 2
	default:
		return 1
	}
}

// ParseConditionLabel accepts either an edge label ("else if") or a
// persisted condition type ("elseif").
func ParseConditionLabel(label string) (ConditionType, bool) {
	switch label {
	case "if":
		return ConditionIf, true
	case "else if", "elseif", "else-if":
		return ConditionElseIf, true
	case "else":
		return ConditionElse, true
	}
	return "", false
}

// CloneSteps deep-copies a step tree.
func CloneSteps(steps []Step) []Step {
	if steps == nil {
		return nil
	}
	out := make([]Step, len(steps))
	for i, s := range steps {
		out[i] = s
		out[i].Config = CloneConfig(s.Config)
		if s.Conditions != nil {
			c := *s.Conditions
			out[i].Conditions = &c
		}
		if s.Position != nil {
			p := *s.Position
			out[i].Position = &p
		}
		out[i].Children = CloneSteps(s.Children)
	}
	return out
}

// CloneConfig returns a shallow copy of a config map.
func CloneConfig(cfg map[string]any) map[string]any {
	if cfg == nil {
		return nil
	}
	out := make(map[string]any, len(cfg))
	for k, v := range cfg {
		out[k] = v
	}
	return out
}

// CountSteps returns the number of steps in a tree, children included.
func CountSteps(steps []Step) int {
	n := 0
	for _, s := range steps {
		n += 1 + CountSteps(s.Children)
	}
	return n
}
