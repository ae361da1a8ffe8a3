package validation

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/zyztek/suna-sub010/pkg/schema"
)

const documentSchemaURL = "https://flowgraph.dev/schemas/steps.json"

// stepsSchemaJSON describes a persisted step tree.
const stepsSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://flowgraph.dev/schemas/steps.json",
  "type": "array",
  "items": { "$ref": "#/$defs/step" },
  "$defs": {
    "position": {
      "type": "object",
      "required": ["x", "y"],
      "properties": {
        "x": { "type": "number" },
        "y": { "type": "number" }
      }
    },
    "step": {
      "type": "object",
      "properties": {
        "id": { "type": "string" },
        "name": { "type": "string" },
        "description": { "type": "string" },
        "type": {
          "type": "string",
          "enum": ["instruction", "condition", "sequence", "trigger"]
        },
        "config": { "type": "object" },
        "conditions": {
          "type": "object",
          "required": ["type"],
          "properties": {
            "type": { "type": "string", "enum": ["if", "elseif", "else"] },
            "expression": { "type": "string" }
          },
          "additionalProperties": false
        },
        "order": { "type": "integer" },
        "enabled": { "type": "boolean" },
        "hasIssues": { "type": "boolean" },
        "position": { "$ref": "#/$defs/position" },
        "children": {
          "type": "array",
          "items": { "$ref": "#/$defs/step" }
        }
      },
      "if": {
        "properties": { "type": { "const": "condition" } },
        "required": ["type"]
      },
      "then": { "required": ["conditions"] },
      "additionalProperties": false
    }
  }
}`

// DocumentValidator checks persisted step documents and per-tool config
// payloads against JSON Schema Draft 2020-12. It is safe for concurrent use.
type DocumentValidator struct {
	stepsSchema *jsonschema.Schema

	mu    sync.RWMutex
	cache map[string]*jsonschema.Schema
}

// NewDocumentValidator compiles the step document schema.
func NewDocumentValidator() (*DocumentValidator, error) {
	c := newCompiler()

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(stepsSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal steps schema: %w", err)
	}
	if err := c.AddResource(documentSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("add steps schema resource: %w", err)
	}
	compiled, err := c.Compile(documentSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile steps schema: %w", err)
	}

	return &DocumentValidator{
		stepsSchema: compiled,
		cache:       make(map[string]*jsonschema.Schema),
	}, nil
}

// ValidateDocument validates raw JSON against the step document schema and
// decodes it on success.
func (v *DocumentValidator) ValidateDocument(data []byte) ([]schema.Step, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(data)))
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeInvalidArgument, "steps document is not valid JSON").WithCause(err)
	}
	if err := v.stepsSchema.Validate(doc); err != nil {
		return nil, toFlowError(err)
	}

	var steps []schema.Step
	if err := json.Unmarshal(data, &steps); err != nil {
		return nil, schema.NewError(schema.ErrCodeInvalidArgument, "decode steps document").WithCause(err)
	}
	if steps == nil {
		steps = []schema.Step{}
	}
	return steps, nil
}

// ValidateSteps validates an already decoded step tree.
func (v *DocumentValidator) ValidateSteps(steps []schema.Step) error {
	if steps == nil {
		steps = []schema.Step{}
	}
	doc, err := toJSONValue(steps)
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "failed to serialize steps").WithCause(err)
	}
	if err := v.stepsSchema.Validate(doc); err != nil {
		return toFlowError(err)
	}
	return nil
}

// ValidateConfig validates a step config against a JSON Schema provided as
// raw bytes. Compiled schemas are cached by their text.
func (v *DocumentValidator) ValidateConfig(config map[string]any, configSchema []byte) error {
	if len(configSchema) == 0 {
		return nil
	}
	if config == nil {
		config = map[string]any{}
	}

	compiled, err := v.getOrCompile(configSchema)
	if err != nil {
		return schema.NewError(schema.ErrCodeInvalidArgument, "invalid config schema").WithCause(err)
	}

	doc, err := toJSONValue(config)
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "failed to serialize config").WithCause(err)
	}
	if err := compiled.Validate(doc); err != nil {
		return toFlowError(err)
	}
	return nil
}

func (v *DocumentValidator) getOrCompile(schemaBytes []byte) (*jsonschema.Schema, error) {
	key := string(schemaBytes)

	v.mu.RLock()
	if cached, ok := v.cache[key]; ok {
		v.mu.RUnlock()
		return cached, nil
	}
	v.mu.RUnlock()

	v.mu.Lock()
	defer v.mu.Unlock()

	if cached, ok := v.cache[key]; ok {
		return cached, nil
	}

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(key))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	url := fmt.Sprintf("flowgraph://config-schema/%d", len(v.cache))
	c := newCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	v.cache[key] = compiled
	return compiled, nil
}

func newCompiler() *jsonschema.Compiler {
	c := jsonschema.NewCompiler()
	c.AssertFormat()
	return c
}

// toJSONValue round-trips v through JSON so numbers become json.Number.
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
}

// toFlowError flattens a jsonschema.ValidationError into one message per
// violated leaf, keyed by instance location.
func toFlowError(err error) *schema.FlowError {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return schema.NewError(schema.ErrCodeValidation, err.Error())
	}

	violations := collectViolations(verr)
	switch len(violations) {
	case 0:
		return schema.NewError(schema.ErrCodeValidation, verr.Error())
	case 1:
		return schema.NewError(schema.ErrCodeValidation, violations[0]).
			WithDetails(map[string]any{"violations": violations})
	}
	return schema.NewErrorf(schema.ErrCodeValidation, "validation failed with %d errors", len(violations)).
		WithDetails(map[string]any{"violations": violations})
}

func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}

	var violations []string
	for _, cause := range verr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}
