package schema

import "fmt"

// Error codes for structured error reporting.
const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeInvalidArgument = "INVALID_ARGUMENT"
	ErrCodeDeleteRefused   = "DELETE_REFUSED"
	ErrCodeExpression      = "EXPRESSION_ERROR"
	ErrCodeStore           = "STORE_ERROR"
)

// Validation issue codes. Issues also carry a display message; callers that
// dispatch on the kind of problem should switch on these instead.
const (
	IssueEmptyWorkflow        = "EMPTY_WORKFLOW"
	IssueMissingData          = "MISSING_DATA"
	IssueMissingName          = "MISSING_NAME"
	IssueMissingDescription   = "MISSING_DESCRIPTION"
	IssueMissingConditionType = "MISSING_CONDITION_TYPE"
	IssueInvalidConditionType = "INVALID_CONDITION_TYPE"
	IssueMissingExpression    = "MISSING_EXPRESSION"
	IssueInvalidExpression    = "INVALID_EXPRESSION"
	IssueDisconnectedNodes    = "DISCONNECTED_NODES"
	IssueCycleDetected        = "CYCLE_DETECTED"
	IssueConditionGroup       = "CONDITION_GROUP"
	IssueMultipleParents      = "MULTIPLE_PARENTS"
)

// FlowError is the structured error type for engine operations.
type FlowError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	NodeID  string         `json:"node_id,omitempty"`
	Cause   error          `json:"-"`
}

func (e *FlowError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("[%s] node %s: %s", e.Code, e.NodeID, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *FlowError) Unwrap() error {
	return e.Cause
}

// NewError creates a new FlowError.
func NewError(code, message string) *FlowError {
	return &FlowError{Code: code, Message: message}
}

// NewErrorf creates a new FlowError with a formatted message.
func NewErrorf(code, format string, args ...any) *FlowError {
	return &FlowError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithNode attaches a node ID to the error.
func (e *FlowError) WithNode(nodeID string) *FlowError {
	e.NodeID = nodeID
	return e
}

// WithCause attaches an underlying cause.
func (e *FlowError) WithCause(err error) *FlowError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *FlowError) WithDetails(details map[string]any) *FlowError {
	e.Details = details
	return e
}
