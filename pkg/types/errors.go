package types

import "fmt"

// ErrorKind constants for agent-facing errors. The set is closed and shared by
// every backend; callers branch on the kind, never on backend-specific text.
const (
	ErrKindInvalidRequest         = "INVALID_REQUEST"
	ErrKindBackendNotInstalled    = "BACKEND_NOT_INSTALLED"
	ErrKindNotFound               = "NOT_FOUND"
	ErrKindTimedOut               = "TIMED_OUT"
	ErrKindBackendExecutionFailed = "BACKEND_EXECUTION_FAILED"
	ErrKindMalformedOutput        = "MALFORMED_OUTPUT"
)

// MCPError represents a structured error returned to AI agents.
type MCPError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Tool    string `json:"tool,omitempty"`
	Command string `json:"command,omitempty"` // redacted of credentials
	Detail  string `json:"detail,omitempty"`
}

func (e *MCPError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("[%s] %s: %s (%s)", e.Kind, e.Tool, e.Message, e.Detail)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Tool, e.Message)
}

// NewError builds an MCPError with the given kind and formatted message.
func NewError(kind, format string, args ...interface{}) *MCPError {
	return &MCPError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// InvalidRequest is a shorthand for parameter validation failures.
func InvalidRequest(format string, args ...interface{}) *MCPError {
	return NewError(ErrKindInvalidRequest, format, args...)
}

// AsMCPError unwraps err into an MCPError, or wraps it as a
// BACKEND_EXECUTION_FAILED if it is some other error value.
func AsMCPError(err error) *MCPError {
	if err == nil {
		return nil
	}
	if mcpErr, ok := err.(*MCPError); ok {
		return mcpErr
	}
	return NewError(ErrKindBackendExecutionFailed, "%s", err.Error())
}
