package waypost

import "fmt"

// Error codes for specific failure types
const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeToolNotFound    = "TOOL_NOT_FOUND"
	ErrCodeToolExecution   = "TOOL_EXECUTION_ERROR"
	ErrCodeReasoning       = "REASONING_ERROR"
	ErrCodeProviderConnect = "PROVIDER_CONNECT_ERROR"
	ErrCodeProviderClose   = "PROVIDER_CLOSE_ERROR"
	ErrCodeConfiguration   = "CONFIGURATION_ERROR"
	ErrCodeCancelled       = "EXECUTION_CANCELLED"
	ErrCodeTimeout         = "EXECUTION_TIMEOUT"
	ErrCodeCache           = "CACHE_ERROR"
	ErrCodeNotebook        = "NOTEBOOK_ERROR"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// WaypostError is a custom error type for waypost specific errors.
type WaypostError struct {
	Code    string // A machine-readable error code (e.g., ErrCodeToolNotFound)
	Message string // A human-readable message
	Stage   string // The stage where the error occurred (e.g., "advise", "act")
	Cause   error  // The underlying error, if any
}

// Error implements the error interface.
func (e *WaypostError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Stage, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Stage, e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error, allowing for error chaining.
func (e *WaypostError) Unwrap() error {
	return e.Cause
}

// NewError creates a new WaypostError.
func NewError(code, stage, message string, cause error) *WaypostError {
	return &WaypostError{
		Code:    code,
		Stage:   stage,
		Message: message,
		Cause:   cause,
	}
}

// Specific error constructors

func NewValidationError(stage, message string, cause error) *WaypostError {
	return NewError(ErrCodeValidation, stage, message, cause)
}

func NewToolNotFoundError(stage, toolName string) *WaypostError {
	return NewError(ErrCodeToolNotFound, stage, fmt.Sprintf("tool '%s' not found", toolName), nil)
}

func NewToolExecutionError(stage, toolName string, cause error) *WaypostError {
	return NewError(ErrCodeToolExecution, stage, fmt.Sprintf("execution failed for tool '%s'", toolName), cause)
}

func NewReasoningError(cause error) *WaypostError {
	return NewError(ErrCodeReasoning, "reason", "reasoner failed to produce a decision", cause)
}

func NewProviderConnectError(name string, cause error) *WaypostError {
	return NewError(ErrCodeProviderConnect, "startup", fmt.Sprintf("provider '%s' failed to connect", name), cause)
}

func NewProviderCloseError(name string, cause error) *WaypostError {
	return NewError(ErrCodeProviderClose, "shutdown", fmt.Sprintf("provider '%s' failed to close", name), cause)
}

func NewConfigurationError(message string, cause error) *WaypostError {
	return NewError(ErrCodeConfiguration, "initialization", message, cause)
}

func NewCancelledError(stage string, cause error) *WaypostError {
	msg := "execution cancelled"
	if cause != nil && cause.Error() != "" && cause.Error() != "context canceled" {
		msg = fmt.Sprintf("execution cancelled: %v", cause)
	}
	return NewError(ErrCodeCancelled, stage, msg, cause)
}

func NewTimeoutError(stage string, cause error) *WaypostError {
	return NewError(ErrCodeTimeout, stage, "execution timed out", cause)
}

func NewNotebookError(operation string, cause error) *WaypostError {
	return NewError(ErrCodeNotebook, "plan", fmt.Sprintf("notebook operation '%s' failed", operation), cause)
}

func NewInternalError(stage, message string, cause error) *WaypostError {
	return NewError(ErrCodeInternal, stage, message, cause)
}
