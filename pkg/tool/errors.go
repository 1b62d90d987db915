package tool

import "errors"

// ErrUnknownTool is returned when dispatch is asked for a tool name with
// no registered descriptor.
var ErrUnknownTool = errors.New("tool: unknown tool")

// ErrToolInvalidInput is returned when input fails schema validation.
// Not retryable.
var ErrToolInvalidInput = errors.New("tool: invalid input")

// ErrHookBlocked is returned when a pre-tool-use handler blocked
// dispatch before the handler ran.
var ErrHookBlocked = errors.New("tool: blocked by hook")

// ErrToolExecutionError wraps a handler failure that is not classified
// as transient. Not retryable.
var ErrToolExecutionError = errors.New("tool: execution error")

// ErrToolTransient wraps a handler failure the caller may retry.
var ErrToolTransient = errors.New("tool: transient error")
