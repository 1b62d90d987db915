package hooks

import "time"

// Context carries everything a handler needs: the phase it was called
// for, the tool involved (when applicable), its input and result, and a
// mutable metadata bag handlers may use to pass information to later
// handlers within the same trigger call.
type Context struct {
	Phase      Phase
	ToolName   string
	ToolInput  map[string]any
	ToolResult any
	Err        error
	Duration   time.Duration
	Timestamp  time.Time
	Metadata   map[string]any
}

// Outcome is a handler's response: pass-through (Pass()), blocking, or
// rewriting. A handler that returns Proceed=false blocks dispatch, so
// the zero value blocks; one that sets ModifiedInput rewrites the input visible to
// later handlers and ultimately to the tool.
type Outcome struct {
	Proceed       bool
	Reason        string
	ModifiedInput map[string]any
}

// Pass is the canonical pass-through outcome.
func Pass() Outcome {
	return Outcome{Proceed: true}
}

// Block returns a blocking outcome with the given reason.
func Block(reason string) Outcome {
	return Outcome{Proceed: false, Reason: reason}
}

// Rewrite returns an outcome that both proceeds and replaces the input
// visible to subsequent handlers and the tool call itself.
func Rewrite(input map[string]any) Outcome {
	return Outcome{Proceed: true, ModifiedInput: input}
}

// Handler is a single hook callback. A non-nil error is treated as a
// thrown exception: it never blocks dispatch, but is captured and
// forwarded to the error phase (unless the handler itself is already
// running in the error phase, to avoid recursion).
type Handler func(hc *Context) (Outcome, error)

// TriggerResult is what Trigger returns to the caller.
type TriggerResult struct {
	Blocked       bool
	Reason        string
	ModifiedInput map[string]any
}
