package tool

import (
	"context"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/kadirpekel/agentrt/pkg/hooks"
)

// HandlerFunc executes one tool invocation against validated input.
type HandlerFunc func(ctx context.Context, input map[string]any) (Result, error)

// Result is a tool's typed outcome.
type Result struct {
	Success bool
	Output  any
	Reason  string // set when Success is false
}

// Descriptor describes one dispatchable tool: its name, schema, handler,
// and (optionally) which hook phases run around it. A nil Phases means
// the default pre-tool-use/post-tool-use pair.
type Descriptor struct {
	Name        string
	Description string
	Schema      *jsonschema.Schema
	SchemaJSON  string // source document Schema was compiled from, for catalog exposure
	Handler     HandlerFunc
	Phases      []hooks.Phase
}

// TransientError marks a handler failure as retryable by the caller,
// per the loop's per-turn retry cap (counted per tool name and
// arguments).
type TransientError struct {
	Err error
}

func (t *TransientError) Error() string { return t.Err.Error() }
func (t *TransientError) Unwrap() error { return t.Err }

// Transient wraps err so dispatch classifies it as ErrToolTransient
// instead of ErrToolExecutionError.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}
