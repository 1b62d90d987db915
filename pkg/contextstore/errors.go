package contextstore

import "errors"

// ErrOrphanToolResult is returned by AppendToolResult when no prior
// assistant message referenced the given correlation identifier.
var ErrOrphanToolResult = errors.New("contextstore: orphan tool result, no matching tool call")

// ErrEvictionProtected is returned by Evict when eviction would drop the
// system tier below its minimum, or would remove a pinned recent turn.
var ErrEvictionProtected = errors.New("contextstore: eviction protected")

// ErrMessageNotFound is returned when an operation references an
// identifier that does not exist in the context.
var ErrMessageNotFound = errors.New("contextstore: message not found")

// ErrPendingToolCall is returned by operations that would prepare a new
// LLM request while a tool request has been emitted but its result has
// not yet been appended (spec invariant: context.md (iv)).
var ErrPendingToolCall = errors.New("contextstore: tool call pending, cannot prepare next request")
