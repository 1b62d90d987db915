// Package hooks implements the pre/post interception pipeline around
// tool calls and loop steps: a registry of named-phase handlers that can
// block, rewrite, or merely observe.
package hooks

// Phase names a point in the agentic loop's dispatch where registered
// handlers run.
type Phase string

const (
	PhasePreToolUse    Phase = "pre-tool-use"
	PhasePostToolUse   Phase = "post-tool-use"
	PhasePreStep       Phase = "pre-step"
	PhasePostStep      Phase = "post-step"
	PhaseContextChange Phase = "context-change"
	PhaseError         Phase = "error"
	PhaseCheckpoint    Phase = "checkpoint"
	PhaseSessionStart  Phase = "session-start"
	PhaseSessionEnd    Phase = "session-end"
)
