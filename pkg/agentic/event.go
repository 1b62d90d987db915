// Package agentic implements the iterative think-act-observe loop that
// drives an LLM through a single turn: appending messages, assembling a
// budget-fit view, invoking the provider, dispatching tool calls, and
// emitting a causally-ordered event sequence.
package agentic

import "time"

// EventKind names one of the loop's emitted event variants.
type EventKind string

const (
	EventThinking            EventKind = "thinking"
	EventReasoning           EventKind = "reasoning"
	EventActing              EventKind = "acting"
	EventObserving           EventKind = "observing"
	EventComplete            EventKind = "complete"
	EventFailed              EventKind = "failed"
	EventClarificationNeeded EventKind = "clarification_needed"
)

// ReasoningTag names one parsed reasoning block of an assistant
// response.
type ReasoningTag string

const (
	TagAnalyze   ReasoningTag = "analyze"
	TagPlan      ReasoningTag = "plan"
	TagObserve   ReasoningTag = "observe"
	TagDecide    ReasoningTag = "decide"
	TagSummarize ReasoningTag = "summarize"
)

// Metrics accumulates token and tool-call counters across a turn.
type Metrics struct {
	PromptTokens     int
	CompletionTokens int
	ToolCalls        int
}

// Event is one entry of the loop's lazy, causally-ordered output
// sequence. Exactly the fields relevant to Kind are populated.
type Event struct {
	Kind      EventKind
	Timestamp time.Time

	// reasoning (Text also carries a thinking event's streamed text delta)
	Tag  ReasoningTag
	Text string

	// acting / observing
	ToolName        string
	ToolInput       map[string]any
	ToolCallID      string
	ObservingResult any
	ObservingError  error

	// complete
	Summary string
	Metrics Metrics

	// failed
	Cause error

	// clarification_needed
	Questions []string
}
