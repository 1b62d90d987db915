// Package llmprovider defines the polymorphic streaming interface the
// agentic loop drives an LLM through, plus two thin reference adapters.
package llmprovider

import "context"

// ToolSpec is one entry of the tool catalog passed to a provider call,
// derived from the dispatcher's registered descriptors.
type ToolSpec struct {
	Name        string
	Description string
	SchemaJSON  string
}

// Options configures one generate call.
type Options struct {
	Model          string
	MaxTokens      int
	Temperature    float64
	EnabledTools   []string
	StopConditions []string
}

// Message is the minimal view of a conversation message a provider
// needs: role and content. The loop derives these from the context
// store's prepared view.
type Message struct {
	Role    string
	Content string
}

// ChunkKind names one streamed chunk variant.
type ChunkKind string

const (
	ChunkText     ChunkKind = "text"
	ChunkToolCall ChunkKind = "tool_call"
	ChunkUsage    ChunkKind = "usage"
)

// ToolCallRequest is a provider's request to invoke a tool, with a
// stable identifier used to correlate the eventual result.
type ToolCallRequest struct {
	ID            string
	Name          string
	ArgumentsJSON string
}

// Usage reports token accounting and the stream's finish reason.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	FinishReason     string
}

// Chunk is one streamed unit of a provider's response.
type Chunk struct {
	Kind     ChunkKind
	TextDelta string
	ToolCall  *ToolCallRequest
	Usage     *Usage
}

// Stream is the per-call handle a provider returns: pull chunks via
// Next until it returns false, then check Err.
type Stream interface {
	Next() (Chunk, bool)
	Err() error
	// Abort cancels the stream mid-flight; idempotent.
	Abort()
}

// Provider is the polymorphic external LLM boundary. Implementations
// are expected to translate Messages/Options into their own wire
// format and stream back Chunks.
type Provider interface {
	Generate(ctx context.Context, messages []Message, tools []ToolSpec, opts Options) (Stream, error)
}
