package agentic

import "errors"

var (
	// ErrMaxIterationsExceeded is the failure cause when a turn exhausts
	// its iteration budget without reaching a terminal event.
	ErrMaxIterationsExceeded = errors.New("agentic: max iterations exceeded")
	// ErrCancelled is the failure cause when the caller's context was
	// cancelled mid-turn.
	ErrCancelled = errors.New("agentic: cancelled")
	// ErrTimeout is the failure cause when the per-turn wall clock
	// expired.
	ErrTimeout = errors.New("agentic: timeout")
	// ErrLLMProvider wraps a provider-call failure.
	ErrLLMProvider = errors.New("agentic: llm provider error")
)
