// Package subagent implements delegation to an isolated inner agentic
// loop: a two-phase procedure (reasoning, then execution) driven by a
// contract that carries no pointer back to the parent's context store.
package subagent

import "time"

// ExpectedOutput describes the shape the delegate's work should
// produce, for the host to validate after the fact.
type ExpectedOutput struct {
	Type             string
	MinimumElements  int
	RequiredTypeTags []string
}

// ResourceLimits bounds one delegation's inner loop.
type ResourceLimits struct {
	MaxIterations int
	MaxTokens     int
	Timeout       time.Duration
}

// Contract is the only information that crosses from parent to
// delegate: a value, never a pointer to the parent's context store.
type Contract struct {
	ContractID     string
	AgentType      string
	Task           string
	WorkRegion     string // opaque scope information for the tool host
	InputRefIDs    []string
	InputStyle     string
	InputData      map[string]any
	ExpectedOutput ExpectedOutput
	Limits         ResourceLimits
}

// Envelope is what a delegation returns. No messages, reasoning, or
// intermediate events cross back to the parent.
type Envelope struct {
	ContractID string
	Success    bool
	Summary    string
	EntityIDs  []string
	TokensUsed int
	Duration   time.Duration
	Err        error
}
