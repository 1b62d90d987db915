// Package budget implements the planner that decides which messages of a
// context store are included in the next LLM request, compressing and
// evicting as needed to fit the configured envelope.
package budget

import "context"

// Summarizer is the pure-function contract the planner uses to compress
// a message's content during the compression phase. Implementations may
// delegate to a cheap LLM call, but must be deterministic on short,
// repeated inputs so tests can rely on them.
type Summarizer func(ctx context.Context, content string, targetTokens int) (summary string, actualTokens int, err error)
