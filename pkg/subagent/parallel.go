package subagent

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultFanOutLimit bounds how many delegations run concurrently when
// a caller does not specify its own limit.
const DefaultFanOutLimit = 4

// RunParallel runs each contract through d.Run concurrently, bounded by
// limit (DefaultFanOutLimit if limit <= 0), and returns one Envelope
// per contract in the same order. A per-contract failure surfaces only
// in that contract's Envelope.Err; it never cancels its siblings.
func RunParallel(ctx context.Context, d *Delegate, contracts []Contract, limit int) []Envelope {
	if limit <= 0 {
		limit = DefaultFanOutLimit
	}

	envelopes := make([]Envelope, len(contracts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, contract := range contracts {
		i, contract := i, contract
		g.Go(func() error {
			envelopes[i] = d.Run(gctx, contract)
			return nil
		})
	}
	// Errors are carried per-envelope, not propagated: g.Wait() only
	// ever returns nil here since the goroutines themselves never
	// return an error.
	_ = g.Wait()

	return envelopes
}
