package budget

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/kadirpekel/agentrt/pkg/contextstore"
	"github.com/kadirpekel/agentrt/pkg/logger"
)

// tierOrder is the order both the compression and eviction phases walk,
// lowest-priority data first; the system tier is skipped entirely and the recent/tools tiers
// are never targeted by either phase (pinned recent turns already have
// their own protection at the store layer; live tool-call data should
// not be silently destroyed).
var tierOrder = []contextstore.Tier{
	contextstore.TierEphemeral,
	contextstore.TierArchived,
	contextstore.TierResources,
}

// Prepared is the budget planner's output for one LLM call.
type Prepared struct {
	Messages        []contextstore.Message
	PromptTokens    int
	ResponseReserve int
	ToolReserve     int
}

// Planner assembles a request-ready view of a Context, compressing and
// evicting messages as needed to fit the configured envelope.
type Planner struct {
	summarize Summarizer
	log       *slog.Logger
}

// NewPlanner builds a Planner. summarizer may be nil, in which case the
// compression phase is skipped entirely (messages fall through to
// eviction, or to BudgetOverflow).
func NewPlanner(summarizer Summarizer, log *slog.Logger) *Planner {
	return &Planner{summarize: summarizer, log: logger.OrDefault(log)}
}

// Plan runs the full algorithm: short-circuit when under the compression
// threshold, else compress, then evict, then fail with ErrBudgetOverflow
// if the context still does not fit. It refuses with
// contextstore.ErrPendingToolCall while a registered tool call has no
// result message yet.
func (p *Planner) Plan(ctx context.Context, store *contextstore.Context) (Prepared, error) {
	if store.HasPendingToolCalls() {
		return Prepared{}, contextstore.ErrPendingToolCall
	}
	budget := store.Budget()
	available := budget.Available()

	total := store.TotalTokens()
	if float64(total) <= budget.CompressionThreshold*float64(available) {
		return p.assemble(store, budget), nil
	}

	if p.summarize != nil {
		if err := p.compressionPhase(ctx, store, budget, available); err != nil {
			p.log.Warn("budget: compression phase error", "error", err)
		}
	}

	total = store.TotalTokens()
	if float64(total) > budget.EvictionThreshold*float64(available) {
		p.evictionPhase(store, budget, available)
	}

	total = store.TotalTokens()
	if total > available {
		return Prepared{}, fmt.Errorf("%w: total=%d available=%d", ErrBudgetOverflow, total, available)
	}

	return p.assemble(store, budget), nil
}

func (p *Planner) assemble(store *contextstore.Context, budget contextstore.BudgetDescriptor) Prepared {
	msgs := store.IterMessages()
	total := 0
	for _, m := range msgs {
		total += m.TokenCount
	}
	return Prepared{
		Messages:        msgs,
		PromptTokens:    total,
		ResponseReserve: budget.ResponseReserve,
		ToolReserve:     budget.ToolReserve,
	}
}

// compressionPhase replaces message content with summaries, tier by
// tier in lowest-priority-first order, oldest message first within a
// tier, stopping as soon as the total drops below the compression
// threshold.
func (p *Planner) compressionPhase(ctx context.Context, store *contextstore.Context, budget contextstore.BudgetDescriptor, available int) error {
	for _, tier := range tierOrder {
		tierCfg := budget.TierConfigFor(tier)
		if !tierCfg.Compressible {
			continue
		}

		candidates := candidatesInTier(store, tier)
		sortForCompression(candidates)

		for _, msg := range candidates {
			if float64(store.TotalTokens()) <= budget.CompressionThreshold*float64(available) {
				return nil
			}
			if msg.Marker == contextstore.MarkerSummarized {
				continue
			}

			ratio := tierCfg.CompressionTarget
			if ratio <= 0 {
				ratio = 0.5
			}
			targetTokens := int(float64(msg.TokenCount) * ratio)
			if tierCfg.MinTokens > targetTokens {
				targetTokens = tierCfg.MinTokens
			}
			if targetTokens <= 0 {
				targetTokens = 1
			}

			summary, actual, err := p.summarize(ctx, msg.Content, targetTokens)
			if err != nil {
				// Compression failures are recoverable: leave the
				// message in place and move to the next candidate.
				p.log.Debug("budget: summarizer failed, leaving message raw", "message_id", msg.ID, "error", err)
				continue
			}
			if err := store.ReplaceContent(msg.ID, summary, actual, contextstore.MarkerSummarized); err != nil {
				p.log.Debug("budget: replace content failed", "message_id", msg.ID, "error", err)
			}
		}
	}
	return nil
}

// evictionPhase drops messages tier by tier in the same order, oldest
// first, until the total fits in the available budget. Eviction never
// fails outright here: critical-priority messages are skipped by the
// planner, pinned recent turns are refused by the store (and the system
// tier is never walked), and
// leftover overflow surfaces as ErrBudgetOverflow by the caller.
func (p *Planner) evictionPhase(store *contextstore.Context, budget contextstore.BudgetDescriptor, available int) {
	for _, tier := range tierOrder {
		candidates := candidatesInTier(store, tier)
		sortForCompression(candidates)

		for _, msg := range candidates {
			if store.TotalTokens() <= available {
				return
			}
			if msg.Priority == contextstore.PriorityCritical {
				continue
			}
			if err := store.Evict(msg.ID); err != nil {
				p.log.Debug("budget: eviction skipped", "message_id", msg.ID, "error", err)
			}
		}
	}
}

func candidatesInTier(store *contextstore.Context, tier contextstore.Tier) []contextstore.Message {
	all := store.IterMessages()
	out := make([]contextstore.Message, 0, len(all))
	for _, m := range all {
		if m.Tier == tier {
			out = append(out, m)
		}
	}
	return out
}

// sortForCompression orders oldest-first; ties on arrival break by
// priority (lower priority first), and remaining ties break by message
// size (larger reclaim first).
func sortForCompression(msgs []contextstore.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		a, b := msgs[i], msgs[j]
		if !a.Arrived.Equal(b.Arrived) {
			return a.Arrived.Before(b.Arrived)
		}
		if a.Priority != b.Priority {
			return priorityRank(a.Priority) < priorityRank(b.Priority)
		}
		return a.TokenCount > b.TokenCount
	})
}

func priorityRank(p contextstore.Priority) int {
	switch p {
	case contextstore.PriorityLow:
		return 0
	case contextstore.PriorityNormal:
		return 1
	case contextstore.PriorityHigh:
		return 2
	case contextstore.PriorityCritical:
		return 3
	default:
		return 1
	}
}
