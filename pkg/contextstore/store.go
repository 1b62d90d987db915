// Package contextstore implements a tiered, token-budgeted conversation
// log: an ordered, append-only sequence of messages tagged with role,
// tier, priority and token cost, plus the budget descriptor used to
// decide what fits in a request.
package contextstore

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kadirpekel/agentrt/pkg/tokenest"
)

// Context is an ordered, append-only log of messages plus its budget
// descriptor. A Context is never shared across concurrent turns; callers
// are responsible for session-level ownership (spec §5).
type Context struct {
	mu sync.Mutex

	order   []string           // insertion order of non-evicted and evicted IDs, for replay
	byID    map[string]*Message
	evicted map[string]bool

	budget     BudgetDescriptor
	estimator  tokenest.Estimator
	pending    map[string]bool // correlation IDs of tool calls awaiting a result
}

// NewContext creates a Context seeded with a single system message, as
// required by invariant (i): the system tier contains at least one
// message at all times.
func NewContext(systemPrompt string, budget BudgetDescriptor, estimator tokenest.Estimator) (*Context, error) {
	if estimator == nil {
		estimator = tokenest.NewCharHeuristic()
	}
	c := &Context{
		byID:      make(map[string]*Message),
		evicted:   make(map[string]bool),
		budget:    budget,
		estimator: estimator,
		pending:   make(map[string]bool),
	}
	if _, err := c.appendLocked(RoleSystem, systemPrompt, TierSystem, PriorityCritical, ""); err != nil {
		return nil, err
	}
	return c, nil
}

// Budget returns the context's budget descriptor.
func (c *Context) Budget() BudgetDescriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.budget
}

// Append adds a new message, inferring its tier from role when tier is
// empty, and defaulting priority to normal when empty.
func (c *Context) Append(role Role, content string, tier Tier, priority Priority) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.appendLocked(role, content, tier, priority, "")
}

func (c *Context) appendLocked(role Role, content string, tier Tier, priority Priority, toolCallID string) (string, error) {
	if tier == "" {
		tier = inferTier(role)
	}
	if priority == "" {
		priority = PriorityNormal
	}

	id := uuid.NewString()
	msg := &Message{
		ID:         id,
		Role:       role,
		Content:    content,
		Tier:       tier,
		Priority:   priority,
		TokenCount: c.estimator.EstimateMessage(tokenest.Message{Role: string(role), Content: content}),
		Arrived:    time.Now(),
		ToolCallID: toolCallID,
		Marker:     MarkerRaw,
	}
	c.byID[id] = msg
	c.order = append(c.order, id)
	return id, nil
}

func inferTier(role Role) Tier {
	switch role {
	case RoleSystem:
		return TierSystem
	case RoleTool:
		return TierTools
	default:
		return TierRecent
	}
}

// RegisterToolCall records that the assistant requested a tool call with
// the given correlation identifier, and that no further LLM call may be
// prepared until a matching result is appended (invariant iv).
func (c *Context) RegisterToolCall(correlationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[correlationID] = true
}

// HasPendingToolCalls reports whether any registered tool call is still
// awaiting its result message.
func (c *Context) HasPendingToolCalls() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending) > 0
}

// AppendToolResult appends a tool-result message correlated to a prior
// assistant tool request. Returns ErrOrphanToolResult if the correlation
// identifier was never registered via RegisterToolCall.
func (c *Context) AppendToolResult(correlationID, toolName, content string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.pending[correlationID] {
		return "", ErrOrphanToolResult
	}
	delete(c.pending, correlationID)

	id, err := c.appendLocked(RoleTool, content, TierTools, PriorityNormal, correlationID)
	if err != nil {
		return "", err
	}
	return id, nil
}

// IterMessages returns a snapshot of all non-evicted messages in strict
// insertion order.
func (c *Context) IterMessages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Message, 0, len(c.order))
	for _, id := range c.order {
		if c.evicted[id] {
			continue
		}
		out = append(out, c.byID[id].clone())
	}
	return out
}

// Get returns a single message by identifier.
func (c *Context) Get(id string) (Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg, ok := c.byID[id]
	if !ok || c.evicted[id] {
		return Message{}, ErrMessageNotFound
	}
	return msg.clone(), nil
}

// ReplaceContent is the sole mutation primitive: it swaps a message's
// content, token estimate, and compression marker atomically, preserving
// identifier and tier. Used by the budget planner for compression.
func (c *Context) ReplaceContent(id string, newContent string, newTokenEstimate int, marker CompressionMarker) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg, ok := c.byID[id]
	if !ok || c.evicted[id] {
		return ErrMessageNotFound
	}
	msg.Content = newContent
	msg.TokenCount = newTokenEstimate
	msg.Marker = marker
	return nil
}

// Evict marks a message as removed from the active log. It fails with
// ErrEvictionProtected if eviction would drop the system tier below its
// configured minimum, or would remove a message inside a pinned recent
// turn.
func (c *Context) Evict(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg, ok := c.byID[id]
	if !ok || c.evicted[id] {
		return ErrMessageNotFound
	}

	if msg.Tier == TierSystem {
		tierCfg := c.budget.TierConfigFor(TierSystem)
		remaining := c.tierTokensLocked(TierSystem) - msg.TokenCount
		if remaining < tierCfg.MinTokens {
			return ErrEvictionProtected
		}
	}

	if msg.Tier == TierRecent && c.isPinnedLocked(id) {
		return ErrEvictionProtected
	}

	c.evicted[id] = true
	return nil
}

// isPinnedLocked reports whether a recent-tier message falls within the
// last RecentTurnsCount user/assistant exchanges, which are never
// evicted regardless of token pressure.
func (c *Context) isPinnedLocked(id string) bool {
	if c.budget.RecentTurnsCount <= 0 {
		return false
	}

	// Walk recent-tier messages from the end, counting user/assistant
	// turns; a "turn" is a user message (an assistant message alone does
	// not start a new turn boundary).
	turns := 0
	pinnedFrom := -1
	for i := len(c.order) - 1; i >= 0; i-- {
		mid := c.order[i]
		m := c.byID[mid]
		if m.Tier != TierRecent || c.evicted[mid] {
			continue
		}
		if m.Role == RoleUser {
			turns++
			if turns > c.budget.RecentTurnsCount {
				pinnedFrom = i + 1
				break
			}
		}
	}
	if pinnedFrom < 0 {
		pinnedFrom = 0
	}

	for i := pinnedFrom; i < len(c.order); i++ {
		if c.order[i] == id {
			return true
		}
	}
	return false
}

// TierTokens sums message token estimates grouped by tier, over the
// currently active (non-evicted) messages.
func (c *Context) TierTokens() map[Tier]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[Tier]int)
	for _, id := range c.order {
		if c.evicted[id] {
			continue
		}
		m := c.byID[id]
		out[m.Tier] += m.TokenCount
	}
	return out
}

func (c *Context) tierTokensLocked(tier Tier) int {
	total := 0
	for _, id := range c.order {
		if c.evicted[id] {
			continue
		}
		m := c.byID[id]
		if m.Tier == tier {
			total += m.TokenCount
		}
	}
	return total
}

// TotalTokens returns the sum of all active message token estimates.
func (c *Context) TotalTokens() int {
	tiers := c.TierTokens()
	total := 0
	for _, v := range tiers {
		total += v
	}
	return total
}

// PinnedIDs returns the identifiers of messages within the pinned recent
// turns, for callers that want to know in advance which messages Evict
// will refuse.
func (c *Context) PinnedIDs() map[string]bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]bool)
	for _, id := range c.order {
		if !c.evicted[id] && c.isPinnedLocked(id) {
			out[id] = true
		}
	}
	return out
}

// String implements fmt.Stringer for debugging.
func (c *Context) String() string {
	return fmt.Sprintf("Context{messages=%d}", len(c.IterMessages()))
}
