package budget

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/agentrt/pkg/contextstore"
	"github.com/kadirpekel/agentrt/pkg/tokenest"
)

// truncateSummarizer is a deterministic stand-in for a real LLM-backed
// summarizer: it truncates to roughly targetTokens*4 characters.
func truncateSummarizer(_ context.Context, content string, targetTokens int) (string, int, error) {
	maxChars := targetTokens * 4
	if maxChars <= 0 {
		maxChars = 1
	}
	if len(content) <= maxChars {
		return content, targetTokens, nil
	}
	summary := content[:maxChars]
	return summary, targetTokens, nil
}

func buildStore(t *testing.T, budget contextstore.BudgetDescriptor) *contextstore.Context {
	t.Helper()
	store, err := contextstore.NewContext("system prompt", budget, tokenest.NewCharHeuristic())
	require.NoError(t, err)
	return store
}

func baseBudget() contextstore.BudgetDescriptor {
	return contextstore.BudgetDescriptor{
		Ceiling:              2000,
		ResponseReserve:      500,
		ToolReserve:          200,
		RecentTurnsCount:     1,
		CompressionThreshold: 0.8,
		EvictionThreshold:    0.95,
		Tiers: map[contextstore.Tier]contextstore.TierConfig{
			contextstore.TierSystem:    {MinTokens: 5},
			contextstore.TierArchived:  {MaxTokens: 2000, MinTokens: 0, Compressible: true, CompressionTarget: 0.5},
			contextstore.TierResources: {MaxTokens: 2000, MinTokens: 0, Compressible: false},
		},
	}
}

func TestPlanUnderThresholdIsNoop(t *testing.T) {
	store := buildStore(t, baseBudget())
	_, err := store.Append(contextstore.RoleUser, "hi", "", "")
	require.NoError(t, err)

	p := NewPlanner(truncateSummarizer, nil)
	prepared, err := p.Plan(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, store.TotalTokens(), prepared.PromptTokens)
}

func TestPlanCompressesArchivedTier(t *testing.T) {
	store := buildStore(t, baseBudget())
	longBody := strings.Repeat("word ", 1200) // large, over the compression threshold once appended
	id, err := store.Append(contextstore.RoleAssistant, longBody, contextstore.TierArchived, "")
	require.NoError(t, err)

	p := NewPlanner(truncateSummarizer, nil)
	_, err = p.Plan(context.Background(), store)
	require.NoError(t, err)

	msg, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, contextstore.MarkerSummarized, msg.Marker)
	assert.Less(t, len(msg.Content), len(longBody))
}

func TestPlanEvictsNonCompressibleTierUnderPressure(t *testing.T) {
	store := buildStore(t, baseBudget())
	longBody := strings.Repeat("word ", 1200)
	id, err := store.Append(contextstore.RoleAssistant, longBody, contextstore.TierResources, "")
	require.NoError(t, err)

	p := NewPlanner(truncateSummarizer, nil)
	_, err = p.Plan(context.Background(), store)
	require.NoError(t, err)

	_, err = store.Get(id)
	assert.ErrorIs(t, err, contextstore.ErrMessageNotFound)
}

func TestPlanOverflowsWhenNothingCanBeReclaimed(t *testing.T) {
	b := baseBudget()
	b.Ceiling = 100
	b.ResponseReserve = 40
	b.ToolReserve = 20
	store := buildStore(t, b)
	// pinned recent turn, cannot be evicted or compressed
	_, err := store.Append(contextstore.RoleUser, strings.Repeat("word ", 200), "", "")
	require.NoError(t, err)

	p := NewPlanner(truncateSummarizer, nil)
	_, err = p.Plan(context.Background(), store)
	assert.ErrorIs(t, err, ErrBudgetOverflow)
}

func TestPlanSkipsCriticalPriorityDuringEviction(t *testing.T) {
	store := buildStore(t, baseBudget())
	id, err := store.Append(contextstore.RoleAssistant, strings.Repeat("word ", 1200), contextstore.TierResources, contextstore.PriorityCritical)
	require.NoError(t, err)

	p := NewPlanner(truncateSummarizer, nil)
	_, _ = p.Plan(context.Background(), store)

	_, err = store.Get(id)
	assert.NoError(t, err, "critical priority messages must never be evicted")
}
