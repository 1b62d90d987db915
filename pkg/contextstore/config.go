package contextstore

// TierConfig bounds one memory tier.
type TierConfig struct {
	// MaxTokens is the ceiling for this tier.
	MaxTokens int
	// MinTokens is the tier's token floor. Evict enforces it for the
	// system tier only; messages of other tiers are evicted regardless.
	// The budget planner also uses it as the lower bound of a summary's
	// target size.
	MinTokens int
	// Compressible marks whether the budget planner is allowed to
	// summarize messages in this tier.
	Compressible bool
	// CompressionTarget is the ratio (0,1] a compressed message's token
	// estimate should target relative to its original size. Zero means
	// "use the planner's default".
	CompressionTarget float64
}

// BudgetDescriptor is the budget-relevant configuration of a Context:
// total ceiling, reservations, and per-tier configuration.
type BudgetDescriptor struct {
	// Ceiling is the total token budget for a prepared request.
	Ceiling int
	// ResponseReserve is held back for the model's response.
	ResponseReserve int
	// ToolReserve is held back for tool-call overhead.
	ToolReserve int
	// Tiers configures each memory tier. Tiers not present use zero
	// values (unbounded max, no floor, not compressible).
	Tiers map[Tier]TierConfig
	// RecentTurnsCount is the number of trailing user/assistant
	// exchanges pinned in the recent tier; they are never evicted
	// regardless of token pressure.
	RecentTurnsCount int
	// CompressionThreshold is the fraction of Available() at which the
	// budget planner starts compressing compressible tiers. 0 < t <= 1.
	CompressionThreshold float64
	// EvictionThreshold is the fraction of Available() at which the
	// budget planner starts evicting messages outright. t <= 1.
	EvictionThreshold float64
}

// Available returns the tokens left for the request body after
// reservations are subtracted from the ceiling.
func (b BudgetDescriptor) Available() int {
	available := b.Ceiling - b.ResponseReserve - b.ToolReserve
	if available < 0 {
		return 0
	}
	return available
}

// TierConfigFor returns the configuration for a tier, or a zero-value
// config if none was set.
func (b BudgetDescriptor) TierConfigFor(tier Tier) TierConfig {
	if b.Tiers == nil {
		return TierConfig{}
	}
	return b.Tiers[tier]
}
