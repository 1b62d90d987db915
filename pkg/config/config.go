// Package config defines the session configuration schema: the budget,
// loop, and hooks settings a host assembles a runtime session from. It
// loads YAML through koanf and validates eagerly at construction —
// invalid configuration never clamps silently, it fails to load.
package config

import (
	"fmt"

	"github.com/kadirpekel/agentrt/pkg/contextstore"
)

// TierConfig mirrors contextstore.TierConfig in its YAML-facing form.
type TierConfig struct {
	MaxTokens         int     `yaml:"max_tokens"`
	MinTokens         int     `yaml:"min_tokens"`
	Compressible      bool    `yaml:"compressible"`
	CompressionTarget float64 `yaml:"compression_target,omitempty"`
}

// BudgetConfig is the YAML-facing form of contextstore.BudgetDescriptor.
type BudgetConfig struct {
	Ceiling              int                   `yaml:"ceiling"`
	ResponseReserve      int                   `yaml:"response_reserve"`
	ToolReserve          int                   `yaml:"tool_reserve"`
	Tiers                map[string]TierConfig `yaml:"tiers,omitempty"`
	RecentTurnsCount     int                   `yaml:"recent_turns_count"`
	CompressionThreshold float64               `yaml:"compression_threshold"`
	EvictionThreshold    float64               `yaml:"eviction_threshold"`
}

// LoopConfig is the YAML-facing form of agentic.Config.
type LoopConfig struct {
	MaxIterations      int `yaml:"max_iterations"`
	PerTurnTimeoutMs   int `yaml:"per_turn_timeout_ms,omitempty"`
	RetriesPerToolCall int `yaml:"retries_per_tool_call"`
}

// HooksConfig is the YAML-facing form of hooks.Manager construction
// options.
type HooksConfig struct {
	MetricsBufferSize int  `yaml:"metrics_buffer_size"`
	TrackMetrics      bool `yaml:"track_metrics"`
}

// SessionConfig is the root configuration for one agentic session.
type SessionConfig struct {
	Budget BudgetConfig `yaml:"budget"`
	Loop   LoopConfig   `yaml:"loop"`
	Hooks  HooksConfig  `yaml:"hooks"`
}

// minBudgetCeiling is the smallest token ceiling a session can run with;
// below it there's no realistic room for reserves plus a usable tier.
const minBudgetCeiling = 1024

var knownTiers = map[string]contextstore.Tier{
	"system":    contextstore.TierSystem,
	"tools":     contextstore.TierTools,
	"resources": contextstore.TierResources,
	"recent":    contextstore.TierRecent,
	"archived":  contextstore.TierArchived,
	"ephemeral": contextstore.TierEphemeral,
}

// Validate checks SessionConfig eagerly and exhaustively: every error
// found is returned together, never just the first, and nothing is
// clamped to a default in place of rejecting the value.
func (c SessionConfig) Validate() error {
	var errs []error

	if c.Budget.Ceiling < minBudgetCeiling {
		errs = append(errs, fmt.Errorf("budget.ceiling must be >= %d, got %d", minBudgetCeiling, c.Budget.Ceiling))
	}
	if c.Budget.ResponseReserve < 0 {
		errs = append(errs, fmt.Errorf("budget.response_reserve must be >= 0, got %d", c.Budget.ResponseReserve))
	}
	if c.Budget.ToolReserve < 0 {
		errs = append(errs, fmt.Errorf("budget.tool_reserve must be >= 0, got %d", c.Budget.ToolReserve))
	}
	if c.Budget.Ceiling-c.Budget.ResponseReserve-c.Budget.ToolReserve <= 0 {
		errs = append(errs, fmt.Errorf("budget.ceiling leaves no room after response_reserve+tool_reserve (%d - %d - %d <= 0)",
			c.Budget.Ceiling, c.Budget.ResponseReserve, c.Budget.ToolReserve))
	}
	if c.Budget.RecentTurnsCount < 0 {
		errs = append(errs, fmt.Errorf("budget.recent_turns_count must be >= 0, got %d", c.Budget.RecentTurnsCount))
	}
	if c.Budget.CompressionThreshold <= 0 || c.Budget.CompressionThreshold > 1 {
		errs = append(errs, fmt.Errorf("budget.compression_threshold must be in (0, 1], got %v", c.Budget.CompressionThreshold))
	}
	if c.Budget.EvictionThreshold <= 0 || c.Budget.EvictionThreshold > 1 {
		errs = append(errs, fmt.Errorf("budget.eviction_threshold must be in (0, 1], got %v", c.Budget.EvictionThreshold))
	}
	if c.Budget.EvictionThreshold < c.Budget.CompressionThreshold {
		errs = append(errs, fmt.Errorf("budget.eviction_threshold (%v) must be >= budget.compression_threshold (%v)",
			c.Budget.EvictionThreshold, c.Budget.CompressionThreshold))
	}
	for name, tier := range c.Budget.Tiers {
		if _, ok := knownTiers[name]; !ok {
			errs = append(errs, fmt.Errorf("budget.tiers: unknown tier %q", name))
			continue
		}
		if tier.MinTokens > tier.MaxTokens && tier.MaxTokens != 0 {
			errs = append(errs, fmt.Errorf("budget.tiers.%s: min_tokens (%d) exceeds max_tokens (%d)", name, tier.MinTokens, tier.MaxTokens))
		}
		if tier.CompressionTarget < 0 || tier.CompressionTarget > 1 {
			errs = append(errs, fmt.Errorf("budget.tiers.%s: compression_target must be in [0, 1], got %v", name, tier.CompressionTarget))
		}
	}

	if c.Loop.MaxIterations <= 0 {
		errs = append(errs, fmt.Errorf("loop.max_iterations must be > 0, got %d", c.Loop.MaxIterations))
	}
	if c.Loop.PerTurnTimeoutMs < 0 {
		errs = append(errs, fmt.Errorf("loop.per_turn_timeout_ms must be >= 0, got %d", c.Loop.PerTurnTimeoutMs))
	}
	if c.Loop.RetriesPerToolCall < 0 {
		errs = append(errs, fmt.Errorf("loop.retries_per_tool_call must be >= 0, got %d", c.Loop.RetriesPerToolCall))
	}

	if c.Hooks.MetricsBufferSize < 0 {
		errs = append(errs, fmt.Errorf("hooks.metrics_buffer_size must be >= 0, got %d", c.Hooks.MetricsBufferSize))
	}

	return joinErrors(errs)
}

// ToBudgetDescriptor converts the validated YAML-facing budget config
// into the contextstore type. Callers must call Validate first; this
// does not re-validate.
func (c SessionConfig) ToBudgetDescriptor() contextstore.BudgetDescriptor {
	tiers := make(map[contextstore.Tier]contextstore.TierConfig, len(c.Budget.Tiers))
	for name, tier := range c.Budget.Tiers {
		t, ok := knownTiers[name]
		if !ok {
			continue
		}
		tiers[t] = contextstore.TierConfig{
			MaxTokens:         tier.MaxTokens,
			MinTokens:         tier.MinTokens,
			Compressible:      tier.Compressible,
			CompressionTarget: tier.CompressionTarget,
		}
	}
	return contextstore.BudgetDescriptor{
		Ceiling:              c.Budget.Ceiling,
		ResponseReserve:      c.Budget.ResponseReserve,
		ToolReserve:          c.Budget.ToolReserve,
		Tiers:                tiers,
		RecentTurnsCount:     c.Budget.RecentTurnsCount,
		CompressionThreshold: c.Budget.CompressionThreshold,
		EvictionThreshold:    c.Budget.EvictionThreshold,
	}
}

// Default returns a SessionConfig matching agentic.DefaultConfig and a
// reasonable default budget, for hosts that don't supply YAML.
func Default() SessionConfig {
	return SessionConfig{
		Budget: BudgetConfig{
			Ceiling:              32000,
			ResponseReserve:      1024,
			ToolReserve:          512,
			RecentTurnsCount:     5,
			CompressionThreshold: 0.8,
			EvictionThreshold:    0.95,
			Tiers: map[string]TierConfig{
				"ephemeral": {MaxTokens: 4000, Compressible: true, CompressionTarget: 0.3},
				"archived":  {MaxTokens: 8000, Compressible: true, CompressionTarget: 0.5},
				"resources": {MaxTokens: 6000, Compressible: true, CompressionTarget: 0.5},
			},
		},
		Loop: LoopConfig{
			MaxIterations:      10,
			RetriesPerToolCall: 3,
		},
		Hooks: HooksConfig{
			MetricsBufferSize: 256,
			TrackMetrics:      true,
		},
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	msg := fmt.Sprintf("%d configuration error(s):", len(errs))
	for _, e := range errs {
		msg += "\n  - " + e.Error()
	}
	return fmt.Errorf("%s", msg)
}
