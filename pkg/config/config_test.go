package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidateRejectsZeroCeiling(t *testing.T) {
	cfg := Default()
	cfg.Budget.Ceiling = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "budget.ceiling")
}

func TestValidateRejectsReservesExceedingCeiling(t *testing.T) {
	cfg := Default()
	cfg.Budget.Ceiling = 100
	cfg.Budget.ResponseReserve = 60
	cfg.Budget.ToolReserve = 60
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leaves no room")
}

func TestValidateRejectsEvictionBelowCompressionThreshold(t *testing.T) {
	cfg := Default()
	cfg.Budget.CompressionThreshold = 0.9
	cfg.Budget.EvictionThreshold = 0.5
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "eviction_threshold")
}

func TestValidateRejectsUnknownTier(t *testing.T) {
	cfg := Default()
	cfg.Budget.Tiers["bogus"] = TierConfig{MaxTokens: 100}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown tier")
}

func TestValidateCollectsMultipleErrors(t *testing.T) {
	cfg := SessionConfig{}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "budget.ceiling")
	assert.Contains(t, err.Error(), "loop.max_iterations")
}

func TestToBudgetDescriptorCarriesFields(t *testing.T) {
	cfg := Default()
	desc := cfg.ToBudgetDescriptor()
	assert.Equal(t, cfg.Budget.Ceiling, desc.Ceiling)
	assert.Equal(t, cfg.Budget.RecentTurnsCount, desc.RecentTurnsCount)
	assert.Len(t, desc.Tiers, len(cfg.Budget.Tiers))
}

func TestLoadBytesParsesYAMLAndOverridesDefaults(t *testing.T) {
	yamlDoc := []byte(`
budget:
  ceiling: 64000
  response_reserve: 2048
  tool_reserve: 1024
  recent_turns_count: 8
  compression_threshold: 0.75
  eviction_threshold: 0.9
loop:
  max_iterations: 20
  retries_per_tool_call: 5
hooks:
  metrics_buffer_size: 512
  track_metrics: false
`)
	cfg, err := LoadBytes(yamlDoc)
	require.NoError(t, err)
	assert.Equal(t, 64000, cfg.Budget.Ceiling)
	assert.Equal(t, 20, cfg.Loop.MaxIterations)
	assert.False(t, cfg.Hooks.TrackMetrics)
}

func TestLoadBytesRejectsInvalidDocument(t *testing.T) {
	yamlDoc := []byte(`
budget:
  ceiling: -1
loop:
  max_iterations: 0
`)
	_, err := LoadBytes(yamlDoc)
	require.Error(t, err)
}
