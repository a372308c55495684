package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadUsesDefaultsWithoutConfigFile(t *testing.T) {
	viper.Reset()
	t.Setenv("BOOKRESTORE_RASTERIZE_DPI", "")
	loader := NewLoader()
	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.Rasterize.DPI)
	assert.True(t, cfg.External.Upscale)
	assert.True(t, cfg.External.Deskew)
	assert.True(t, cfg.External.GPU)
	assert.Equal(t, 0.5, cfg.Features.MarginTrimPct)
	assert.Equal(t, 3508, cfg.Finalize.OutputHeight)
}

func TestEnvironmentVariableOverridesDefault(t *testing.T) {
	viper.Reset()
	t.Setenv("BOOKRESTORE_RASTERIZE_DPI", "600")
	loader := NewLoader()
	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, 600, cfg.Rasterize.DPI)
}

func TestApplyAdvancedEnablesThreeFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Features.Advanced = true
	cfg.ApplyAdvanced()
	assert.True(t, cfg.Rasterize.NormalizeToInternal)
	assert.True(t, cfg.Features.ColorCorrection)
	assert.True(t, cfg.Features.OffsetAlignment)
	assert.Equal(t, 3508, cfg.Finalize.OutputHeight)
}

func TestApplyAdvancedNoopWhenDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ApplyAdvanced()
	assert.False(t, cfg.Rasterize.NormalizeToInternal)
	assert.False(t, cfg.Features.ColorCorrection)
}
