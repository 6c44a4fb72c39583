package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundloom/soundloom/internal/config"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 48000, cfg.SampleRate)
	assert.Equal(t, 30, cfg.RecordSeconds)
	assert.Equal(t, config.EngineSynth, cfg.Engine)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SAMPLE_RATE", "32000")
	t.Setenv("RECORD_SECONDS", "10")
	t.Setenv("ENGINE", "openai")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 32000, cfg.SampleRate)
	assert.Equal(t, config.EngineOpenAI, cfg.Engine)
	assert.Equal(t, 320000, cfg.RingCapacity())
}

func TestLoadConfigRejectsUnknownEngine(t *testing.T) {
	t.Setenv("ENGINE", "thermionic")

	_, err := config.LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "thermionic")
}
