package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datapipe/internal/errors"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"DB_USER", "DB_PASS", "DB_HOST", "DB_PORT", "ANTHROPIC_API_KEY", "LLM_MODEL",
		"PROFILE_SAMPLE_SIZE", "PROFILE_CHUNK_SIZE", "PIPELINE_CONCURRENCY", "DATA_DIR",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, DefaultModel, cfg.AI.Model)
	assert.Equal(t, 1024, cfg.AI.MaxTokens)
	assert.Equal(t, 10, cfg.Profiling.SampleSize)
	assert.Equal(t, 10000*1024, cfg.Profiling.ChunkSize)
	assert.Equal(t, "dataset", cfg.Paths.DataDir)
	assert.Equal(t, 4, cfg.Pipeline.Concurrency)
	assert.True(t, cfg.Pipeline.Visualize)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_PORT", "6543")
	t.Setenv("PROFILE_CHUNK_SIZE", "2048")
	t.Setenv("LLM_TIMEOUT", "5s")
	t.Setenv("VISUALIZE", "false")
	t.Setenv("DB_PORT_IGNORED", "x")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, 2048, cfg.Profiling.ChunkSize)
	assert.Equal(t, 5*time.Second, cfg.AI.Timeout)
	assert.False(t, cfg.Pipeline.Visualize)
}

func TestLoadRejectsNonPositiveSizes(t *testing.T) {
	t.Setenv("PROFILE_SAMPLE_SIZE", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")

	cfg.AI.AnthropicKey = "key"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_PASS")

	cfg.Database.Password = "secret"
	assert.NoError(t, cfg.Validate())
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{User: "etl", Password: "p@ss", Host: "db", Port: 5433, SSLMode: "disable"}
	assert.Equal(t, "postgres://etl:p%40ss@db:5433/sales?sslmode=disable", d.DSN("sales"))
}
