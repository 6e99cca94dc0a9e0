package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 80, cfg.Dedup.SimilarityThreshold)
	assert.Equal(t, 90, cfg.Dedup.LookbackDays)
	assert.Equal(t, "1000000", cfg.MaxAmountDecimal().String())
	assert.Equal(t, 50, cfg.Pipeline.MaxErrors)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Empty(t, cfg.Database.Path)
}

func TestLoadPrecedence(t *testing.T) {
	path := writeFile(t, "statement-ingest.yaml", `
log:
  level: debug
dedup:
  similarity_threshold: 85
  lookback_days: 30
validation:
  max_amount: "50000.00"
`)

	t.Run("file", func(t *testing.T) {
		cfg, err := Load(path, nil)
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.Equal(t, 85, cfg.Dedup.SimilarityThreshold)
		assert.Equal(t, 30, cfg.Dedup.LookbackDays)
		assert.Equal(t, "50000", cfg.MaxAmountDecimal().String())
	})

	t.Run("env over file", func(t *testing.T) {
		t.Setenv("INGEST_DEDUP_LOOKBACK_DAYS", "45")
		cfg, err := Load(path, nil)
		require.NoError(t, err)
		assert.Equal(t, 45, cfg.Dedup.LookbackDays)
		assert.Equal(t, 85, cfg.Dedup.SimilarityThreshold)
	})

	t.Run("flag over env", func(t *testing.T) {
		t.Setenv("INGEST_DEDUP_LOOKBACK_DAYS", "45")
		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.Int("lookback", 90, "")
		flags.String("db", "", "")
		require.NoError(t, flags.Parse([]string{"--lookback", "7", "--db", "ingest.db"}))

		cfg, err := Load(path, flags)
		require.NoError(t, err)
		assert.Equal(t, 7, cfg.Dedup.LookbackDays)
		assert.Equal(t, "ingest.db", cfg.Database.Path)
	})
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"threshold above 100", "dedup:\n  similarity_threshold: 120\n"},
		{"zero lookback", "dedup:\n  lookback_days: 0\n"},
		{"bad ceiling", "validation:\n  max_amount: lots\n"},
		{"no workers", "pipeline:\n  workers: 0\n"},
		{"not yaml", "dedup: [unclosed\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "statement-ingest.yaml", tt.content), nil)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	path := writeFile(t, ".env", "INGEST_TEST_DOTENV=from-file\n")
	t.Cleanup(func() { os.Unsetenv("INGEST_TEST_DOTENV") })

	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("INGEST_TEST_DOTENV"))

	assert.NoError(t, loadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
}
