package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

func TestExpandEnv(t *testing.T) {
	t.Run("Should use env value when set", func(t *testing.T) {
		t.Setenv("BOOK_TEST_HOST", "db.internal")
		assert.Equal(t, "host: db.internal", expandEnv("host: ${BOOK_TEST_HOST:localhost}"))
	})

	t.Run("Should fall back to default", func(t *testing.T) {
		assert.Equal(t, "port: 5432", expandEnv("port: ${BOOK_TEST_UNSET_PORT:5432}"))
	})

	t.Run("Should keep placeholder without default", func(t *testing.T) {
		assert.Equal(t, "key: ${BOOK_TEST_UNSET}", expandEnv("key: ${BOOK_TEST_UNSET}"))
	})
}

func TestLoadFrom(t *testing.T) {
	t.Run("Should apply pipeline defaults", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "config.yaml", "app:\n  name: test-book\n")
		t.Setenv("APP_ENV", "test")

		cfg, err := LoadFrom(dir)
		require.NoError(t, err)

		assert.Equal(t, "test-book", cfg.App.Name)
		assert.Equal(t, 8000, cfg.Pipeline.TokenHardCap)
		assert.InDelta(t, 1.5, cfg.Pipeline.TokenMultiplier, 1e-9)
		assert.Equal(t, 30, cfg.Pipeline.MinChapters)
		assert.Equal(t, 4, cfg.Pipeline.ChaptersPerSyntheticPart)
		assert.Equal(t, 3000, cfg.Pipeline.DefaultEstimatedLength)
		assert.InDelta(t, 0.3, cfg.Pipeline.UnitResearch.Temperature, 1e-9)
		assert.Equal(t, 30*time.Second, cfg.Pipeline.ReferenceLockTTL)
		assert.Equal(t, 3, cfg.Messaging.RedisStream.RetryLimit)
	})

	t.Run("Should merge environment specific file", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "config.yaml", "pipeline:\n  token_hard_cap: 8000\n  min_chapters: 30\n")
		writeConfig(t, dir, "config.staging.yaml", "pipeline:\n  token_hard_cap: 4000\n")
		t.Setenv("APP_ENV", "staging")

		cfg, err := LoadFrom(dir)
		require.NoError(t, err)
		assert.Equal(t, 4000, cfg.Pipeline.TokenHardCap)
		assert.Equal(t, 30, cfg.Pipeline.MinChapters)
	})

	t.Run("Should fail when base file is missing", func(t *testing.T) {
		_, err := LoadFrom(t.TempDir())
		require.Error(t, err)
	})
}
