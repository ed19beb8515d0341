package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults apply without a file or environment", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, "qdrant", cfg.IndexBackend)
		assert.Equal(t, 1536, cfg.Dimension)
		assert.Equal(t, 1000, cfg.ChunkSize)
		assert.Equal(t, 200, cfg.ChunkOverlap)
		assert.Equal(t, 12, cfg.DefaultK)
		assert.InDelta(t, 0.2, cfg.ScoreThreshold, 1e-9)
		assert.Equal(t, 4000, cfg.MaxContextChars)
	})

	t.Run("yaml file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("port: \"9090\"\nindex_backend: memory\nchunk_size: 500\n"), 0o644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "9090", cfg.Port)
		assert.Equal(t, "memory", cfg.IndexBackend)
		assert.Equal(t, 500, cfg.ChunkSize)
	})

	t.Run("environment overrides the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("port: \"9090\"\n"), 0o644))
		t.Setenv("PORT", "7070")
		t.Setenv("SCORE_THRESHOLD", "0.5")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "7070", cfg.Port)
		assert.InDelta(t, 0.5, cfg.ScoreThreshold, 1e-9)
	})

	t.Run("missing file path is not an error", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.NoError(t, err)
	})
}
