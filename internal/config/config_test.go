package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromFileLoadsExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"llm:\n  provider: gemini\npipeline:\n  top_k: 7\n"), 0644))

	cfg, err := NewFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.GetViper().ConfigFileUsed())
	assert.Equal(t, "gemini", cfg.GetLLM().Provider)
	assert.Equal(t, 7, cfg.GetPipelineOptions().TopK)

	// Keys the file leaves out still carry their defaults
	assert.Equal(t, "taployaltylarge", cfg.GetPinecone().IndexName)
}

func TestNewFromFileMissingFile(t *testing.T) {
	_, err := NewFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
