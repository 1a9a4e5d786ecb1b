package policy

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mcp-local-repo-analyzer/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePolicy(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644))
}

func TestLoad_Missing(t *testing.T) {
	p, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestLoad_FrontmatterAndNotes(t *testing.T) {
	dir := t.TempDir()
	writePolicy(t, dir, `---
critical_patterns: ["schema.sql", "deploy/*"]
sensitive_patterns: ["billing"]
large_change_threshold: 200
many_files_threshold: 40
---
Ping the infra team before touching deploy manifests.
`)

	p, err := Load(dir)
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.Equal(t, []string{"schema.sql", "deploy/*"}, p.CriticalPatterns)
	assert.Equal(t, []string{"billing"}, p.SensitivePatterns)
	assert.Equal(t, 200, p.LargeChangeThreshold)
	assert.Equal(t, 40, p.ManyFilesThreshold)
	assert.Equal(t, "Ping the infra team before touching deploy manifests.", p.ReviewNotes)
	assert.Equal(t, filepath.Join(dir, FileName), p.Path)
}

func TestLoad_NotesOnly(t *testing.T) {
	dir := t.TempDir()
	writePolicy(t, dir, "# Review\n\nKeep PRs small.\n")

	p, err := Load(dir)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Empty(t, p.CriticalPatterns)
	assert.Equal(t, "# Review\n\nKeep PRs small.", p.ReviewNotes)
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("bad yaml", func(t *testing.T) {
		dir := t.TempDir()
		writePolicy(t, dir, "---\ncritical_patterns: [unterminated\n---\nbody\n")
		_, err := Load(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse policy front matter")
	})

	t.Run("negative threshold", func(t *testing.T) {
		dir := t.TempDir()
		writePolicy(t, dir, "---\nlarge_change_threshold: -1\n---\n")
		_, err := Load(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "thresholds cannot be negative")
	})

	t.Run("too large", func(t *testing.T) {
		dir := t.TempDir()
		writePolicy(t, dir, strings.Repeat("x", int(MaxFileSize)+1))
		_, err := Load(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds limit")
	})
}

func TestApply(t *testing.T) {
	defaults := config.DefaultAnalyzerConfig()
	p := &Policy{
		CriticalPatterns:     []string{"schema.sql", "Dockerfile"},
		LargeChangeThreshold: 250,
	}

	cfg := p.Apply(defaults)

	assert.Equal(t, 250, cfg.LargeChangeThreshold)
	assert.Equal(t, defaults.ManyFilesThreshold, cfg.ManyFilesThreshold)
	assert.Contains(t, cfg.CriticalPatterns, "schema.sql")
	assert.Len(t, cfg.CriticalPatterns, len(defaults.CriticalPatterns)+1, "dockerfile is already a default")
	assert.NotContains(t, defaults.CriticalPatterns, "schema.sql", "defaults are not modified")

	var nilPolicy *Policy
	assert.Equal(t, defaults, nilPolicy.Apply(defaults))
}
