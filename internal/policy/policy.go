// Package policy loads the optional per-repository review policy, a
// Markdown file at the repository root whose YAML front matter tunes the
// analyzer and whose body is shown to reviewers as notes.
//
//	---
//	critical_patterns: ["schema.sql", "deploy/*"]
//	large_change_threshold: 200
//	---
//	Ping #infra before touching deploy manifests.
package policy

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"mcp-local-repo-analyzer/internal/config"
	"mcp-local-repo-analyzer/pkg/fileops"

	"github.com/adrg/frontmatter"
)

// FileName is the policy file looked up at the repository root.
const FileName = ".repo-analyzer.md"

// MaxFileSize bounds the policy file read from a repository.
const MaxFileSize int64 = 64 << 10

// Policy is a parsed policy file. Zero thresholds leave the configured
// values unchanged.
type Policy struct {
	CriticalPatterns       []string `yaml:"critical_patterns"`
	SensitivePatterns      []string `yaml:"sensitive_patterns"`
	LargeChangeThreshold   int      `yaml:"large_change_threshold"`
	ManyFilesThreshold     int      `yaml:"many_files_threshold"`
	MassiveChangeThreshold int      `yaml:"massive_change_threshold"`
	ConflictLineThreshold  int      `yaml:"conflict_line_threshold"`

	// ReviewNotes is the Markdown body after the front matter.
	ReviewNotes string `yaml:"-"`
	Path        string `yaml:"-"`
}

// Load reads the policy file of the repository at root. It returns nil and
// no error when the repository has no policy file.
func Load(root string) (*Policy, error) {
	path := filepath.Join(root, FileName)

	if _, err := os.Lstat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot access policy file: %w", err)
	}
	if err := fileops.ValidateWithinDirectory(path, root); err != nil {
		return nil, fmt.Errorf("invalid policy file: %w", err)
	}
	if err := fileops.ValidateFileSizeLimit(path, MaxFileSize); err != nil {
		return nil, fmt.Errorf("invalid policy file: %w", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	return Parse(content, path)
}

// Parse decodes policy content. Content without front matter is all notes.
func Parse(content []byte, path string) (*Policy, error) {
	var p Policy
	body, err := frontmatter.Parse(bytes.NewReader(content), &p)
	if err != nil {
		return nil, fmt.Errorf("failed to parse policy front matter in %s: %w", path, err)
	}

	for _, v := range []int{p.LargeChangeThreshold, p.ManyFilesThreshold, p.MassiveChangeThreshold, p.ConflictLineThreshold} {
		if v < 0 {
			return nil, fmt.Errorf("invalid policy %s: thresholds cannot be negative", path)
		}
	}

	p.ReviewNotes = strings.TrimSpace(string(body))
	p.Path = path
	return &p, nil
}

// Apply returns cfg with the policy's patterns appended and its non-zero
// thresholds substituted. A nil policy returns cfg unchanged.
func (p *Policy) Apply(cfg config.AnalyzerConfig) config.AnalyzerConfig {
	if p == nil {
		return cfg
	}

	cfg.CriticalPatterns = appendNew(cfg.CriticalPatterns, p.CriticalPatterns)
	cfg.SensitivePatterns = appendNew(cfg.SensitivePatterns, p.SensitivePatterns)

	if p.LargeChangeThreshold > 0 {
		cfg.LargeChangeThreshold = p.LargeChangeThreshold
	}
	if p.ManyFilesThreshold > 0 {
		cfg.ManyFilesThreshold = p.ManyFilesThreshold
	}
	if p.MassiveChangeThreshold > 0 {
		cfg.MassiveChangeThreshold = p.MassiveChangeThreshold
	}
	if p.ConflictLineThreshold > 0 {
		cfg.ConflictLineThreshold = p.ConflictLineThreshold
	}
	return cfg
}

// appendNew returns a fresh slice so the caller's defaults are never aliased.
func appendNew(base, extra []string) []string {
	out := make([]string, 0, len(base)+len(extra))
	seen := make(map[string]bool, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, s := range list {
			key := strings.ToLower(strings.TrimSpace(s))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, s)
		}
	}
	return out
}
