package gitclient

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/format/gitignore"
)

// Status codes as reported for the index and the working tree.
const (
	CodeUnmodified byte = ' '
	CodeUntracked  byte = '?'
	CodeModified   byte = 'M'
	CodeAdded      byte = 'A'
	CodeDeleted    byte = 'D'
	CodeRenamed    byte = 'R'
	CodeCopied     byte = 'C'
	CodeUnmerged   byte = 'U'
)

// Entry is the status of one changed path.
type Entry struct {
	Path     string
	Index    byte
	Worktree byte
	OldPath  string
}

// IsUntracked reports whether the path is unknown to the index.
func (e Entry) IsUntracked() bool {
	return e.Index == CodeUntracked || e.Worktree == CodeUntracked
}

// HasIndexChange reports whether the index differs from HEAD for this path.
func (e Entry) HasIndexChange() bool {
	return e.Index != CodeUnmodified && e.Index != 0 && !e.IsUntracked()
}

// HasWorktreeChange reports whether the working tree differs from the index.
func (e Entry) HasWorktreeChange() bool {
	return e.Worktree != CodeUnmodified && e.Worktree != 0
}

// Status returns one entry per changed path, sorted by path. Concurrent
// calls for the same root share a single scan of the working tree.
func (c *Client) Status(ctx context.Context, root string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v, err, shared := c.statusGroup.Do(root, func() (interface{}, error) {
		return c.status(root)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("Shared status scan", "root", root)
	}

	// callers may modify their slice
	return slices.Clone(v.([]Entry)), nil
}

func (c *Client) status(root string) ([]Entry, error) {
	repo, err := openRepo(root)
	if err != nil {
		return nil, err
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get working tree: %w", err)
	}

	st, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to get repository status: %w", err)
	}

	entries := make([]Entry, 0, len(st))
	for path, fileStatus := range st {
		if fileStatus.Staging == git.Unmodified && fileStatus.Worktree == git.Unmodified {
			continue
		}
		e := Entry{
			Path:     path,
			Index:    byte(fileStatus.Staging),
			Worktree: byte(fileStatus.Worktree),
		}
		if e.Index == CodeRenamed || e.Worktree == CodeRenamed {
			e.OldPath = fileStatus.Extra
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// IgnoredFiles lists paths excluded by .gitignore rules. Ignored directories
// are reported once with a trailing slash and not descended into.
func (c *Client) IgnoredFiles(ctx context.Context, root string) ([]string, error) {
	repo, err := openRepo(root)
	if err != nil {
		return nil, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get working tree: %w", err)
	}

	patterns, err := gitignore.ReadPatterns(wt.Filesystem, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read ignore patterns: %w", err)
	}
	patterns = append(patterns, wt.Excludes...)
	matcher := gitignore.NewMatcher(patterns)

	var ignored []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}

		parts := strings.Split(filepath.ToSlash(rel), "/")
		if !matcher.Match(parts, d.IsDir()) {
			return nil
		}

		if d.IsDir() {
			ignored = append(ignored, filepath.ToSlash(rel)+"/")
			return filepath.SkipDir
		}
		ignored = append(ignored, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan for ignored files: %w", err)
	}

	return ignored, nil
}
