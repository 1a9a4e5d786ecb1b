// Package gitclient reads local git repositories through go-git. It never
// shells out to a git binary and never writes to the repositories it opens;
// Fetch is the only operation that touches the network or updates refs.
package gitclient

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"mcp-local-repo-analyzer/internal/logging"
	"mcp-local-repo-analyzer/internal/model"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrNotRepository is returned when no repository encloses a path.
	ErrNotRepository = errors.New("no git repository found")
	// ErrNoUpstream is returned when a branch has no upstream to compare with.
	ErrNoUpstream = errors.New("no upstream branch configured")
)

// DefaultMaxFileSize is the size above which file contents are not read and
// the file is reported as binary.
const DefaultMaxFileSize int64 = 1 << 20

// Options configures a Client.
type Options struct {
	MaxFileSize int64
	Logger      *logging.AppLogger
}

// Client provides read access to repositories on the local filesystem.
// It is safe for concurrent use.
type Client struct {
	maxFileSize int64
	logger      *logging.AppLogger
	statusGroup singleflight.Group
}

// New creates a Client. Zero options fall back to defaults.
func New(opts Options) *Client {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if opts.Logger == nil {
		opts.Logger = logging.GetDefault()
	}
	return &Client{
		maxFileSize: opts.MaxFileSize,
		logger:      opts.Logger,
	}
}

// Open resolves path to the root of the repository enclosing it, walking
// upward through parent directories.
//
// Returns an error wrapping ErrNotRepository when no repository is found.
func (c *Client) Open(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cannot resolve path %s: %w", path, err)
	}

	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) || errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w at or above %s", ErrNotRepository, abs)
		}
		return "", fmt.Errorf("failed to open repository at %s: %w", abs, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		// bare repositories have no working tree to analyze
		return "", fmt.Errorf("%w at or above %s: %v", ErrNotRepository, abs, err)
	}

	root := wt.Filesystem.Root()
	c.logger.Debug("Resolved repository root", "path", abs, "root", root)
	return root, nil
}

func openRepo(root string) (*git.Repository, error) {
	repo, err := git.PlainOpen(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository %s: %w", root, err)
	}
	return repo, nil
}

// Info describes the repository at root: name, current branch, head commit,
// remote URL and whether the working tree is dirty.
func (c *Client) Info(ctx context.Context, root string) (model.LocalRepository, error) {
	repo, err := openRepo(root)
	if err != nil {
		return model.LocalRepository{}, err
	}

	info := model.LocalRepository{
		Path: root,
		Name: filepath.Base(root),
	}

	branch, _, err := currentBranch(repo)
	if err != nil {
		return info, err
	}
	info.CurrentBranch = branch

	if head, err := repo.Head(); err == nil {
		info.HeadCommit = head.Hash().String()
	}

	info.RemoteURL = remoteURL(repo, "origin")

	entries, err := c.Status(ctx, root)
	if err != nil {
		return info, err
	}
	info.IsDirty = len(entries) > 0

	return info, nil
}

// currentBranch returns the checked out branch name, or "HEAD" when detached.
// An unborn branch (no commits yet) still reports its name.
func currentBranch(repo *git.Repository) (string, bool, error) {
	head, err := repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return "", false, fmt.Errorf("failed to read HEAD: %w", err)
	}

	if head.Type() == plumbing.SymbolicReference {
		return head.Target().Short(), false, nil
	}
	return "HEAD", true, nil
}

// remoteURL returns the first URL of the named remote, falling back to any
// configured remote.
func remoteURL(repo *git.Repository, name string) string {
	cfg, err := repo.Config()
	if err != nil {
		return ""
	}
	if r, ok := cfg.Remotes[name]; ok && len(r.URLs) > 0 {
		return r.URLs[0]
	}
	for _, r := range cfg.Remotes {
		if len(r.URLs) > 0 {
			return r.URLs[0]
		}
	}
	return ""
}

// gitDir returns the .git directory of the worktree at root, following
// "gitdir:" files used by linked worktrees and submodules.
func gitDir(root string) (string, error) {
	dotGit := filepath.Join(root, ".git")
	info, err := os.Stat(dotGit)
	if err != nil {
		return "", fmt.Errorf("cannot stat %s: %w", dotGit, err)
	}
	if info.IsDir() {
		return dotGit, nil
	}

	data, err := os.ReadFile(dotGit)
	if err != nil {
		return "", fmt.Errorf("cannot read %s: %w", dotGit, err)
	}
	line := strings.TrimSpace(string(data))
	target, ok := strings.CutPrefix(line, "gitdir:")
	if !ok {
		return "", fmt.Errorf("malformed .git file in %s", root)
	}
	target = strings.TrimSpace(target)
	if !filepath.IsAbs(target) {
		target = filepath.Join(root, target)
	}
	return target, nil
}
