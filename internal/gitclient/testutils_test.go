package gitclient

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"mcp-local-repo-analyzer/internal/logging"

	git "github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/config"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/object"
)

func newTestClient() *Client {
	logger, _ := logging.NewTestLogger()
	return New(Options{Logger: logger})
}

func signature(name string, when time.Time) *object.Signature {
	return &object.Signature{
		Name:  name,
		Email: name + "@example.com",
		When:  when,
	}
}

// createRepo initializes a repository on "main" with a committed README.md.
func createRepo(t *testing.T) string {
	t.Helper()

	repoPath := t.TempDir()
	if _, err := git.PlainInit(repoPath, false, git.WithDefaultBranch(plumbing.NewBranchReferenceName("main"))); err != nil {
		t.Fatalf("failed to init repo: %v", err)
	}

	writeFile(t, repoPath, "README.md", "initial\n")
	commitAll(t, repoPath, "initial commit", signature("test", time.Now()))
	return repoPath
}

func writeFile(t *testing.T, repoPath, rel, content string) {
	t.Helper()

	full := filepath.Join(repoPath, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("failed to create dir for %s: %v", rel, err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", rel, err)
	}
}

func stage(t *testing.T, repoPath string, paths ...string) {
	t.Helper()

	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		t.Fatalf("failed to open repo: %v", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}
	for _, p := range paths {
		if _, err := worktree.Add(p); err != nil {
			t.Fatalf("failed to add %s: %v", p, err)
		}
	}
}

// commitAll stages every change and commits it. Returns the commit hash.
func commitAll(t *testing.T, repoPath, message string, author *object.Signature) plumbing.Hash {
	t.Helper()

	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		t.Fatalf("failed to open repo: %v", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}
	if err := worktree.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		t.Fatalf("failed to stage changes: %v", err)
	}
	hash, err := worktree.Commit(message, &git.CommitOptions{Author: author})
	if err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
	return hash
}

func checkout(t *testing.T, repoPath, branch string, create bool) {
	t.Helper()

	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		t.Fatalf("failed to open repo: %v", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}
	if err := worktree.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Create: create,
	}); err != nil {
		t.Fatalf("failed to checkout %s: %v", branch, err)
	}
}

// createBareRemoteRepo initializes a bare repository usable as a local "origin".
func createBareRemoteRepo(t *testing.T) string {
	t.Helper()

	remotePath := t.TempDir()
	if _, err := git.PlainInit(remotePath, true); err != nil {
		t.Fatalf("failed to init bare repo: %v", err)
	}
	return remotePath
}

// pushToOrigin pushes the given branch to the origin remote.
func pushToOrigin(t *testing.T, repoPath string, branch string) {
	t.Helper()

	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		t.Fatalf("failed to open repo: %v", err)
	}

	ref := plumbing.NewBranchReferenceName(branch).String()
	if err := repo.Push(&git.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []config.RefSpec{config.RefSpec(ref + ":" + ref)},
	}); err != nil && err != git.NoErrAlreadyUpToDate {
		t.Fatalf("failed to push to origin: %v", err)
	}
}

// createOriginAndClone returns (upstreamPath, clonePath): a working repo that
// pushes main to a bare origin, and a fresh clone of that origin.
func createOriginAndClone(t *testing.T) (string, string) {
	t.Helper()

	originPath := createBareRemoteRepo(t)
	upstreamPath := createRepo(t)

	repo, err := git.PlainOpen(upstreamPath)
	if err != nil {
		t.Fatalf("failed to open repo: %v", err)
	}
	if _, err := repo.CreateRemote(&config.RemoteConfig{
		Name: "origin",
		URLs: []string{originPath},
	}); err != nil {
		t.Fatalf("failed to add origin remote: %v", err)
	}
	pushToOrigin(t, upstreamPath, "main")

	clonePath := t.TempDir()
	if _, err := git.PlainClone(clonePath, &git.CloneOptions{
		URL:           originPath,
		ReferenceName: plumbing.NewBranchReferenceName("main"),
	}); err != nil {
		t.Fatalf("failed to clone from origin: %v", err)
	}

	return upstreamPath, clonePath
}
