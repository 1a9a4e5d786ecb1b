// Package gittest builds throwaway git repositories for tests in other
// packages. Every helper fails the test on error.
package gittest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/config"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/object"
)

// Signature returns an author named name with an example.com address.
func Signature(name string, when time.Time) *object.Signature {
	return &object.Signature{Name: name, Email: name + "@example.com", When: when}
}

func open(t testing.TB, repoPath string) (*git.Repository, *git.Worktree) {
	t.Helper()

	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		t.Fatalf("failed to open repo: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}
	return repo, wt
}

// NewRepo initializes a repository on "main" with a committed README.md.
func NewRepo(t testing.TB) string {
	t.Helper()

	repoPath := t.TempDir()
	if _, err := git.PlainInit(repoPath, false, git.WithDefaultBranch(plumbing.NewBranchReferenceName("main"))); err != nil {
		t.Fatalf("failed to init repo: %v", err)
	}

	WriteFile(t, repoPath, "README.md", "initial\n")
	CommitAll(t, repoPath, "initial commit", Signature("test", time.Now()))
	return repoPath
}

func WriteFile(t testing.TB, repoPath, rel, content string) {
	t.Helper()

	full := filepath.Join(repoPath, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("failed to create dir for %s: %v", rel, err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", rel, err)
	}
}

func RemoveFile(t testing.TB, repoPath, rel string) {
	t.Helper()

	if err := os.Remove(filepath.Join(repoPath, filepath.FromSlash(rel))); err != nil {
		t.Fatalf("failed to remove %s: %v", rel, err)
	}
}

// Stage adds paths to the index.
func Stage(t testing.TB, repoPath string, paths ...string) {
	t.Helper()

	_, wt := open(t, repoPath)
	for _, p := range paths {
		if _, err := wt.Add(p); err != nil {
			t.Fatalf("failed to add %s: %v", p, err)
		}
	}
}

// CommitAll stages every change and commits it.
func CommitAll(t testing.TB, repoPath, message string, author *object.Signature) plumbing.Hash {
	t.Helper()

	_, wt := open(t, repoPath)
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		t.Fatalf("failed to stage changes: %v", err)
	}
	hash, err := wt.Commit(message, &git.CommitOptions{Author: author})
	if err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
	return hash
}

func Checkout(t testing.TB, repoPath, branch string, create bool) {
	t.Helper()

	_, wt := open(t, repoPath)
	if err := wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Create: create,
		Keep:   true,
	}); err != nil {
		t.Fatalf("failed to checkout %s: %v", branch, err)
	}
}

// Push pushes branch to origin.
func Push(t testing.TB, repoPath, branch string) {
	t.Helper()

	repo, _ := open(t, repoPath)
	ref := plumbing.NewBranchReferenceName(branch).String()
	if err := repo.Push(&git.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []config.RefSpec{config.RefSpec(ref + ":" + ref)},
	}); err != nil && err != git.NoErrAlreadyUpToDate {
		t.Fatalf("failed to push %s: %v", branch, err)
	}
}

// NewClone creates a repository, pushes it to a bare origin and clones that
// origin. Returns (upstreamPath, clonePath); both push to the same origin.
func NewClone(t testing.TB) (string, string) {
	t.Helper()

	originPath := t.TempDir()
	if _, err := git.PlainInit(originPath, true); err != nil {
		t.Fatalf("failed to init bare repo: %v", err)
	}

	upstreamPath := NewRepo(t)
	repo, _ := open(t, upstreamPath)
	if _, err := repo.CreateRemote(&config.RemoteConfig{
		Name: "origin",
		URLs: []string{originPath},
	}); err != nil {
		t.Fatalf("failed to add origin remote: %v", err)
	}
	Push(t, upstreamPath, "main")

	clonePath := t.TempDir()
	if _, err := git.PlainClone(clonePath, &git.CloneOptions{
		URL:           originPath,
		ReferenceName: plumbing.NewBranchReferenceName("main"),
	}); err != nil {
		t.Fatalf("failed to clone origin: %v", err)
	}
	return upstreamPath, clonePath
}
