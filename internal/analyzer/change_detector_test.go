package analyzer

import (
	"context"
	"testing"
	"time"

	"mcp-local-repo-analyzer/internal/gitclient"
	"mcp-local-repo-analyzer/internal/gittest"
	"mcp-local-repo-analyzer/internal/logging"
	"mcp-local-repo-analyzer/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDetector(t *testing.T) (*ChangeDetector, *gitclient.Client) {
	t.Helper()
	logger, _ := logging.NewTestLogger()
	client := gitclient.New(gitclient.Options{Logger: logger})
	return NewChangeDetector(client, logger), client
}

func paths(files []model.FileStatus) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

func TestDetectWorkingDirectoryChanges(t *testing.T) {
	repoPath := gittest.NewRepo(t)
	gittest.WriteFile(t, repoPath, "keep.txt", "one\n")
	gittest.WriteFile(t, repoPath, "drop.txt", "a\nb\n")
	gittest.CommitAll(t, repoPath, "add files", gittest.Signature("test", time.Now()))

	gittest.WriteFile(t, repoPath, "README.md", "initial\nmore\n")
	gittest.RemoveFile(t, repoPath, "drop.txt")
	gittest.WriteFile(t, repoPath, "new.go", "package x\n")
	gittest.WriteFile(t, repoPath, "staged.go", "package y\n\nfunc Y() {}\n")
	gittest.Stage(t, repoPath, "staged.go")

	cd, _ := newTestDetector(t)
	repo := model.LocalRepository{Path: repoPath, CurrentBranch: "main"}

	changes, err := cd.DetectWorkingDirectoryChanges(context.Background(), repo)
	require.NoError(t, err)

	assert.Equal(t, []string{"README.md"}, paths(changes.Modified))
	assert.Equal(t, []string{"staged.go"}, paths(changes.Added))
	assert.Equal(t, []string{"drop.txt"}, paths(changes.Deleted))
	assert.Equal(t, []string{"new.go"}, paths(changes.Untracked))
	assert.Empty(t, changes.Renamed)

	readme := changes.Modified[0]
	assert.Equal(t, 1, readme.LinesAdded)
	assert.False(t, readme.Staged)

	added := changes.Added[0]
	assert.True(t, added.Staged)
	assert.Equal(t, "A", added.IndexStatus)
	assert.Equal(t, 3, added.LinesAdded, "staged-only file is measured against HEAD")

	assert.Equal(t, 2, changes.Deleted[0].LinesDeleted)
	assert.False(t, changes.Untracked[0].Staged)
	assert.Equal(t, 1, changes.Untracked[0].LinesAdded)
}

func TestDetectStagedChanges(t *testing.T) {
	repoPath := gittest.NewRepo(t)
	gittest.WriteFile(t, repoPath, "README.md", "initial\nstaged\n")
	gittest.Stage(t, repoPath, "README.md")
	gittest.WriteFile(t, repoPath, "README.md", "initial\nstaged\nunstaged\n")
	gittest.WriteFile(t, repoPath, "untracked.txt", "x\n")

	cd, _ := newTestDetector(t)
	staged, err := cd.DetectStagedChanges(context.Background(), model.LocalRepository{Path: repoPath})
	require.NoError(t, err)

	require.Len(t, staged.StagedFiles, 1)
	f := staged.StagedFiles[0]
	assert.Equal(t, "README.md", f.Path)
	assert.Equal(t, "M", f.StatusCode)
	assert.Equal(t, "M", f.WorkingTreeStatus)
	assert.True(t, f.Staged)
	assert.Equal(t, 1, f.LinesAdded, "only the staged line counts")
	assert.True(t, staged.ReadyToCommit())
}

func TestDetectStagedChanges_CleanRepository(t *testing.T) {
	repoPath := gittest.NewRepo(t)
	cd, _ := newTestDetector(t)

	staged, err := cd.DetectStagedChanges(context.Background(), model.LocalRepository{Path: repoPath})
	require.NoError(t, err)
	assert.NotNil(t, staged.StagedFiles)
	assert.False(t, staged.ReadyToCommit())
}

func TestDetectUnpushedCommits(t *testing.T) {
	_, clonePath := gittest.NewClone(t)
	gittest.WriteFile(t, clonePath, "feature.go", "package feature\n")
	gittest.CommitAll(t, clonePath, "feat: add feature", gittest.Signature("alice", time.Now()))

	cd, _ := newTestDetector(t)
	commits, err := cd.DetectUnpushedCommits(context.Background(), model.LocalRepository{Path: clonePath, CurrentBranch: "main"})
	require.NoError(t, err)

	require.Len(t, commits, 1)
	assert.Equal(t, "feat: add feature", commits[0].ShortMessage())
	assert.Equal(t, "alice", commits[0].Author)
	assert.Equal(t, []string{"feature.go"}, commits[0].FilesChanged)
	assert.Equal(t, 1, commits[0].Insertions)
}

func TestDetectUnpushedCommits_NoneAfterClone(t *testing.T) {
	_, clonePath := gittest.NewClone(t)
	cd, _ := newTestDetector(t)

	commits, err := cd.DetectUnpushedCommits(context.Background(), model.LocalRepository{Path: clonePath})
	require.NoError(t, err)
	assert.NotNil(t, commits)
	assert.Empty(t, commits)
}

func TestDetectStashedChanges_NoStashes(t *testing.T) {
	repoPath := gittest.NewRepo(t)
	cd, _ := newTestDetector(t)

	stashes, err := cd.DetectStashedChanges(context.Background(), model.LocalRepository{Path: repoPath})
	require.NoError(t, err)
	assert.NotNil(t, stashes)
	assert.Empty(t, stashes)
}

func TestDetectWorkingDirectoryChanges_NotARepository(t *testing.T) {
	cd, _ := newTestDetector(t)

	_, err := cd.DetectWorkingDirectoryChanges(context.Background(), model.LocalRepository{Path: t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to detect working directory changes")
}
