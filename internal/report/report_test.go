package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mcp-local-repo-analyzer/internal/analyzer"
	"mcp-local-repo-analyzer/internal/config"
	"mcp-local-repo-analyzer/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot(status model.RepositoryStatus) analyzer.Snapshot {
	return analyzer.NewSnapshot(status, analyzer.NewDiffAnalyzer(config.DefaultAnalyzerConfig()))
}

func dirtySnapshot() analyzer.Snapshot {
	return testSnapshot(model.RepositoryStatus{
		Repository: model.LocalRepository{Name: "demo", Path: "/work/demo"},
		WorkingDirectory: model.WorkingDirectoryChanges{
			Modified: []model.FileStatus{{Path: "main.go", StatusCode: "M", LinesAdded: 4, LinesDeleted: 2}},
		},
		StagedChanges: model.StagedChanges{
			StagedFiles: []model.FileStatus{{Path: "logo.png", StatusCode: "A", Staged: true, IsBinary: true}},
		},
		UnpushedCommits: []model.UnpushedCommit{{SHA: "0123456789abcdef", Message: "fix: handle a|b", Author: "Ada"}},
		StashedChanges:  []model.StashedChanges{{Index: 0, Message: "WIP on main", Branch: "main"}},
		BranchStatus:    model.BranchStatus{CurrentBranch: "main", UpstreamBranch: "origin/main", AheadBy: 1, NeedsPush: true},
	})
}

func TestMarkdown_Dirty(t *testing.T) {
	md := Markdown(dirtySnapshot())

	assert.Contains(t, md, "# Repository report: demo")
	assert.Contains(t, md, "| Upstream | origin/main |")
	assert.Contains(t, md, "| Modified | `main.go` | no | +4 -2 |")
	assert.Contains(t, md, "| Added | `logo.png` | yes | binary |")
	assert.Contains(t, md, "- `01234567` fix: handle a\\|b (Ada, +0 -0)")
	assert.Contains(t, md, "## Stashes")
	assert.Contains(t, md, "- `stash@{0}` WIP on main (on main)")
	assert.Contains(t, md, "🧪 Consider adding tests for code changes")
	assert.Contains(t, md, "## Push readiness")
	assert.Contains(t, md, "- **Blocker:** Uncommitted changes in working directory")
	assert.Contains(t, md, "- **Warning:** 1 stashed changes present")
}

func TestMarkdown_CleanWithStash(t *testing.T) {
	md := Markdown(testSnapshot(model.RepositoryStatus{
		Repository:     model.LocalRepository{Name: "clean"},
		StashedChanges: []model.StashedChanges{{Index: 0, Message: "WIP on main", Branch: "main"}},
		BranchStatus:   model.BranchStatus{CurrentBranch: "main", IsUpToDate: true},
	}))

	assert.Contains(t, md, "## Stashes")
	assert.NotContains(t, md, "## Push readiness")
	assert.NotContains(t, md, "No new commits to push")
}

func TestMarkdown_Clean(t *testing.T) {
	md := Markdown(testSnapshot(model.RepositoryStatus{
		Repository:   model.LocalRepository{Name: "clean"},
		BranchStatus: model.BranchStatus{CurrentBranch: "main", IsUpToDate: true},
	}))

	assert.Contains(t, md, "| Upstream | (none) |")
	assert.Contains(t, md, "No uncommitted changes.")
	assert.Contains(t, md, "No unpushed commits.")
	assert.Contains(t, md, "Nothing to do.")
	assert.NotContains(t, md, "## Stashes")
	assert.NotContains(t, md, "## Push readiness")
}

func TestRender_Raw(t *testing.T) {
	snap := dirtySnapshot()
	var buf bytes.Buffer

	require.NoError(t, Render(&buf, snap, Options{Raw: true}))
	assert.Equal(t, Markdown(snap), buf.String())
}

func TestRender_Styled(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, Render(&buf, dirtySnapshot(), Options{Style: "notty", Width: 80}))
	out := buf.String()
	assert.Contains(t, out, "Repository report: demo")
	assert.Contains(t, out, "main.go")
	assert.NotEqual(t, Markdown(dirtySnapshot()), out)
}

func TestRender_UnknownStyle(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, dirtySnapshot(), Options{Style: "no-such-style"})
	assert.Error(t, err)
}

func TestDetectStyle(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	defer f.Close()

	t.Setenv("GLAMOUR_STYLE", "light")
	assert.Equal(t, "light", DetectStyle(f, time.Millisecond))

	t.Setenv("GLAMOUR_STYLE", "auto")
	assert.Equal(t, "notty", DetectStyle(f, time.Millisecond))
}
