package analyzer

import (
	"context"
	"testing"

	"mcp-local-repo-analyzer/internal/gitclient"
	"mcp-local-repo-analyzer/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSnapshot(t *testing.T) {
	snap := NewSnapshot(dirtyStatus(), newTestDiffAnalyzer())

	require.Len(t, snap.Files, 2)
	assert.Equal(t, "main.go", snap.Files[0].Path)
	assert.False(t, snap.Files[0].Staged)
	assert.True(t, snap.Files[1].Staged)

	assert.Equal(t, []string{"main.go", "main.go"}, snap.Categories.SourceCode)
	assert.False(t, snap.Push.Ready)
	assert.Equal(t, []string{"push"}, snap.Sync.ActionsNeeded)
	assert.Equal(t, 75, snap.Health.Score)
	assert.Contains(t, snap.Summary, "1 unpushed commit(s)")
	assert.Contains(t, snap.Recommendations, "🧪 Consider adding tests for code changes")
	assert.False(t, snap.TakenAt.IsZero())
}

func TestNewSnapshot_Clean(t *testing.T) {
	status := model.RepositoryStatus{BranchStatus: model.BranchStatus{CurrentBranch: "main", IsUpToDate: true}}
	snap := NewSnapshot(status, newTestDiffAnalyzer())

	assert.Empty(t, snap.Files)
	assert.Equal(t, model.RiskLow, snap.Risk.RiskLevel)
	assert.Equal(t, 100, snap.Health.Score)
	assert.Equal(t, "✅ Repository is clean - no outstanding changes detected.", snap.Summary)
	assert.Equal(t, "Branch is up to date", snap.Sync.Recommendation)
}

func TestStatusTracker_Snapshot(t *testing.T) {
	st := newTestTracker(&fakeGit{
		branch:  gitclient.BranchInfo{Name: "main", Upstream: "origin/main", Ahead: 1},
		commits: []model.UnpushedCommit{{SHA: "0123456789abcdef", Message: "feat: x"}},
	})

	snap, err := st.Snapshot(context.Background(), model.LocalRepository{Path: "/repo"}, newTestDiffAnalyzer())
	require.NoError(t, err)
	assert.True(t, snap.Push.Ready)
	assert.Equal(t, []string{"Ready to push!"}, snap.Push.ActionPlan)
	assert.Equal(t, "origin/main", snap.Status.BranchStatus.UpstreamBranch)
}
