package analyzer

import (
	"context"
	"fmt"

	"mcp-local-repo-analyzer/internal/logging"
	"mcp-local-repo-analyzer/internal/model"

	"golang.org/x/sync/errgroup"
)

// StatusTracker assembles full repository snapshots from a ChangeDetector.
type StatusTracker struct {
	git      Git
	detector *ChangeDetector
	logger   *logging.AppLogger
}

func NewStatusTracker(git Git, detector *ChangeDetector, logger *logging.AppLogger) *StatusTracker {
	if logger == nil {
		logger = logging.GetDefault()
	}
	return &StatusTracker{git: git, detector: detector, logger: logger}
}

// GetRepositoryStatus collects working directory, staged, unpushed, stash
// and branch state concurrently. The first failure cancels the rest.
func (st *StatusTracker) GetRepositoryStatus(ctx context.Context, repo model.LocalRepository) (model.RepositoryStatus, error) {
	status := model.RepositoryStatus{Repository: repo}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		status.WorkingDirectory, err = st.detector.DetectWorkingDirectoryChanges(gctx, repo)
		return err
	})
	g.Go(func() error {
		var err error
		status.StagedChanges, err = st.detector.DetectStagedChanges(gctx, repo)
		return err
	})
	g.Go(func() error {
		var err error
		status.UnpushedCommits, err = st.detector.DetectUnpushedCommits(gctx, repo)
		return err
	})
	g.Go(func() error {
		var err error
		status.StashedChanges, err = st.detector.DetectStashedChanges(gctx, repo)
		return err
	})
	g.Go(func() error {
		var err error
		status.BranchStatus, err = st.GetBranchStatus(gctx, repo)
		return err
	})

	if err := g.Wait(); err != nil {
		return status, err
	}
	return status, nil
}

// GetBranchStatus compares the current branch with its upstream.
func (st *StatusTracker) GetBranchStatus(ctx context.Context, repo model.LocalRepository) (model.BranchStatus, error) {
	info, err := st.git.BranchInfo(ctx, repo.Path)
	if err != nil {
		return model.BranchStatus{}, fmt.Errorf("failed to get branch status: %w", err)
	}

	current := info.Name
	if current == "" {
		current = repo.CurrentBranch
	}

	return model.BranchStatus{
		CurrentBranch:  current,
		UpstreamBranch: info.Upstream,
		AheadBy:        info.Ahead,
		BehindBy:       info.Behind,
		IsUpToDate:     info.Ahead == 0 && info.Behind == 0,
		NeedsPush:      info.Ahead > 0,
		NeedsPull:      info.Behind > 0,
	}, nil
}

// HealthMetrics is a flat summary of a RepositoryStatus.
type HealthMetrics struct {
	TotalOutstandingFiles int    `json:"total_outstanding_files"`
	HasUncommittedChanges bool   `json:"has_uncommitted_changes"`
	HasStagedChanges      bool   `json:"has_staged_changes"`
	UnpushedCommitsCount  int    `json:"unpushed_commits_count"`
	StashedChangesCount   int    `json:"stashed_changes_count"`
	BranchSyncStatus      string `json:"branch_sync_status"`
	NeedsAttention        bool   `json:"needs_attention"`
}

// MetricsFor derives HealthMetrics from an existing snapshot.
func MetricsFor(status model.RepositoryStatus) HealthMetrics {
	return HealthMetrics{
		TotalOutstandingFiles: status.TotalOutstandingChanges(),
		HasUncommittedChanges: status.WorkingDirectory.HasChanges(),
		HasStagedChanges:      status.StagedChanges.ReadyToCommit(),
		UnpushedCommitsCount:  len(status.UnpushedCommits),
		StashedChangesCount:   len(status.StashedChanges),
		BranchSyncStatus:      status.BranchStatus.SyncStatus(),
		NeedsAttention:        status.HasOutstandingWork(),
	}
}

func (st *StatusTracker) GetHealthMetrics(ctx context.Context, repo model.LocalRepository) (HealthMetrics, error) {
	status, err := st.GetRepositoryStatus(ctx, repo)
	if err != nil {
		return HealthMetrics{}, err
	}
	return MetricsFor(status), nil
}
