package analyzer

import (
	"context"
	"fmt"
	"time"

	"mcp-local-repo-analyzer/internal/gitclient"
	"mcp-local-repo-analyzer/internal/logging"
	"mcp-local-repo-analyzer/internal/model"

	"golang.org/x/sync/errgroup"
)

// lineStatsWorkers bounds the number of files diffed concurrently.
const lineStatsWorkers = 8

// Git is the subset of gitclient.Client the analyzer reads from.
type Git interface {
	Info(ctx context.Context, root string) (model.LocalRepository, error)
	Status(ctx context.Context, root string) ([]gitclient.Entry, error)
	LineStats(ctx context.Context, root, path string, staged bool) (gitclient.LineStats, error)
	UnpushedCommits(ctx context.Context, root, branch string, limit int) ([]model.UnpushedCommit, error)
	StashList(ctx context.Context, root string) ([]model.StashedChanges, error)
	BranchInfo(ctx context.Context, root string) (gitclient.BranchInfo, error)
}

var _ Git = (*gitclient.Client)(nil)

// ChangeDetector turns raw git status into the change models.
type ChangeDetector struct {
	git    Git
	logger *logging.AppLogger
}

func NewChangeDetector(git Git, logger *logging.AppLogger) *ChangeDetector {
	if logger == nil {
		logger = logging.GetDefault()
	}
	return &ChangeDetector{git: git, logger: logger}
}

// statusCode picks the code a file is reported under: the working tree code
// when the working tree differs from the index, the index code otherwise.
func statusCode(e gitclient.Entry) byte {
	if e.IsUntracked() {
		return gitclient.CodeUntracked
	}
	if e.HasWorktreeChange() {
		return e.Worktree
	}
	return e.Index
}

func codeString(b byte) string {
	if b == 0 || b == gitclient.CodeUnmodified {
		return ""
	}
	return string(b)
}

// DetectWorkingDirectoryChanges buckets every changed path by status code.
// Codes other than M, A, D, R and ? (copies, unmerged paths) are left out.
func (cd *ChangeDetector) DetectWorkingDirectoryChanges(ctx context.Context, repo model.LocalRepository) (model.WorkingDirectoryChanges, error) {
	start := time.Now()
	defer cd.logger.LogPerformance("detect working directory changes", start)

	changes := model.WorkingDirectoryChanges{
		Modified:  []model.FileStatus{},
		Added:     []model.FileStatus{},
		Deleted:   []model.FileStatus{},
		Renamed:   []model.FileStatus{},
		Untracked: []model.FileStatus{},
	}

	entries, err := cd.git.Status(ctx, repo.Path)
	if err != nil {
		return changes, fmt.Errorf("failed to detect working directory changes: %w", err)
	}

	files := make([]model.FileStatus, len(entries))
	for i, e := range entries {
		files[i] = model.FileStatus{
			Path:              e.Path,
			StatusCode:        codeString(statusCode(e)),
			Staged:            e.HasIndexChange(),
			WorkingTreeStatus: codeString(e.Worktree),
			IndexStatus:       codeString(e.Index),
			OldPath:           e.OldPath,
		}
	}

	// staged-only files are measured against HEAD, everything else against the index
	if err := cd.fillLineStats(ctx, repo.Path, files, func(f model.FileStatus) bool {
		return f.Staged && f.WorkingTreeStatus == ""
	}); err != nil {
		return changes, err
	}

	for _, f := range files {
		switch f.StatusCode {
		case "M":
			changes.Modified = append(changes.Modified, f)
		case "A":
			changes.Added = append(changes.Added, f)
		case "D":
			changes.Deleted = append(changes.Deleted, f)
		case "R":
			changes.Renamed = append(changes.Renamed, f)
		case "?":
			changes.Untracked = append(changes.Untracked, f)
		default:
			cd.logger.Debug("Skipping file with unhandled status", "path", f.Path, "status", f.StatusCode)
		}
	}

	if changes.HasChanges() {
		cd.logger.Info("Working directory summary",
			"modified", len(changes.Modified),
			"added", len(changes.Added),
			"deleted", len(changes.Deleted),
			"renamed", len(changes.Renamed),
			"untracked", len(changes.Untracked))
	}
	return changes, nil
}

// DetectStagedChanges lists files whose index entry differs from HEAD.
// Staged files are reported under their index status code.
func (cd *ChangeDetector) DetectStagedChanges(ctx context.Context, repo model.LocalRepository) (model.StagedChanges, error) {
	staged := model.StagedChanges{StagedFiles: []model.FileStatus{}}

	entries, err := cd.git.Status(ctx, repo.Path)
	if err != nil {
		return staged, fmt.Errorf("failed to detect staged changes: %w", err)
	}

	for _, e := range entries {
		if !e.HasIndexChange() {
			continue
		}
		staged.StagedFiles = append(staged.StagedFiles, model.FileStatus{
			Path:              e.Path,
			StatusCode:        codeString(e.Index),
			Staged:            true,
			IndexStatus:       codeString(e.Index),
			WorkingTreeStatus: codeString(e.Worktree),
			OldPath:           e.OldPath,
		})
	}

	if err := cd.fillLineStats(ctx, repo.Path, staged.StagedFiles, func(model.FileStatus) bool { return true }); err != nil {
		return staged, err
	}

	if staged.ReadyToCommit() {
		cd.logger.Debug("Staged changes",
			"files", staged.TotalStaged(),
			"additions", staged.TotalAdditions(),
			"deletions", staged.TotalDeletions())
	}
	return staged, nil
}

// fillLineStats sets line counts on files in place. useStaged selects, per
// file, whether HEAD is compared with the index or the index with the
// working tree.
func (cd *ChangeDetector) fillLineStats(ctx context.Context, root string, files []model.FileStatus, useStaged func(model.FileStatus) bool) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lineStatsWorkers)

	for i := range files {
		g.Go(func() error {
			stats, err := cd.git.LineStats(gctx, root, files[i].Path, useStaged(files[i]))
			if err != nil {
				return fmt.Errorf("failed to count changes in %s: %w", files[i].Path, err)
			}
			files[i].LinesAdded = stats.Added
			files[i].LinesDeleted = stats.Deleted
			files[i].IsBinary = stats.Binary
			return nil
		})
	}
	return g.Wait()
}

// DetectUnpushedCommits lists commits on the current branch that are not on
// its upstream.
func (cd *ChangeDetector) DetectUnpushedCommits(ctx context.Context, repo model.LocalRepository) ([]model.UnpushedCommit, error) {
	commits, err := cd.git.UnpushedCommits(ctx, repo.Path, "", 0)
	if err != nil {
		return []model.UnpushedCommit{}, fmt.Errorf("failed to detect unpushed commits: %w", err)
	}
	if commits == nil {
		commits = []model.UnpushedCommit{}
	}

	for _, c := range commits[:min(3, len(commits))] {
		cd.logger.Debug("Unpushed commit", "sha", c.ShortSHA(), "message", c.ShortMessage())
	}
	return commits, nil
}

// DetectStashedChanges lists stash entries, newest first. Entries whose
// branch could not be read from the stash message get the current branch.
func (cd *ChangeDetector) DetectStashedChanges(ctx context.Context, repo model.LocalRepository) ([]model.StashedChanges, error) {
	stashes, err := cd.git.StashList(ctx, repo.Path)
	if err != nil {
		return []model.StashedChanges{}, fmt.Errorf("failed to detect stashed changes: %w", err)
	}
	if stashes == nil {
		stashes = []model.StashedChanges{}
	}

	for i := range stashes {
		if stashes[i].Branch == "" {
			stashes[i].Branch = repo.CurrentBranch
		}
		if stashes[i].FilesAffected == nil {
			stashes[i].FilesAffected = []string{}
		}
	}
	return stashes, nil
}
