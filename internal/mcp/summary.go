package mcp

import (
	"context"
	"strings"
	"time"

	"mcp-local-repo-analyzer/internal/analyzer"
	"mcp-local-repo-analyzer/internal/model"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func (s *Server) summaryTools() []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool("get_outstanding_summary",
				mcp.WithDescription("Comprehensive summary of all outstanding changes: working directory, staging area, unpushed commits, stashes, risk and recommendations."),
				mcp.WithReadOnlyHintAnnotation(true),
				repositoryPathOption(),
				mcp.WithBoolean("detailed", mcp.Description("Include detailed analysis and insights"), mcp.DefaultBool(true)),
			),
			Handler: s.handleGetOutstandingSummary,
		},
		{
			Tool: mcp.NewTool("analyze_repository_health",
				mcp.WithDescription("Score repository health from 0 to 100 based on outstanding work, stashes and branch sync state."),
				mcp.WithReadOnlyHintAnnotation(true),
				repositoryPathOption(),
			),
			Handler: s.handleAnalyzeRepositoryHealth,
		},
		{
			Tool: mcp.NewTool("get_push_readiness",
				mcp.WithDescription("Check whether the repository is ready to push, listing blockers, warnings and an action plan."),
				mcp.WithReadOnlyHintAnnotation(true),
				repositoryPathOption(),
			),
			Handler: s.handleGetPushReadiness,
		},
		{
			Tool: mcp.NewTool("analyze_stashed_changes",
				mcp.WithDescription("List stashed changes with their branch, date and affected files."),
				mcp.WithReadOnlyHintAnnotation(true),
				repositoryPathOption(),
			),
			Handler: s.handleAnalyzeStashedChanges,
		},
		{
			Tool: mcp.NewTool("detect_conflicts",
				mcp.WithDescription("Detect potential merge conflicts between outstanding changes and a target branch."),
				mcp.WithReadOnlyHintAnnotation(true),
				repositoryPathOption(),
				mcp.WithString("target_branch", mcp.Description("Target branch to check conflicts against"), mcp.DefaultString("main")),
			),
			Handler: s.handleDetectConflicts,
		},
	}
}

func (s *Server) handleGetOutstandingSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start := time.Now()
	defer s.logger.LogPerformance("get_outstanding_summary", start)

	detailed := req.GetBool("detailed", true)

	scope, errResult := s.resolveRepository(ctx, req)
	if errResult != nil {
		return errResult, nil
	}

	snap, err := s.tracker.Snapshot(ctx, scope.repo, scope.diff)
	if err != nil {
		return s.toolFailure("get outstanding summary", err), nil
	}
	status, files, categories, risk := snap.Status, snap.Files, snap.Categories, snap.Risk
	s.metrics.ObserveOutstandingFiles(len(files))

	analysis := model.OutstandingChangesAnalysis{
		ID:                    uuid.NewString(),
		RepositoryPath:        scope.repo.Path,
		AnalysisTimestamp:     snap.TakenAt,
		TotalOutstandingFiles: status.TotalOutstandingChanges(),
		Categories:            categories,
		RiskAssessment:        risk,
		Recommendations:       snap.Recommendations,
		Summary:               snap.Summary,
		RepositoryStatus:      &status,
	}

	bs := status.BranchStatus
	var upstream *string
	if bs.UpstreamBranch != "" {
		upstream = &bs.UpstreamBranch
	}

	result := map[string]any{
		"repository_path":           analysis.RepositoryPath,
		"repository_name":           scope.repo.Name,
		"current_branch":            bs.CurrentBranch,
		"analysis_timestamp":        analysis.AnalysisTimestamp.Format(time.RFC3339),
		"analysis_id":               analysis.ID,
		"has_outstanding_work":      status.HasOutstandingWork(),
		"total_outstanding_changes": analysis.TotalOutstandingFiles,
		"summary":                   analysis.Summary,
		"ready_to_commit":           analysis.IsReadyForCommit(),
		"ready_to_push":             analysis.IsReadyForPush(),
		"needs_attention":           analysis.NeedsAttention(),
		"quick_stats": map[string]int{
			"working_directory_changes": status.WorkingDirectory.TotalFiles(),
			"staged_changes":            status.StagedChanges.TotalStaged(),
			"unpushed_commits":          len(status.UnpushedCommits),
			"stashed_changes":           len(status.StashedChanges),
		},
		"branch_status": map[string]any{
			"current":     bs.CurrentBranch,
			"upstream":    upstream,
			"sync_status": bs.SyncStatus(),
			"ahead_by":    bs.AheadBy,
			"behind_by":   bs.BehindBy,
			"needs_push":  bs.NeedsPush,
			"needs_pull":  bs.NeedsPull,
		},
		"risk_assessment": map[string]any{
			"level":               risk.RiskLevel,
			"score":               risk.RiskScore(),
			"factors":             risk.RiskFactors,
			"large_changes":       len(risk.LargeChanges),
			"potential_conflicts": len(risk.PotentialConflicts),
		},
		"recommendations": analysis.Recommendations,
	}

	if scope.policy != nil && strings.TrimSpace(scope.policy.ReviewNotes) != "" {
		result["review_notes"] = strings.TrimSpace(scope.policy.ReviewNotes)
	}

	if detailed {
		wd := status.WorkingDirectory
		result["detailed_breakdown"] = map[string]any{
			"working_directory": map[string]int{
				"modified":  len(wd.Modified),
				"added":     len(wd.Added),
				"deleted":   len(wd.Deleted),
				"renamed":   len(wd.Renamed),
				"untracked": len(wd.Untracked),
			},
			"file_categories": categoryCounts(categories, "critical"),
			"risk_factors": map[string][]string{
				"large_changes":       risk.LargeChanges,
				"potential_conflicts": risk.PotentialConflicts,
				"binary_changes":      risk.BinaryChanges,
			},
		}
		if len(files) > 0 {
			result["insights"] = scope.diff.GenerateInsights(files)
		}
	}

	if risk.IsHighRisk() || len(status.UnpushedCommits) > 10 {
		s.logger.Warn("Repository needs attention",
			"root", scope.repo.Path,
			"risk", risk.RiskLevel,
			"unpushedCommits", len(status.UnpushedCommits))
	}

	return jsonResult(result)
}

func (s *Server) handleAnalyzeRepositoryHealth(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scope, errResult := s.resolveRepository(ctx, req)
	if errResult != nil {
		return errResult, nil
	}

	m, err := s.tracker.GetHealthMetrics(ctx, scope.repo)
	if err != nil {
		return s.toolFailure("analyze repository health", err), nil
	}
	report := analyzer.ScoreHealth(m)

	return jsonResult(map[string]any{
		"repository_path": scope.repo.Path,
		"health_score":    report.Score,
		"health_status":   report.Status,
		"issues":          report.Issues,
		"metrics":         m,
		"recommendations": report.Recommendations,
	})
}

func (s *Server) handleGetPushReadiness(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scope, errResult := s.resolveRepository(ctx, req)
	if errResult != nil {
		return errResult, nil
	}

	status, err := s.tracker.GetRepositoryStatus(ctx, scope.repo)
	if err != nil {
		return s.toolFailure("check push readiness", err), nil
	}
	pr := analyzer.AssessPushReadiness(status)

	bs := status.BranchStatus
	var upstream *string
	if bs.UpstreamBranch != "" {
		upstream = &bs.UpstreamBranch
	}

	return jsonResult(map[string]any{
		"repository_path":     scope.repo.Path,
		"branch":              bs.CurrentBranch,
		"ready_to_push":       pr.Ready,
		"has_commits_to_push": pr.HasCommitsToPush,
		"unpushed_commits":    len(status.UnpushedCommits),
		"blockers":            pr.Blockers,
		"warnings":            pr.Warnings,
		"action_plan":         pr.ActionPlan,
		"branch_status": map[string]any{
			"ahead_by":  bs.AheadBy,
			"behind_by": bs.BehindBy,
			"upstream":  upstream,
		},
	})
}

type stashEntry struct {
	Index         int      `json:"index"`
	Name          string   `json:"name"`
	Message       string   `json:"message"`
	Branch        string   `json:"branch"`
	Date          string   `json:"date"`
	FilesAffected []string `json:"files_affected"`
}

func (s *Server) handleAnalyzeStashedChanges(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scope, errResult := s.resolveRepository(ctx, req)
	if errResult != nil {
		return errResult, nil
	}

	stashes, err := s.detector.DetectStashedChanges(ctx, scope.repo)
	if err != nil {
		return s.toolFailure("analyze stashed changes", err), nil
	}

	if len(stashes) == 0 {
		return jsonResult(map[string]any{
			"repository_path": scope.repo.Path,
			"has_stashes":     false,
			"total_stashes":   0,
			"message":         "No stashed changes found",
		})
	}

	entries := make([]stashEntry, 0, len(stashes))
	for _, st := range stashes {
		files := st.FilesAffected
		if files == nil {
			files = []string{}
		}
		entries = append(entries, stashEntry{
			Index:         st.Index,
			Name:          st.Name(),
			Message:       st.Message,
			Branch:        st.Branch,
			Date:          st.Date.Format(time.RFC3339),
			FilesAffected: files,
		})
	}

	return jsonResult(map[string]any{
		"repository_path": scope.repo.Path,
		"has_stashes":     true,
		"total_stashes":   len(entries),
		"stashes":         entries,
		"recommendations": []string{
			"Review and apply relevant stashes",
			"Clean up old stashes that are no longer needed",
			"Consider committing stashed changes if they're ready",
		},
	})
}

func (s *Server) handleDetectConflicts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target := strings.TrimSpace(req.GetString("target_branch", "main"))
	if target == "" {
		target = "main"
	}

	scope, errResult := s.resolveRepository(ctx, req)
	if errResult != nil {
		return errResult, nil
	}
	root := scope.repo.Path
	current := scope.repo.CurrentBranch

	if current == target {
		return jsonResult(map[string]any{
			"repository_path": root,
			"current_branch":  current,
			"target_branch":   target,
			"has_conflicts":   false,
			"message":         "Cannot check conflicts - already on target branch",
		})
	}

	working, err := s.detector.DetectWorkingDirectoryChanges(ctx, scope.repo)
	if err != nil {
		return s.toolFailure("detect conflicts", err), nil
	}
	staged, err := s.detector.DetectStagedChanges(ctx, scope.repo)
	if err != nil {
		return s.toolFailure("detect conflicts", err), nil
	}

	files := append(working.AllFiles(), staged.StagedFiles...)
	risk := scope.diff.AssessRisk(files)
	highRisk := analyzer.HighRiskForMerge(files)
	hasConflicts := len(risk.PotentialConflicts) > 0 || len(highRisk) > 0

	result := map[string]any{
		"repository_path":          root,
		"current_branch":           current,
		"target_branch":            target,
		"has_potential_conflicts":  hasConflicts,
		"potential_conflict_files": risk.PotentialConflicts,
		"high_risk_files":          highRisk,
		"risk_level":               risk.RiskLevel,
		"total_changed_files":      len(files),
	}

	changes, err := s.git.ChangesSinceMergeBase(ctx, root, target)
	if err != nil {
		s.logger.Debug("Target branch comparison skipped", "target", target, "error", err)
		result["target_branch_found"] = false
	} else {
		local := append([]string{}, changes.LocalFiles...)
		for _, f := range files {
			local = append(local, f.Path)
		}
		both := analyzer.Overlap(dedupe(changes.TargetFiles), dedupe(local))

		var mergeBase *string
		if changes.MergeBase != "" {
			mergeBase = &changes.MergeBase
		}
		result["target_branch_found"] = true
		result["merge_base"] = mergeBase
		result["files_changed_on_both_branches"] = both
		if len(both) > 0 {
			hasConflicts = true
			result["has_potential_conflicts"] = true
		}
	}

	recs := []string{}
	if hasConflicts {
		recs = append(recs, "Test merge in a separate branch first")
	}
	if working.HasChanges() {
		recs = append(recs, "Commit all changes before merging")
	}
	recs = append(recs, "Pull latest changes from target branch")
	if len(risk.LargeChanges) > 0 {
		recs = append(recs, "Review large file changes carefully")
	}
	result["recommendations"] = recs

	return jsonResult(result)
}

// dedupe drops repeated paths, keeping first occurrences.
func dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
