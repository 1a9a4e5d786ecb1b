package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mcp-local-repo-analyzer/internal/analyzer"
	"mcp-local-repo-analyzer/internal/model"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// stagedDiffLines bounds each diff returned by analyze_staged_changes.
const stagedDiffLines = 100

func (s *Server) stagingAreaTools() []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool("analyze_staged_changes",
				mcp.WithDescription("Analyze changes staged for commit. Returns every file added to the index with line counts, and optionally their staged diffs."),
				mcp.WithReadOnlyHintAnnotation(true),
				repositoryPathOption(),
				mcp.WithBoolean("include_diffs", mcp.Description("Include diff content for staged files"), mcp.DefaultBool(true)),
			),
			Handler: s.handleAnalyzeStagedChanges,
		},
		{
			Tool: mcp.NewTool("preview_commit",
				mcp.WithDescription("Preview what would be committed: totals, file categories, file types and files by status."),
				mcp.WithReadOnlyHintAnnotation(true),
				repositoryPathOption(),
			),
			Handler: s.handlePreviewCommit,
		},
		{
			Tool: mcp.NewTool("validate_staged_changes",
				mcp.WithDescription("Validate staged changes for large files, critical file changes, binaries and potential conflicts before committing."),
				mcp.WithReadOnlyHintAnnotation(true),
				repositoryPathOption(),
			),
			Handler: s.handleValidateStagedChanges,
		},
	}
}

type stagedFileEntry struct {
	Path              string `json:"path"`
	Status            string `json:"status"`
	StatusDescription string `json:"status_description"`
	LinesAdded        int    `json:"lines_added"`
	LinesDeleted      int    `json:"lines_deleted"`
	TotalChanges      int    `json:"total_changes"`
	IsBinary          bool   `json:"is_binary"`
}

func (s *Server) handleAnalyzeStagedChanges(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start := time.Now()
	defer s.logger.LogPerformance("analyze_staged_changes", start)

	includeDiffs := req.GetBool("include_diffs", true)

	scope, errResult := s.resolveRepository(ctx, req)
	if errResult != nil {
		return errResult, nil
	}

	staged, err := s.detector.DetectStagedChanges(ctx, scope.repo)
	if err != nil {
		return s.toolFailure("analyze staged changes", err), nil
	}

	files := make([]stagedFileEntry, 0, len(staged.StagedFiles))
	for _, f := range staged.StagedFiles {
		files = append(files, stagedFileEntry{
			Path:              f.Path,
			Status:            f.StatusCode,
			StatusDescription: f.StatusDescription(),
			LinesAdded:        f.LinesAdded,
			LinesDeleted:      f.LinesDeleted,
			TotalChanges:      f.TotalChanges(),
			IsBinary:          f.IsBinary,
		})
	}

	result := map[string]any{
		"repository_path":    scope.repo.Path,
		"total_staged_files": staged.TotalStaged(),
		"ready_to_commit":    staged.ReadyToCommit(),
		"statistics": map[string]int{
			"total_additions": staged.TotalAdditions(),
			"total_deletions": staged.TotalDeletions(),
		},
		"staged_files": files,
	}

	if includeDiffs && len(staged.StagedFiles) > 0 {
		result["diffs"] = s.collectDiffs(ctx, scope.repo.Path, staged.StagedFiles, stagedDiffLines,
			func(model.FileStatus) bool { return true })
	}

	s.logger.Info("Staged changes analyzed", "root", scope.repo.Path, "files", staged.TotalStaged(), "duration", time.Since(start))
	return jsonResult(result)
}

func categoryCounts(c model.ChangeCategorization, criticalKey string) map[string]int {
	return map[string]int{
		criticalKey:     len(c.CriticalFiles),
		"source_code":   len(c.SourceCode),
		"documentation": len(c.Documentation),
		"tests":         len(c.Tests),
		"configuration": len(c.Configuration),
		"other":         len(c.Other),
	}
}

func (s *Server) handlePreviewCommit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scope, errResult := s.resolveRepository(ctx, req)
	if errResult != nil {
		return errResult, nil
	}

	staged, err := s.detector.DetectStagedChanges(ctx, scope.repo)
	if err != nil {
		return s.toolFailure("preview commit", err), nil
	}

	if !staged.ReadyToCommit() {
		return jsonResult(map[string]any{
			"repository_path": scope.repo.Path,
			"ready_to_commit": false,
			"message":         "No changes staged for commit",
		})
	}

	categories := scope.diff.CategorizeChanges(staged.StagedFiles)

	byStatus := map[string][]string{
		"added":    {},
		"modified": {},
		"deleted":  {},
		"renamed":  {},
	}
	statusKeys := map[string]string{"A": "added", "M": "modified", "D": "deleted", "R": "renamed"}
	for _, f := range staged.StagedFiles {
		if key, ok := statusKeys[f.StatusCode]; ok {
			byStatus[key] = append(byStatus[key], f.Path)
		}
	}

	return jsonResult(map[string]any{
		"repository_path": scope.repo.Path,
		"ready_to_commit": true,
		"summary": map[string]int{
			"total_files":     staged.TotalStaged(),
			"total_additions": staged.TotalAdditions(),
			"total_deletions": staged.TotalDeletions(),
		},
		"file_categories": categoryCounts(categories, "critical_files"),
		"file_types":      analyzer.FileTypes(staged.StagedFiles),
		"files_by_status": byStatus,
	})
}

func (s *Server) handleValidateStagedChanges(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scope, errResult := s.resolveRepository(ctx, req)
	if errResult != nil {
		return errResult, nil
	}

	staged, err := s.detector.DetectStagedChanges(ctx, scope.repo)
	if err != nil {
		return s.toolFailure("validate staged changes", err), nil
	}

	if !staged.ReadyToCommit() {
		return jsonResult(map[string]any{
			"repository_path": scope.repo.Path,
			"valid":           false,
			"message":         "No changes staged for commit",
		})
	}

	risk := scope.diff.AssessRisk(staged.StagedFiles)
	categories := scope.diff.CategorizeChanges(staged.StagedFiles)
	report := validateStaged(staged, risk, categories)

	for _, w := range report.Warnings {
		s.logger.Warn("Staged change warning", "root", scope.repo.Path, "warning", w)
	}

	return jsonResult(map[string]any{
		"repository_path": scope.repo.Path,
		"valid":           report.Valid,
		"risk_level":      risk.RiskLevel,
		"risk_score":      risk.RiskScore(),
		"warnings":        report.Warnings,
		"errors":          report.Errors,
		"recommendations": report.Recommendations,
		"summary": map[string]int{
			"total_files":     staged.TotalStaged(),
			"high_risk_files": len(risk.LargeChanges),
			"critical_files":  len(categories.CriticalFiles),
			"binary_files":    report.BinaryFiles,
		},
	})
}

type stagedValidation struct {
	Valid           bool
	Warnings        []string
	Errors          []string
	Recommendations []string
	BinaryFiles     int
}

// validateStaged turns a risk assessment into warnings and errors. Only
// potential conflicts make the change set invalid.
func validateStaged(staged model.StagedChanges, risk model.RiskAssessment, cats model.ChangeCategorization) stagedValidation {
	v := stagedValidation{
		Warnings:        []string{},
		Errors:          []string{},
		Recommendations: []string{},
	}

	if risk.IsHighRisk() {
		v.Warnings = append(v.Warnings, "High-risk changes detected: "+strings.Join(risk.RiskFactors, ", "))
	}
	if n := len(risk.LargeChanges); n > 0 {
		v.Warnings = append(v.Warnings, fmt.Sprintf("Large changes in %d files", n))
	}
	if cats.HasCriticalChanges() {
		v.Warnings = append(v.Warnings, fmt.Sprintf("Critical files changed: %d", len(cats.CriticalFiles)))
	}
	for _, f := range staged.StagedFiles {
		if f.IsBinary {
			v.BinaryFiles++
		}
	}
	if v.BinaryFiles > 0 {
		v.Warnings = append(v.Warnings, fmt.Sprintf("Binary files included: %d", v.BinaryFiles))
	}
	if len(risk.PotentialConflicts) > 0 {
		v.Errors = append(v.Errors, "Potential conflicts detected in: "+strings.Join(risk.PotentialConflicts, ", "))
	}
	v.Valid = len(v.Errors) == 0

	if len(risk.LargeChanges) > 0 {
		v.Recommendations = append(v.Recommendations, "Review large changes carefully before committing")
	}
	if cats.HasCriticalChanges() {
		v.Recommendations = append(v.Recommendations, "Double-check critical file changes")
	}
	if staged.TotalStaged() > 10 {
		v.Recommendations = append(v.Recommendations, "Consider splitting large commits into smaller ones")
	}
	if len(cats.SourceCode) > 0 && len(cats.Tests) == 0 {
		v.Recommendations = append(v.Recommendations, "Add tests for new functionality")
	}

	return v
}
