package mcp

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"mcp-local-repo-analyzer/pkg/fileops"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func (s *Server) workingDirectoryTools() []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool("analyze_working_directory",
				mcp.WithDescription("Analyze uncommitted changes in working directory. Returns modified, added, deleted, renamed and untracked files with line counts, and optionally their diffs."),
				mcp.WithReadOnlyHintAnnotation(true),
				repositoryPathOption(),
				mcp.WithBoolean("include_diffs", mcp.Description("Include diff content in analysis"), mcp.DefaultBool(true)),
				mcp.WithNumber("max_diff_lines", mcp.Description("Maximum lines per diff to include (10-1000)"), mcp.DefaultNumber(100), mcp.Min(10), mcp.Max(1000)),
			),
			Handler: s.handleAnalyzeWorkingDirectory,
		},
		{
			Tool: mcp.NewTool("get_file_diff",
				mcp.WithDescription("Get detailed diff for a specific file, with statistics and hunk count."),
				mcp.WithReadOnlyHintAnnotation(true),
				mcp.WithString("file_path", mcp.Required(), mcp.Description("Path to specific file relative to repository root")),
				repositoryPathOption(),
				mcp.WithBoolean("staged", mcp.Description("Get staged diff instead of working tree diff"), mcp.DefaultBool(false)),
				mcp.WithNumber("max_lines", mcp.Description("Maximum lines to include in diff (10-2000)"), mcp.DefaultNumber(200), mcp.Min(10), mcp.Max(2000)),
			),
			Handler: s.handleGetFileDiff,
		},
		{
			Tool: mcp.NewTool("get_untracked_files",
				mcp.WithDescription("Get list of untracked files, optionally including ignored files."),
				mcp.WithReadOnlyHintAnnotation(true),
				repositoryPathOption(),
				mcp.WithBoolean("include_ignored", mcp.Description("Include ignored files in the list"), mcp.DefaultBool(false)),
			),
			Handler: s.handleGetUntrackedFiles,
		},
	}
}

func (s *Server) handleAnalyzeWorkingDirectory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start := time.Now()
	defer s.logger.LogPerformance("analyze_working_directory", start)

	maxDiffLines, errResult := intArg(req, "max_diff_lines", 100, 10, 1000)
	if errResult != nil {
		return errResult, nil
	}
	includeDiffs := req.GetBool("include_diffs", true)

	scope, errResult := s.resolveRepository(ctx, req)
	if errResult != nil {
		return errResult, nil
	}

	changes, err := s.detector.DetectWorkingDirectoryChanges(ctx, scope.repo)
	if err != nil {
		return s.toolFailure("analyze working directory", err), nil
	}
	s.metrics.ObserveOutstandingFiles(changes.TotalFiles())

	result := map[string]any{
		"repository_path":     scope.repo.Path,
		"total_files_changed": changes.TotalFiles(),
		"has_changes":         changes.HasChanges(),
		"summary": map[string]int{
			"modified":  len(changes.Modified),
			"added":     len(changes.Added),
			"deleted":   len(changes.Deleted),
			"renamed":   len(changes.Renamed),
			"untracked": len(changes.Untracked),
		},
		"files": map[string][]fileEntry{
			"modified":  toFileEntries(changes.Modified),
			"added":     toFileEntries(changes.Added),
			"deleted":   toFileEntries(changes.Deleted),
			"renamed":   toFileEntries(changes.Renamed),
			"untracked": toFileEntries(changes.Untracked),
		},
	}

	if includeDiffs && changes.HasChanges() {
		result["diffs"] = s.collectDiffs(ctx, scope.repo.Path, changes.AllFiles(), maxDiffLines, stagedOnly)
	}

	s.logger.Info("Working directory analyzed", "root", scope.repo.Path, "files", changes.TotalFiles(), "duration", time.Since(start))
	return jsonResult(result)
}

func (s *Server) handleGetFileDiff(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filePath, err := req.RequireString("file_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filePath = filepath.ToSlash(strings.TrimSpace(filePath))
	if err := fileops.ValidateRelativePath(filePath); err != nil {
		return mcp.NewToolResultError("Invalid file_path: " + err.Error()), nil
	}

	maxLines, errResult := intArg(req, "max_lines", 200, 10, 2000)
	if errResult != nil {
		return errResult, nil
	}
	staged := req.GetBool("staged", false)

	scope, errResult := s.resolveRepository(ctx, req)
	if errResult != nil {
		return errResult, nil
	}
	root := scope.repo.Path

	if err := fileops.ValidateWithinDirectory(filepath.Join(root, filepath.FromSlash(filePath)), root); err != nil {
		return mcp.NewToolResultError("Invalid file_path: " + err.Error()), nil
	}

	text, err := s.git.Diff(ctx, root, filePath, staged)
	if err != nil {
		return s.toolFailure("get diff for "+filePath, err), nil
	}

	if strings.TrimSpace(text) == "" {
		return jsonResult(map[string]any{
			"file_path":   filePath,
			"has_changes": false,
			"message":     "No changes found for this file",
		})
	}

	diffs := scope.diff.ParseDiff(text)
	if len(diffs) == 0 {
		s.logger.Warn("Failed to parse diff, returning raw content", "path", filePath)
		return jsonResult(map[string]any{
			"file_path":   filePath,
			"has_changes": true,
			"raw_diff":    truncateLines(text, maxLines, true),
		})
	}
	fd := diffs[0]

	var oldPath *string
	if fd.OldPath != "" {
		oldPath = &fd.OldPath
	}

	return jsonResult(map[string]any{
		"file_path":   fd.FilePath,
		"old_path":    oldPath,
		"has_changes": true,
		"is_binary":   fd.IsBinary,
		"statistics": map[string]int{
			"lines_added":   fd.LinesAdded,
			"lines_deleted": fd.LinesDeleted,
			"total_changes": fd.TotalChanges(),
		},
		"hunks":           len(fd.Hunks),
		"diff_content":    truncateLines(text, maxLines, true),
		"is_large_change": fd.IsLargeChange(),
	})
}

func (s *Server) handleGetUntrackedFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	includeIgnored := req.GetBool("include_ignored", false)

	scope, errResult := s.resolveRepository(ctx, req)
	if errResult != nil {
		return errResult, nil
	}

	changes, err := s.detector.DetectWorkingDirectoryChanges(ctx, scope.repo)
	if err != nil {
		return s.toolFailure("get untracked files", err), nil
	}

	files := toFileEntries(changes.Untracked)
	result := map[string]any{
		"repository_path": scope.repo.Path,
		"untracked_count": len(files),
		"files":           files,
	}

	if includeIgnored {
		ignored, err := s.git.IgnoredFiles(ctx, scope.repo.Path)
		if err != nil {
			return s.toolFailure("get untracked files", err), nil
		}
		if ignored == nil {
			ignored = []string{}
		}
		result["ignored_count"] = len(ignored)
		result["ignored_files"] = ignored
	}

	return jsonResult(result)
}
