package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"mcp-local-repo-analyzer/internal/analyzer"
	"mcp-local-repo-analyzer/internal/gitclient"
	"mcp-local-repo-analyzer/internal/model"
	"mcp-local-repo-analyzer/internal/policy"
	"mcp-local-repo-analyzer/pkg/fileops"

	"github.com/mark3labs/mcp-go/mcp"
)

// repoScope is a resolved repository together with the diff analyzer
// configured by its policy file.
type repoScope struct {
	repo   model.LocalRepository
	diff   *analyzer.DiffAnalyzer
	policy *policy.Policy
}

func repositoryPathOption() mcp.ToolOption {
	return mcp.WithString("repository_path",
		mcp.Description("Path to git repository (default: current directory)"),
		mcp.DefaultString("."),
	)
}

// resolveRepository turns the repository_path argument into an open
// repository. The returned result is a tool error to hand back as is.
func (s *Server) resolveRepository(ctx context.Context, req mcp.CallToolRequest) (*repoScope, *mcp.CallToolResult) {
	scope, err := s.openScope(ctx, req.GetString("repository_path", "."))
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	return scope, nil
}

// openScope resolves raw against the work directory, walks up to the
// enclosing repository and loads its policy. A broken policy file is logged
// and ignored. Errors are worded for the client and returned verbatim as
// tool errors.
func (s *Server) openScope(ctx context.Context, raw string) (*repoScope, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = "."
	}

	p := fileops.ExpandPath(raw)
	if !filepath.IsAbs(p) {
		p = filepath.Join(s.workDir, p)
	}
	p = filepath.Clean(p)

	root, err := s.git.Open(p)
	if err != nil {
		s.logger.Warn("Repository not found", "path", p, "error", err)
		if errors.Is(err, gitclient.ErrNotRepository) {
			return nil, fmt.Errorf("No git repository found at or above %s", p)
		}
		return nil, fmt.Errorf("Cannot open repository at %s: %w", p, err)
	}

	repo, err := s.git.Info(ctx, root)
	if err != nil {
		s.logger.Error("Failed to read repository", "root", root, "error", err)
		return nil, fmt.Errorf("Failed to read repository %s: %w", root, err)
	}

	pol, err := policy.Load(root)
	if err != nil {
		s.logger.Warn("Ignoring repository policy", "root", root, "error", err)
		pol = nil
	}

	return &repoScope{
		repo:   repo,
		diff:   analyzer.NewDiffAnalyzer(pol.Apply(s.config.Analyzer)),
		policy: pol,
	}, nil
}

// Snapshot analyzes the repository at or above path the same way
// get_outstanding_summary does.
func (s *Server) Snapshot(ctx context.Context, path string) (analyzer.Snapshot, error) {
	scope, err := s.openScope(ctx, path)
	if err != nil {
		return analyzer.Snapshot{}, err
	}
	snap, err := s.tracker.Snapshot(ctx, scope.repo, scope.diff)
	if err != nil {
		return analyzer.Snapshot{}, fmt.Errorf("failed to analyze %s: %w", scope.repo.Path, err)
	}
	s.metrics.ObserveOutstandingFiles(len(snap.Files))
	return snap, nil
}

// intArg reads an integer argument and checks it against [lo, hi].
func intArg(req mcp.CallToolRequest, name string, def, lo, hi int) (int, *mcp.CallToolResult) {
	v := req.GetInt(name, def)
	if v < lo || v > hi {
		return 0, mcp.NewToolResultError(fmt.Sprintf("%s must be between %d and %d, got %d", name, lo, hi, v))
	}
	return v, nil
}

// optionalString returns nil for a missing or blank argument so it encodes as null.
func optionalString(req mcp.CallToolRequest, name string) *string {
	v := strings.TrimSpace(req.GetString(name, ""))
	if v == "" {
		return nil
	}
	return &v
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// toolFailure logs err and converts it to a tool error prefixed with what failed.
func (s *Server) toolFailure(what string, err error) *mcp.CallToolResult {
	s.logger.Error("Tool failed", "operation", what, "error", err)
	return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: %v", what, err))
}

// truncateLines keeps the first limit lines of text. The marker is appended
// only when lines were dropped; withCount adds how many.
func truncateLines(text string, limit int, withCount bool) string {
	lines := strings.Split(text, "\n")
	if len(lines) <= limit {
		return text
	}
	out := strings.Join(lines[:limit], "\n")
	if withCount {
		return out + fmt.Sprintf("\n... (truncated, %d more lines)", len(lines)-limit)
	}
	return out + "\n... (truncated)"
}

// fileEntry is the tool representation of a FileStatus.
type fileEntry struct {
	Path              string  `json:"path"`
	Status            string  `json:"status"`
	StatusDescription string  `json:"status_description"`
	Staged            bool    `json:"staged"`
	LinesAdded        int     `json:"lines_added"`
	LinesDeleted      int     `json:"lines_deleted"`
	TotalChanges      int     `json:"total_changes"`
	IsBinary          bool    `json:"is_binary"`
	OldPath           *string `json:"old_path"`
}

func toFileEntry(f model.FileStatus) fileEntry {
	e := fileEntry{
		Path:              f.Path,
		Status:            f.StatusCode,
		StatusDescription: f.StatusDescription(),
		Staged:            f.Staged,
		LinesAdded:        f.LinesAdded,
		LinesDeleted:      f.LinesDeleted,
		TotalChanges:      f.TotalChanges(),
		IsBinary:          f.IsBinary,
	}
	if f.OldPath != "" {
		old := f.OldPath
		e.OldPath = &old
	}
	return e
}

func toFileEntries(files []model.FileStatus) []fileEntry {
	out := make([]fileEntry, 0, len(files))
	for _, f := range files {
		out = append(out, toFileEntry(f))
	}
	return out
}

// fileDiffEntry is one element of a "diffs" list.
type fileDiffEntry struct {
	FilePath    string `json:"file_path"`
	DiffContent string `json:"diff_content,omitempty"`
	IsBinary    bool   `json:"is_binary"`
	Message     string `json:"message,omitempty"`
	Error       string `json:"error,omitempty"`
}

// collectDiffs renders diffs for at most Analyzer.MaxDiffFiles files. staged picks the
// diff side per file. Files without a diff are left out; failures are
// reported inline.
func (s *Server) collectDiffs(ctx context.Context, root string, files []model.FileStatus, maxLines int, staged func(model.FileStatus) bool) []fileDiffEntry {
	if limit := s.config.Analyzer.MaxDiffFiles; len(files) > limit {
		files = files[:limit]
	}

	diffs := []fileDiffEntry{}
	for _, f := range files {
		if f.IsBinary {
			diffs = append(diffs, fileDiffEntry{FilePath: f.Path, IsBinary: true, Message: "Binary file - no diff available"})
			continue
		}

		text, err := s.git.Diff(ctx, root, f.Path, staged(f))
		if err != nil {
			s.logger.Warn("Failed to get diff", "path", f.Path, "error", err)
			diffs = append(diffs, fileDiffEntry{FilePath: f.Path, Error: fmt.Sprintf("Failed to get diff: %v", err)})
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		diffs = append(diffs, fileDiffEntry{FilePath: f.Path, DiffContent: truncateLines(text, maxLines, false)})
	}
	return diffs
}

// stagedOnly reports whether a file's only change is in the index, which is
// when its diff and line counts are taken between HEAD and the index.
func stagedOnly(f model.FileStatus) bool {
	return f.Staged && f.WorkingTreeStatus == ""
}
