package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mcp-local-repo-analyzer/internal/analyzer"
	"mcp-local-repo-analyzer/internal/gitclient"
	"mcp-local-repo-analyzer/internal/model"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// recentCommitsShown is how many commits analyze_commit_history lists.
const recentCommitsShown = 10

func (s *Server) commitTools() []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool("analyze_unpushed_commits",
				mcp.WithDescription("Analyze commits that exist locally but have not been pushed to the remote."),
				mcp.WithReadOnlyHintAnnotation(true),
				repositoryPathOption(),
				mcp.WithString("branch", mcp.Description("Specific branch to analyze (default: current branch)")),
				mcp.WithNumber("max_commits", mcp.Description("Maximum number of commits to analyze (1-100)"), mcp.DefaultNumber(20), mcp.Min(1), mcp.Max(100)),
			),
			Handler: s.handleAnalyzeUnpushedCommits,
		},
		{
			Tool: mcp.NewTool("compare_with_remote",
				mcp.WithDescription("Compare the local branch with its remote branch: ahead and behind counts, sync status and what to do about it."),
				mcp.WithReadOnlyHintAnnotation(false),
				mcp.WithOpenWorldHintAnnotation(true),
				mcp.WithString("remote_name", mcp.Description("Remote name to compare against"), mcp.DefaultString(s.config.Remote.Name)),
				repositoryPathOption(),
				mcp.WithBoolean("fetch", mcp.Description("Fetch from the remote first to refresh remote-tracking branches"), mcp.DefaultBool(false)),
			),
			Handler: s.handleCompareWithRemote,
		},
		{
			Tool: mcp.NewTool("analyze_commit_history",
				mcp.WithDescription("Analyze recent commit history: authors, daily activity and message patterns, optionally filtered by date, revision or author."),
				mcp.WithReadOnlyHintAnnotation(true),
				repositoryPathOption(),
				mcp.WithString("since", mcp.Description("Analyze commits since date (YYYY-MM-DD) or commit SHA")),
				mcp.WithString("author", mcp.Description("Filter commits by author name or email")),
				mcp.WithNumber("max_commits", mcp.Description("Maximum number of commits to analyze (1-200)"), mcp.DefaultNumber(50), mcp.Min(1), mcp.Max(200)),
			),
			Handler: s.handleAnalyzeCommitHistory,
		},
	}
}

type commitEntry struct {
	SHA          string `json:"sha"`
	ShortSHA     string `json:"short_sha"`
	Message      string `json:"message"`
	ShortMessage string `json:"short_message"`
	Author       string `json:"author"`
	AuthorEmail  string `json:"author_email"`
	Date         string `json:"date"`
	Insertions   int    `json:"insertions"`
	Deletions    int    `json:"deletions"`
	TotalChanges int    `json:"total_changes"`
	FilesChanged int    `json:"files_changed"`
}

func toCommitEntry(c model.UnpushedCommit) commitEntry {
	return commitEntry{
		SHA:          c.SHA,
		ShortSHA:     c.ShortSHA(),
		Message:      c.Message,
		ShortMessage: c.ShortMessage(),
		Author:       c.Author,
		AuthorEmail:  c.AuthorEmail,
		Date:         c.Date.Format(time.RFC3339),
		Insertions:   c.Insertions,
		Deletions:    c.Deletions,
		TotalChanges: c.TotalChanges(),
		FilesChanged: len(c.FilesChanged),
	}
}

func (s *Server) handleAnalyzeUnpushedCommits(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start := time.Now()
	defer s.logger.LogPerformance("analyze_unpushed_commits", start)

	maxCommits, errResult := intArg(req, "max_commits", 20, 1, 100)
	if errResult != nil {
		return errResult, nil
	}
	branch := strings.TrimSpace(req.GetString("branch", ""))

	scope, errResult := s.resolveRepository(ctx, req)
	if errResult != nil {
		return errResult, nil
	}
	root := scope.repo.Path

	info, err := s.git.BranchInfo(ctx, root)
	if err != nil {
		return s.toolFailure("analyze unpushed commits", err), nil
	}
	if branch == "" {
		branch = info.Name
	}

	var upstream *string
	if branch == info.Name && info.Upstream != "" {
		upstream = &info.Upstream
	}

	commits, err := s.git.UnpushedCommits(ctx, root, branch, 0)
	if err != nil {
		return s.toolFailure("analyze unpushed commits", err), nil
	}
	total := len(commits)
	if total > maxCommits {
		commits = commits[:maxCommits]
	}

	entries := make([]commitEntry, 0, len(commits))
	authors := []string{}
	seen := map[string]bool{}
	var insertions, deletions int
	for _, c := range commits {
		entries = append(entries, toCommitEntry(c))
		insertions += c.Insertions
		deletions += c.Deletions
		if !seen[c.Author] {
			seen[c.Author] = true
			authors = append(authors, c.Author)
		}
	}

	s.logger.Info("Unpushed commits analyzed", "root", root, "branch", branch, "total", total, "duration", time.Since(start))
	return jsonResult(map[string]any{
		"repository_path":        root,
		"branch":                 branch,
		"upstream_branch":        upstream,
		"total_unpushed_commits": total,
		"commits_analyzed":       len(entries),
		"summary": map[string]any{
			"total_insertions": insertions,
			"total_deletions":  deletions,
			"total_changes":    insertions + deletions,
			"unique_authors":   len(authors),
			"authors":          authors,
		},
		"commits": entries,
	})
}

func (s *Server) handleCompareWithRemote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	remote := strings.TrimSpace(req.GetString("remote_name", s.config.Remote.Name))
	if remote == "" {
		remote = s.config.Remote.Name
	}
	fetch := req.GetBool("fetch", false)

	scope, errResult := s.resolveRepository(ctx, req)
	if errResult != nil {
		return errResult, nil
	}
	root := scope.repo.Path

	if fetch {
		err := s.fetchRemote(ctx, root, remote)
		s.metrics.ObserveFetch(err)
		if err != nil {
			return s.toolFailure("compare with remote", err), nil
		}
	}

	bs, err := s.tracker.GetBranchStatus(ctx, scope.repo)
	if err != nil {
		return s.toolFailure("compare with remote", err), nil
	}
	advice := analyzer.AdviseSync(bs)

	if bs.AheadBy > 0 && bs.BehindBy > 0 {
		s.logger.Warn("Branch has diverged", "root", root, "ahead", bs.AheadBy, "behind", bs.BehindBy)
	}

	var upstream *string
	if bs.UpstreamBranch != "" {
		upstream = &bs.UpstreamBranch
	}

	return jsonResult(map[string]any{
		"repository_path": root,
		"branch":          bs.CurrentBranch,
		"remote":          remote,
		"fetched":         fetch,
		"upstream_branch": upstream,
		"sync_status":     bs.SyncStatus(),
		"is_up_to_date":   bs.IsUpToDate,
		"ahead_by":        bs.AheadBy,
		"behind_by":       bs.BehindBy,
		"needs_push":      bs.NeedsPush,
		"needs_pull":      bs.NeedsPull,
		"actions_needed":  advice.ActionsNeeded,
		"sync_priority":   advice.Priority,
		"recommendation":  advice.Recommendation,
	})
}

// fetchRemote refreshes remote-tracking refs, authenticating HTTPS remotes
// with the stored token when an AuthProvider is configured.
func (s *Server) fetchRemote(ctx context.Context, root, remote string) error {
	url, err := s.git.RemoteURL(root, remote)
	if err != nil {
		return err
	}

	if s.auth == nil {
		return s.git.Fetch(ctx, root, remote, nil)
	}
	auth, err := s.auth.AuthForRemote(url)
	if err != nil {
		return fmt.Errorf("failed to load credentials for %s: %w", remote, err)
	}
	return s.git.Fetch(ctx, root, remote, auth)
}

type authorStats struct {
	Commits    int `json:"commits"`
	Insertions int `json:"insertions"`
	Deletions  int `json:"deletions"`
}

type recentCommit struct {
	SHA     string `json:"sha"`
	Message string `json:"message"`
	Author  string `json:"author"`
	Date    string `json:"date"`
	Changes int    `json:"changes"`
}

func (s *Server) handleAnalyzeCommitHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start := time.Now()
	defer s.logger.LogPerformance("analyze_commit_history", start)

	maxCommits, errResult := intArg(req, "max_commits", 50, 1, 200)
	if errResult != nil {
		return errResult, nil
	}
	since := optionalString(req, "since")
	author := optionalString(req, "author")

	scope, errResult := s.resolveRepository(ctx, req)
	if errResult != nil {
		return errResult, nil
	}

	opts := gitclient.LogOptions{MaxCount: maxCommits}
	if since != nil {
		opts.Since = *since
	}
	if author != nil {
		opts.Author = *author
	}

	history, err := s.git.Log(ctx, scope.repo.Path, opts)
	if err != nil {
		return s.toolFailure("analyze commit history", err), nil
	}

	return jsonResult(historyReport(scope.repo.Path, since, author, maxCommits, history))
}

func historyReport(root string, since, author *string, maxCommits int, history gitclient.LogResult) map[string]any {
	commits := history.Commits

	authors := map[string]*authorStats{}
	daily := map[string]int{}
	patterns := make(map[string]int, len(analyzer.CommitKinds))
	for _, kind := range analyzer.CommitKinds {
		patterns[kind] = 0
	}

	var insertions, deletions, changes int
	for _, c := range commits {
		a, ok := authors[c.Author]
		if !ok {
			a = &authorStats{}
			authors[c.Author] = a
		}
		a.Commits++
		a.Insertions += c.Insertions
		a.Deletions += c.Deletions

		daily[c.Date.Format("2006-01-02")]++
		patterns[analyzer.CommitKind(c.Message)]++

		insertions += c.Insertions
		deletions += c.Deletions
		changes += c.TotalChanges()
	}

	var average float64
	if len(commits) > 0 {
		average = float64(changes) / float64(len(commits))
	}

	recent := make([]recentCommit, 0, min(len(commits), recentCommitsShown))
	for _, c := range commits[:min(len(commits), recentCommitsShown)] {
		recent = append(recent, recentCommit{
			SHA:     c.ShortSHA(),
			Message: c.ShortMessage(),
			Author:  c.Author,
			Date:    c.Date.Format("2006-01-02 15:04"),
			Changes: c.TotalChanges(),
		})
	}

	return map[string]any{
		"repository_path": root,
		"analysis_filters": map[string]any{
			"since":       since,
			"author":      author,
			"max_commits": maxCommits,
		},
		"total_commits_found": history.Total,
		"commits_analyzed":    len(commits),
		"statistics": map[string]any{
			"total_authors":              len(authors),
			"total_insertions":           insertions,
			"total_deletions":            deletions,
			"average_changes_per_commit": average,
		},
		"authors":          authors,
		"daily_activity":   daily,
		"message_patterns": patterns,
		"recent_commits":   recent,
	}
}
