package analyzer

import (
	"fmt"
	"path"
	"strings"

	"mcp-local-repo-analyzer/internal/model"
)

// Recommendations suggests next steps for the outstanding work in status.
func Recommendations(status model.RepositoryStatus, risk model.RiskAssessment, cats model.ChangeCategorization) []string {
	recs := []string{}

	if status.WorkingDirectory.HasChanges() {
		if risk.IsHighRisk() {
			recs = append(recs, "⚠️  Review high-risk changes carefully before committing")
		}
		recs = append(recs, "📝 Commit working directory changes when ready")
	}
	if status.StagedChanges.ReadyToCommit() {
		recs = append(recs, "✅ Commit staged changes")
	}
	if n := len(status.UnpushedCommits); n > 5 {
		recs = append(recs, "🚀 Push commits to remote (many commits waiting)")
	} else if n > 0 {
		recs = append(recs, "🚀 Push commits to remote when ready")
	}
	if status.BranchStatus.BehindBy > 0 {
		recs = append(recs, "⬇️  Pull latest changes from remote")
	}
	if len(status.StashedChanges) > 0 {
		recs = append(recs, "📦 Review and apply/clean up stashed changes")
	}
	if cats.HasCriticalChanges() {
		recs = append(recs, "🔍 Extra review needed for critical file changes")
	}
	if len(cats.SourceCode) > 0 && len(cats.Tests) == 0 {
		recs = append(recs, "🧪 Consider adding tests for code changes")
	}

	return recs
}

// SummaryText renders a one-line overview joined by " | ".
func SummaryText(status model.RepositoryStatus, risk model.RiskAssessment) string {
	if !status.HasOutstandingWork() {
		return "✅ Repository is clean - no outstanding changes detected."
	}

	var parts []string
	if status.WorkingDirectory.HasChanges() {
		parts = append(parts, fmt.Sprintf("📝 %d file(s) with uncommitted changes", status.WorkingDirectory.TotalFiles()))
	}
	if status.StagedChanges.ReadyToCommit() {
		parts = append(parts, fmt.Sprintf("📋 %d file(s) staged for commit", status.StagedChanges.TotalStaged()))
	}
	if n := len(status.UnpushedCommits); n > 0 {
		parts = append(parts, fmt.Sprintf("🚀 %d unpushed commit(s)", n))
	}
	if !status.BranchStatus.IsUpToDate {
		parts = append(parts, "🔄 Branch "+status.BranchStatus.SyncStatus())
	}
	switch risk.RiskLevel {
	case model.RiskHigh:
		parts = append(parts, "⚠️  High-risk changes detected")
	case model.RiskMedium:
		parts = append(parts, "⚡ Medium-risk changes detected")
	}

	if len(parts) == 0 {
		return "Repository has outstanding work."
	}
	return strings.Join(parts, " | ")
}

// HealthReport is a 0..100 score with the issues that lowered it.
type HealthReport struct {
	Score           int      `json:"health_score"`
	Status          string   `json:"health_status"`
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`
}

// ScoreHealth starts at 100 and subtracts a penalty per problem found.
func ScoreHealth(m HealthMetrics) HealthReport {
	score := 100
	issues := []string{}
	recs := []string{}

	if m.HasUncommittedChanges {
		score -= 20
		issues = append(issues, "Uncommitted changes in working directory")
		recs = append(recs, "Commit or stash uncommitted changes")
	}
	if m.UnpushedCommitsCount > 5 {
		score -= 15
		issues = append(issues, fmt.Sprintf("%d unpushed commits", m.UnpushedCommitsCount))
		recs = append(recs, "Push commits to remote repository")
	} else if m.UnpushedCommitsCount > 0 {
		score -= 5
	}
	if m.StashedChangesCount > 0 {
		score -= 10
		issues = append(issues, fmt.Sprintf("%d stashed changes", m.StashedChangesCount))
		recs = append(recs, "Review and clean up stashed changes")
	}
	if strings.Contains(m.BranchSyncStatus, "behind") {
		score -= 15
		issues = append(issues, "Branch is behind remote")
		recs = append(recs, "Pull latest changes from remote")
	}
	if strings.Contains(m.BranchSyncStatus, "diverged") {
		score -= 25
		issues = append(issues, "Branch has diverged from remote")
		recs = append(recs, "Resolve branch divergence (merge or rebase)")
	}

	score = max(score, 0)

	var status string
	switch {
	case score >= 90:
		status = "excellent"
	case score >= 75:
		status = "good"
	case score >= 50:
		status = "fair"
	default:
		status = "needs_attention"
	}

	if len(recs) == 0 {
		recs = append(recs, "Repository health is good!")
	}

	return HealthReport{Score: score, Status: status, Issues: issues, Recommendations: recs}
}

// PushReadiness lists what stands between the branch and a push.
type PushReadiness struct {
	Ready            bool     `json:"ready_to_push"`
	HasCommitsToPush bool     `json:"has_commits_to_push"`
	Blockers         []string `json:"blockers"`
	Warnings         []string `json:"warnings"`
	ActionPlan       []string `json:"action_plan"`
}

func AssessPushReadiness(status model.RepositoryStatus) PushReadiness {
	pr := PushReadiness{
		HasCommitsToPush: len(status.UnpushedCommits) > 0,
		Blockers:         []string{},
		Warnings:         []string{},
		ActionPlan:       []string{},
	}

	uncommitted := status.WorkingDirectory.HasChanges()
	staged := status.StagedChanges.ReadyToCommit()
	behind := status.BranchStatus.BehindBy

	if uncommitted {
		pr.Blockers = append(pr.Blockers, "Uncommitted changes in working directory")
	}
	if staged {
		pr.Blockers = append(pr.Blockers, "Staged changes not yet committed")
	}
	if !pr.HasCommitsToPush {
		pr.Warnings = append(pr.Warnings, "No new commits to push")
	}
	if behind > 0 {
		pr.Blockers = append(pr.Blockers, fmt.Sprintf("Branch is %d commits behind remote", behind))
	}
	if n := len(status.StashedChanges); n > 0 {
		pr.Warnings = append(pr.Warnings, fmt.Sprintf("%d stashed changes present", n))
	}

	pr.Ready = len(pr.Blockers) == 0 && pr.HasCommitsToPush

	switch {
	case len(pr.Blockers) > 0:
		if uncommitted {
			pr.ActionPlan = append(pr.ActionPlan, "Commit or stash uncommitted changes")
		}
		if staged {
			pr.ActionPlan = append(pr.ActionPlan, "Commit staged changes")
		}
		if behind > 0 {
			pr.ActionPlan = append(pr.ActionPlan, "Pull latest changes from remote")
		}
	case pr.HasCommitsToPush:
		pr.ActionPlan = append(pr.ActionPlan, "Ready to push!")
	default:
		pr.ActionPlan = append(pr.ActionPlan, "No commits to push")
	}

	return pr
}

// SyncAdvice is the suggested way to bring a branch in line with its upstream.
type SyncAdvice struct {
	ActionsNeeded  []string `json:"actions_needed"`
	Priority       string   `json:"sync_priority"`
	Recommendation string   `json:"recommendation"`
}

func AdviseSync(bs model.BranchStatus) SyncAdvice {
	advice := SyncAdvice{ActionsNeeded: []string{}}
	if bs.NeedsPush {
		advice.ActionsNeeded = append(advice.ActionsNeeded, "push")
	}
	if bs.NeedsPull {
		advice.ActionsNeeded = append(advice.ActionsNeeded, "pull")
	}

	switch {
	case bs.AheadBy > 0 && bs.BehindBy > 0:
		advice.Priority, advice.Recommendation = "high", "Pull and merge/rebase, then push"
	case bs.AheadBy > 5:
		advice.Priority, advice.Recommendation = "medium", "Push commits to remote"
	case bs.BehindBy > 5:
		advice.Priority, advice.Recommendation = "medium", "Pull latest changes"
	case bs.AheadBy > 0:
		advice.Priority, advice.Recommendation = "low", "Push when ready"
	case bs.BehindBy > 0:
		advice.Priority, advice.Recommendation = "low", "Pull latest changes"
	default:
		advice.Priority, advice.Recommendation = "none", "Branch is up to date"
	}
	return advice
}

var mergeSensitiveExtensions = map[string]bool{".json": true, ".xml": true, ".yaml": true, ".yml": true}

// HighRiskForMerge lists files likely to need manual attention when merging:
// more than 50 changed lines, renames and copies, or structured data files.
func HighRiskForMerge(files []model.FileStatus) []string {
	risky := []string{}
	for _, f := range files {
		if f.TotalChanges() > 50 || f.StatusCode == "R" || f.StatusCode == "C" ||
			mergeSensitiveExtensions[strings.ToLower(path.Ext(f.Path))] {
			risky = append(risky, f.Path)
		}
	}
	return risky
}

// Overlap returns the paths present in both a and b, in the order of a.
func Overlap(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, p := range b {
		set[p] = struct{}{}
	}
	both := []string{}
	for _, p := range a {
		if _, ok := set[p]; ok {
			both = append(both, p)
		}
	}
	return both
}

// CommitKinds are the buckets CommitKind sorts messages into, in match order.
var CommitKinds = []string{"fix", "feat", "docs", "test", "refactor", "other"}

var commitKeywords = map[string][]string{
	"fix":      {"fix", "bug", "patch"},
	"feat":     {"feat", "add", "new"},
	"docs":     {"doc", "readme", "comment"},
	"test":     {"test", "spec"},
	"refactor": {"refactor", "clean", "improve"},
}

// CommitKind classifies a commit message by the first bucket whose keywords
// appear anywhere in it.
func CommitKind(message string) string {
	lower := strings.ToLower(message)
	for _, kind := range CommitKinds {
		for _, word := range commitKeywords[kind] {
			if strings.Contains(lower, word) {
				return kind
			}
		}
	}
	return "other"
}
