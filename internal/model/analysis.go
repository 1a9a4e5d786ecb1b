package model

import (
	"fmt"
	"time"
)

// BranchStatus describes the current branch relative to its upstream.
type BranchStatus struct {
	CurrentBranch  string `json:"current_branch"`
	UpstreamBranch string `json:"upstream_branch,omitempty"`
	AheadBy        int    `json:"ahead_by"`
	BehindBy       int    `json:"behind_by"`
	IsUpToDate     bool   `json:"is_up_to_date"`
	NeedsPush      bool   `json:"needs_push"`
	NeedsPull      bool   `json:"needs_pull"`
}

// SyncStatus returns a short human readable description of the sync state.
func (b BranchStatus) SyncStatus() string {
	switch {
	case b.IsUpToDate:
		return "up to date"
	case b.AheadBy > 0 && b.BehindBy > 0:
		return fmt.Sprintf("diverged (%d ahead, %d behind)", b.AheadBy, b.BehindBy)
	case b.AheadBy > 0:
		return fmt.Sprintf("%d commit(s) ahead", b.AheadBy)
	case b.BehindBy > 0:
		return fmt.Sprintf("%d commit(s) behind", b.BehindBy)
	default:
		return "unknown"
	}
}

// ChangeCategorization buckets changed paths by the kind of file.
type ChangeCategorization struct {
	CriticalFiles []string `json:"critical_files"`
	SourceCode    []string `json:"source_code"`
	Documentation []string `json:"documentation"`
	Tests         []string `json:"tests"`
	Configuration []string `json:"configuration"`
	Other         []string `json:"other"`
}

func (c ChangeCategorization) TotalFiles() int {
	return len(c.CriticalFiles) + len(c.SourceCode) + len(c.Documentation) +
		len(c.Tests) + len(c.Configuration) + len(c.Other)
}

func (c ChangeCategorization) HasCriticalChanges() bool {
	return len(c.CriticalFiles) > 0
}

// RiskLevel is the overall risk of a change set.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// RiskAssessment is the result of scoring a set of changed files.
type RiskAssessment struct {
	RiskLevel          RiskLevel `json:"risk_level"`
	RiskFactors        []string  `json:"risk_factors"`
	LargeChanges       []string  `json:"large_changes"`
	PotentialConflicts []string  `json:"potential_conflicts"`
	BinaryChanges      []string  `json:"binary_changes"`
}

func (r RiskAssessment) IsHighRisk() bool {
	return r.RiskLevel == RiskHigh
}

// RiskScore maps the assessment onto 0..10.
func (r RiskAssessment) RiskScore() int {
	var score int
	switch r.RiskLevel {
	case RiskHigh:
		score = 8
	case RiskMedium:
		score = 5
	default:
		score = 2
	}
	if len(r.LargeChanges) > 5 {
		score++
	}
	if len(r.PotentialConflicts) > 0 {
		score++
	}
	return min(score, 10)
}

// LocalRepository identifies an analyzed repository.
type LocalRepository struct {
	Path          string `json:"path"`
	Name          string `json:"name"`
	CurrentBranch string `json:"current_branch"`
	HeadCommit    string `json:"head_commit,omitempty"`
	RemoteURL     string `json:"remote_url,omitempty"`
	IsDirty       bool   `json:"is_dirty"`
}

// RepositoryStatus is the full snapshot of outstanding work in a repository.
type RepositoryStatus struct {
	Repository       LocalRepository         `json:"repository"`
	WorkingDirectory WorkingDirectoryChanges `json:"working_directory"`
	StagedChanges    StagedChanges           `json:"staged_changes"`
	UnpushedCommits  []UnpushedCommit        `json:"unpushed_commits"`
	StashedChanges   []StashedChanges        `json:"stashed_changes"`
	BranchStatus     BranchStatus            `json:"branch_status"`
}

func (s RepositoryStatus) HasOutstandingWork() bool {
	return s.WorkingDirectory.HasChanges() ||
		s.StagedChanges.ReadyToCommit() ||
		len(s.UnpushedCommits) > 0 ||
		len(s.StashedChanges) > 0
}

func (s RepositoryStatus) TotalOutstandingChanges() int {
	return s.WorkingDirectory.TotalFiles() +
		s.StagedChanges.TotalStaged() +
		len(s.UnpushedCommits) +
		len(s.StashedChanges)
}

// OutstandingChangesAnalysis is a summarized view of a RepositoryStatus.
type OutstandingChangesAnalysis struct {
	ID                    string               `json:"analysis_id"`
	RepositoryPath        string               `json:"repository_path"`
	AnalysisTimestamp     time.Time            `json:"analysis_timestamp"`
	TotalOutstandingFiles int                  `json:"total_outstanding_files"`
	Categories            ChangeCategorization `json:"categories"`
	RiskAssessment        RiskAssessment       `json:"risk_assessment"`
	Recommendations       []string             `json:"recommendations"`
	Summary               string               `json:"summary"`
	RepositoryStatus      *RepositoryStatus    `json:"repository_status,omitempty"`
}

// IsReadyForCommit reports whether there is work to commit and the change set
// is not high risk.
func (a OutstandingChangesAnalysis) IsReadyForCommit() bool {
	if a.RepositoryStatus == nil {
		return false
	}
	return a.RepositoryStatus.WorkingDirectory.HasChanges() && !a.RiskAssessment.IsHighRisk()
}

// IsReadyForPush reports whether there are commits to push and nothing left
// uncommitted.
func (a OutstandingChangesAnalysis) IsReadyForPush() bool {
	if a.RepositoryStatus == nil {
		return false
	}
	rs := a.RepositoryStatus
	return len(rs.UnpushedCommits) > 0 &&
		!rs.WorkingDirectory.HasChanges() &&
		!rs.StagedChanges.ReadyToCommit()
}

func (a OutstandingChangesAnalysis) NeedsAttention() bool {
	return a.RiskAssessment.IsHighRisk() ||
		len(a.RiskAssessment.PotentialConflicts) > 0 ||
		a.TotalOutstandingFiles > 50
}
