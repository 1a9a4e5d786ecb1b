package analyzer

import (
	"context"
	"time"

	"mcp-local-repo-analyzer/internal/model"
)

// Snapshot is a RepositoryStatus with every derived view computed once, for
// callers that render the whole picture at the same time.
type Snapshot struct {
	Status          model.RepositoryStatus
	TakenAt         time.Time
	Files           []model.FileStatus
	Categories      model.ChangeCategorization
	Risk            model.RiskAssessment
	Health          HealthReport
	Push            PushReadiness
	Sync            SyncAdvice
	Recommendations []string
	Summary         string
}

// NewSnapshot analyzes status with da. Files lists working tree changes
// followed by staged files.
func NewSnapshot(status model.RepositoryStatus, da *DiffAnalyzer) Snapshot {
	files := status.WorkingDirectory.AllFiles()
	files = append(files, status.StagedChanges.StagedFiles...)

	cats := da.CategorizeChanges(files)
	risk := da.AssessRisk(files)

	return Snapshot{
		Status:          status,
		TakenAt:         time.Now(),
		Files:           files,
		Categories:      cats,
		Risk:            risk,
		Health:          ScoreHealth(MetricsFor(status)),
		Push:            AssessPushReadiness(status),
		Sync:            AdviseSync(status.BranchStatus),
		Recommendations: Recommendations(status, risk, cats),
		Summary:         SummaryText(status, risk),
	}
}

// Snapshot gathers the repository status and analyzes it with da.
func (st *StatusTracker) Snapshot(ctx context.Context, repo model.LocalRepository, da *DiffAnalyzer) (Snapshot, error) {
	status, err := st.GetRepositoryStatus(ctx, repo)
	if err != nil {
		return Snapshot{}, err
	}
	return NewSnapshot(status, da), nil
}
