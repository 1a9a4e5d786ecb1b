package tui

import (
	"fmt"
	"strings"

	"mcp-local-repo-analyzer/internal/analyzer"
	"mcp-local-repo-analyzer/internal/model"
	"mcp-local-repo-analyzer/internal/tui/styles"

	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
)

type section int

const (
	sectionOverview section = iota
	sectionChanges
	sectionCommits
	sectionStashes
	sectionAdvice
	sectionCount
)

var sectionTitles = [sectionCount]string{"Overview", "Changes", "Commits", "Stashes", "Advice"}

func (s section) String() string {
	return sectionTitles[s]
}

func (s section) next() section {
	return (s + 1) % sectionCount
}

func (s section) prev() section {
	return (s + sectionCount - 1) % sectionCount
}

// renderSection lays out one section of snap for the given width.
func renderSection(s section, snap analyzer.Snapshot, width int) string {
	switch s {
	case sectionChanges:
		return renderChanges(snap, width)
	case sectionCommits:
		return renderCommits(snap, width)
	case sectionStashes:
		return renderStashes(snap, width)
	case sectionAdvice:
		return renderAdvice(snap, width)
	default:
		return renderOverview(snap, width)
	}
}

func header(title string) string {
	return styles.SectionHeaderStyle.Render(title)
}

func row(label string, value any) string {
	return fmt.Sprintf("%-22s %v", label+":", value)
}

func bullets(items []string, width int) []string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		wrapped := wordwrap.String(item, max(width-4, 10))
		lines = append(lines, "  • "+strings.ReplaceAll(wrapped, "\n", "\n    "))
	}
	return lines
}

func renderOverview(snap analyzer.Snapshot, width int) string {
	st := snap.Status
	bs := st.BranchStatus

	upstream := bs.UpstreamBranch
	if upstream == "" {
		upstream = "(none)"
	}

	lines := []string{
		header("Repository"),
		row("Path", truncate.StringWithTail(st.Repository.Path, uint(max(width-24, 10)), "…")),
		row("Branch", bs.CurrentBranch),
		row("Upstream", upstream),
		row("Sync", bs.SyncStatus()),
		"",
		header("Outstanding work"),
		row("Working directory", st.WorkingDirectory.TotalFiles()),
		row("Staged", st.StagedChanges.TotalStaged()),
		row("Unpushed commits", len(st.UnpushedCommits)),
		row("Stashes", len(st.StashedChanges)),
		"",
		header("Assessment"),
		row("Risk", styles.RiskStyle(snap.Risk.RiskLevel).Render(fmt.Sprintf("%s (%d/10)", snap.Risk.RiskLevel, snap.Risk.RiskScore()))),
		row("Health", styles.HealthStyle(snap.Health.Score).Render(fmt.Sprintf("%d/100 %s", snap.Health.Score, snap.Health.Status))),
		row("Ready to push", snap.Push.Ready),
	}
	if len(snap.Risk.RiskFactors) > 0 {
		lines = append(lines, "", header("Risk factors"))
		lines = append(lines, bullets(snap.Risk.RiskFactors, width)...)
	}
	return strings.Join(lines, "\n")
}

func fileLine(f model.FileStatus, width int) string {
	stats := fmt.Sprintf("+%d -%d", f.LinesAdded, f.LinesDeleted)
	if f.IsBinary {
		stats = "binary"
	}
	name := f.Path
	if f.OldPath != "" {
		name = f.OldPath + " → " + f.Path
	}
	name = truncate.StringWithTail(name, uint(max(width-18, 10)), "…")
	return fmt.Sprintf("  %-2s %s  %s", f.StatusCode, name, styles.MutedTextStyle.Render(stats))
}

func renderChanges(snap analyzer.Snapshot, width int) string {
	st := snap.Status
	if !st.WorkingDirectory.HasChanges() && !st.StagedChanges.ReadyToCommit() {
		return styles.SuccessStyle.Render("No uncommitted changes.")
	}

	var lines []string
	if files := st.StagedChanges.StagedFiles; len(files) > 0 {
		lines = append(lines, header(fmt.Sprintf("Staged (%d)", len(files))))
		for _, f := range files {
			lines = append(lines, fileLine(f, width))
		}
		lines = append(lines, "")
	}

	if files := st.WorkingDirectory.AllFiles(); len(files) > 0 {
		lines = append(lines, header(fmt.Sprintf("Working directory (%d)", len(files))))
		for _, f := range files {
			lines = append(lines, fileLine(f, width))
		}
		lines = append(lines, "")
	}

	c := snap.Categories
	lines = append(lines, header("Categories"),
		row("Critical", len(c.CriticalFiles)),
		row("Source code", len(c.SourceCode)),
		row("Tests", len(c.Tests)),
		row("Documentation", len(c.Documentation)),
		row("Configuration", len(c.Configuration)),
		row("Other", len(c.Other)),
	)
	return strings.Join(lines, "\n")
}

func renderCommits(snap analyzer.Snapshot, width int) string {
	commits := snap.Status.UnpushedCommits
	if len(commits) == 0 {
		return styles.SuccessStyle.Render("No unpushed commits.")
	}

	lines := []string{header(fmt.Sprintf("Unpushed commits (%d)", len(commits)))}
	for _, c := range commits {
		msg := truncate.StringWithTail(c.ShortMessage(), uint(max(width-30, 10)), "…")
		lines = append(lines, fmt.Sprintf("  %s %s  %s",
			styles.WarningStyle.Render(c.ShortSHA()),
			msg,
			styles.MutedTextStyle.Render(fmt.Sprintf("%s, +%d -%d", c.Author, c.Insertions, c.Deletions))))
	}
	return strings.Join(lines, "\n")
}

func renderStashes(snap analyzer.Snapshot, width int) string {
	stashes := snap.Status.StashedChanges
	if len(stashes) == 0 {
		return styles.SuccessStyle.Render("No stashed changes.")
	}

	lines := []string{header(fmt.Sprintf("Stashes (%d)", len(stashes)))}
	for _, s := range stashes {
		msg := truncate.StringWithTail(s.Message, uint(max(width-20, 10)), "…")
		lines = append(lines, fmt.Sprintf("  %s %s", styles.WarningStyle.Render(s.Name()), msg))
		lines = append(lines, styles.MutedTextStyle.Render(fmt.Sprintf("      on %s, %s, %d file(s)",
			s.Branch, s.Date.Format("2006-01-02 15:04"), len(s.FilesAffected))))
	}
	return strings.Join(lines, "\n")
}

func renderAdvice(snap analyzer.Snapshot, width int) string {
	lines := []string{header("Recommendations")}
	if len(snap.Recommendations) == 0 {
		lines = append(lines, "  Nothing to do.")
	}
	lines = append(lines, bullets(snap.Recommendations, width)...)

	lines = append(lines, "", header("Push readiness"))
	if len(snap.Push.Blockers) > 0 {
		for _, b := range bullets(snap.Push.Blockers, width) {
			lines = append(lines, styles.ErrorStyle.Render(b))
		}
	}
	if len(snap.Push.Warnings) > 0 {
		for _, w := range bullets(snap.Push.Warnings, width) {
			lines = append(lines, styles.WarningStyle.Render(w))
		}
	}
	lines = append(lines, bullets(snap.Push.ActionPlan, width)...)

	lines = append(lines, "", header("Sync"), row("Priority", snap.Sync.Priority), row("Recommendation", snap.Sync.Recommendation))

	if len(snap.Health.Issues) > 0 {
		lines = append(lines, "", header("Health issues"))
		lines = append(lines, bullets(snap.Health.Issues, width)...)
	}
	return strings.Join(lines, "\n")
}
