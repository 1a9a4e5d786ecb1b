// Package report renders a repository snapshot as a Markdown document,
// either raw for piping into other tools or styled for the terminal with
// glamour.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"mcp-local-repo-analyzer/internal/analyzer"
	"mcp-local-repo-analyzer/internal/model"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

// DefaultWidth is the word wrap width used when Options.Width is unset.
const DefaultWidth = 100

// Options controls how Render writes a report.
type Options struct {
	// Style is a glamour standard style name. Empty selects one from the
	// terminal, see DetectStyle.
	Style string
	Width int
	// Raw writes the Markdown source without styling.
	Raw bool
}

// Markdown formats snap as a Markdown document.
func Markdown(snap analyzer.Snapshot) string {
	st := snap.Status
	bs := st.BranchStatus

	var b strings.Builder
	fmt.Fprintf(&b, "# Repository report: %s\n\n", st.Repository.Name)
	fmt.Fprintf(&b, "_%s_\n\n", snap.Summary)

	b.WriteString("## Overview\n\n")
	b.WriteString("| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Path | `%s` |\n", st.Repository.Path)
	fmt.Fprintf(&b, "| Branch | %s |\n", bs.CurrentBranch)
	fmt.Fprintf(&b, "| Upstream | %s |\n", orNone(bs.UpstreamBranch))
	fmt.Fprintf(&b, "| Sync | %s |\n", bs.SyncStatus())
	fmt.Fprintf(&b, "| Risk | %s (%d/10) |\n", snap.Risk.RiskLevel, snap.Risk.RiskScore())
	fmt.Fprintf(&b, "| Health | %d/100 (%s) |\n", snap.Health.Score, snap.Health.Status)
	fmt.Fprintf(&b, "| Ready to push | %s |\n", yesNo(snap.Push.Ready))
	fmt.Fprintf(&b, "| Generated | %s |\n\n", snap.TakenAt.Format(time.RFC3339))

	b.WriteString("## Uncommitted changes\n\n")
	if len(snap.Files) == 0 {
		b.WriteString("No uncommitted changes.\n\n")
	} else {
		b.WriteString("| Status | File | Staged | Changes |\n|---|---|---|---|\n")
		for _, f := range snap.Files {
			fmt.Fprintf(&b, "| %s | `%s` | %s | %s |\n", f.StatusDescription(), f.Path, yesNo(f.Staged), lineStats(f))
		}
		b.WriteString("\n")
	}

	if len(snap.Risk.RiskFactors) > 0 {
		b.WriteString("### Risk factors\n\n")
		writeList(&b, snap.Risk.RiskFactors)
	}

	b.WriteString("## Unpushed commits\n\n")
	if len(st.UnpushedCommits) == 0 {
		b.WriteString("No unpushed commits.\n\n")
	} else {
		for _, c := range st.UnpushedCommits {
			fmt.Fprintf(&b, "- `%s` %s (%s, +%d -%d)\n", c.ShortSHA(), escape(c.ShortMessage()), c.Author, c.Insertions, c.Deletions)
		}
		b.WriteString("\n")
	}

	if len(st.StashedChanges) > 0 {
		b.WriteString("## Stashes\n\n")
		for _, s := range st.StashedChanges {
			fmt.Fprintf(&b, "- `%s` %s (on %s)\n", s.Name(), escape(s.Message), s.Branch)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Recommendations\n\n")
	if len(snap.Recommendations) == 0 {
		b.WriteString("Nothing to do.\n\n")
	} else {
		writeList(&b, snap.Recommendations)
	}

	// with nothing to push and nothing blocking, the sections above say it all
	if len(snap.Push.Blockers) > 0 || snap.Push.HasCommitsToPush {
		b.WriteString("## Push readiness\n\n")
		for _, blocker := range snap.Push.Blockers {
			fmt.Fprintf(&b, "- **Blocker:** %s\n", blocker)
		}
		for _, warning := range snap.Push.Warnings {
			fmt.Fprintf(&b, "- **Warning:** %s\n", warning)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func writeList(b *strings.Builder, items []string) {
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

func lineStats(f model.FileStatus) string {
	if f.IsBinary {
		return "binary"
	}
	return fmt.Sprintf("+%d -%d", f.LinesAdded, f.LinesDeleted)
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

var mdEscaper = strings.NewReplacer("|", `\|`, "*", `\*`, "_", `\_`)

func escape(s string) string {
	return mdEscaper.Replace(s)
}

// Render writes the report for snap to w.
func Render(w io.Writer, snap analyzer.Snapshot, opts Options) error {
	md := Markdown(snap)
	if opts.Raw {
		_, err := io.WriteString(w, md)
		return err
	}

	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Style == "" {
		opts.Style = DetectStyle(os.Stdout, 50*time.Millisecond)
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(opts.Style),
		glamour.WithWordWrap(opts.Width),
	)
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}
	out, err := renderer.Render(md)
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}

// DetectStyle picks a glamour style for f. GLAMOUR_STYLE wins when set to
// anything but "auto". Non-terminals get "notty"; otherwise the background
// is queried, falling back to "dark" if the terminal does not answer within
// timeout.
func DetectStyle(f *os.File, timeout time.Duration) string {
	if style := os.Getenv("GLAMOUR_STYLE"); style != "" && style != "auto" {
		return style
	}

	out := termenv.NewOutput(f)
	if out.Profile == termenv.Ascii {
		return "notty"
	}

	ch := make(chan string, 1)
	go func() {
		if out.HasDarkBackground() {
			ch <- "dark"
			return
		}
		ch <- "light"
	}()

	select {
	case style := <-ch:
		return style
	case <-time.After(timeout):
		return "dark"
	}
}
