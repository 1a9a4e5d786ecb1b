package analyzer

import (
	"fmt"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"mcp-local-repo-analyzer/internal/config"
	"mcp-local-repo-analyzer/internal/model"
)

var hunkHeaderPattern = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

var sourceExtensions = map[string]bool{
	"py": true, "js": true, "ts": true, "tsx": true, "jsx": true, "java": true,
	"go": true, "rs": true, "c": true, "cpp": true, "h": true, "cs": true,
	"rb": true, "php": true, "swift": true, "kt": true, "scala": true, "sh": true,
}

var docExtensions = map[string]bool{
	"md": true, "rst": true, "txt": true, "tex": true, "adoc": true,
}

var configExtensions = map[string]bool{
	"json": true, "yaml": true, "yml": true, "toml": true, "ini": true, "cfg": true,
	"conf": true, "env": true, "properties": true, "xml": true,
}

var lockFiles = map[string]bool{
	"package-lock.json": true,
	"yarn.lock":         true,
	"pnpm-lock.yaml":    true,
	"go.sum":            true,
	"cargo.lock":        true,
	"poetry.lock":       true,
	"gemfile.lock":      true,
	"composer.lock":     true,
}

var testDirs = map[string]bool{"test": true, "tests": true, "__tests__": true, "spec": true}

var docDirs = map[string]bool{"docs": true, "doc": true, "documentation": true}

// DiffAnalyzer parses diffs and classifies changed files.
type DiffAnalyzer struct {
	cfg config.AnalyzerConfig
}

// NewDiffAnalyzer creates a DiffAnalyzer using the given thresholds and patterns.
func NewDiffAnalyzer(cfg config.AnalyzerConfig) *DiffAnalyzer {
	return &DiffAnalyzer{cfg: cfg}
}

// ParseDiff splits unified diff text into per-file diffs. Sections start at
// a "diff --git" line; sections without recognizable paths are skipped.
func (da *DiffAnalyzer) ParseDiff(text string) []model.FileDiff {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var sections []string
	var current []string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "diff --git") {
			if current != nil {
				sections = append(sections, strings.Join(current, "\n"))
			}
			current = []string{strings.TrimSpace(strings.TrimPrefix(line, "diff --git"))}
			continue
		}
		if current != nil {
			current = append(current, line)
		}
	}
	if current != nil {
		sections = append(sections, strings.Join(current, "\n"))
	}

	var diffs []model.FileDiff
	for _, section := range sections {
		if fd, ok := da.parseFileDiff(section); ok {
			diffs = append(diffs, fd)
		}
	}
	return diffs
}

// parseFileDiff parses one section, without its "diff --git " prefix.
func (da *DiffAnalyzer) parseFileDiff(section string) (model.FileDiff, bool) {
	lines := strings.Split(section, "\n")

	oldPath, newPath := headerPaths(lines[0])

	fd := model.FileDiff{
		DiffContent: "diff --git " + strings.TrimRight(section, "\n"),
		Hunks:       []model.DiffHunk{},
	}

	// extended headers end at the first hunk; body lines may look like them
	for _, line := range lines {
		if strings.HasPrefix(line, "@@") {
			break
		}
		switch {
		case strings.HasPrefix(line, "--- "):
			if p := stripDiffPath(strings.TrimPrefix(line, "--- "), "a/"); p != "" {
				oldPath = p
			}
		case strings.HasPrefix(line, "+++ "):
			if p := stripDiffPath(strings.TrimPrefix(line, "+++ "), "b/"); p != "" {
				newPath = p
			}
		case strings.HasPrefix(line, "old mode "):
			fd.FileModeOld = strings.TrimPrefix(line, "old mode ")
		case strings.HasPrefix(line, "new mode "):
			fd.FileModeNew = strings.TrimPrefix(line, "new mode ")
		case strings.HasPrefix(line, "new file mode "):
			fd.FileModeNew = strings.TrimPrefix(line, "new file mode ")
		case strings.HasPrefix(line, "deleted file mode "):
			fd.FileModeOld = strings.TrimPrefix(line, "deleted file mode ")
		case strings.HasPrefix(line, "Binary files "):
			fd.IsBinary = true
		}
	}

	// a deleted file only has an old path
	if newPath == "" {
		newPath = oldPath
	}
	if newPath == "" {
		return model.FileDiff{}, false
	}

	fd.FilePath = newPath
	if oldPath != "" && oldPath != newPath {
		fd.OldPath = oldPath
	}

	if fd.IsBinary {
		return fd, true
	}

	fd.Hunks = da.ParseHunks(lines)
	inHunk := false
	for _, line := range lines {
		if strings.HasPrefix(line, "@@") {
			inHunk = true
			continue
		}
		if !inHunk {
			continue
		}
		switch {
		case strings.HasPrefix(line, "+"):
			fd.LinesAdded++
		case strings.HasPrefix(line, "-"):
			fd.LinesDeleted++
		}
	}

	return fd, true
}

// headerPaths reads the paths from "a/<old> b/<new>". Paths may contain
// spaces; when both sides name the same file the split is unambiguous.
func headerPaths(header string) (string, string) {
	header = strings.TrimSpace(header)
	if !strings.HasPrefix(header, "a/") {
		return "", ""
	}
	rest := header[len("a/"):]

	if n := len(rest) - len(" b/"); n > 0 && n%2 == 0 {
		half := n / 2
		if rest[half:half+len(" b/")] == " b/" && rest[:half] == rest[half+len(" b/"):] {
			return rest[:half], rest[:half]
		}
	}

	oldPath, newPath, ok := strings.Cut(rest, " b/")
	if !ok {
		return "", ""
	}
	return oldPath, newPath
}

// stripDiffPath removes the a/ or b/ prefix; /dev/null yields "".
func stripDiffPath(p, prefix string) string {
	p = strings.TrimSpace(p)
	if i := strings.IndexByte(p, '\t'); i >= 0 {
		p = p[:i]
	}
	if p == "/dev/null" {
		return ""
	}
	return strings.TrimPrefix(p, prefix)
}

// ParseHunks extracts the @@ hunks from diff lines. Missing line counts
// default to 1 and malformed headers are ignored along with their bodies.
func (da *DiffAnalyzer) ParseHunks(lines []string) []model.DiffHunk {
	hunks := []model.DiffHunk{}
	var current *model.DiffHunk
	var body []string

	flush := func() {
		if current == nil {
			return
		}
		current.Content = strings.Join(body, "\n")
		hunks = append(hunks, *current)
		current = nil
		body = nil
	}

	for _, line := range lines {
		if strings.HasPrefix(line, "@@") {
			flush()
			m := hunkHeaderPattern.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			current = &model.DiffHunk{
				OldStart:     atoi(m[1], 0),
				OldLines:     atoi(m[2], 1),
				NewStart:     atoi(m[3], 0),
				NewLines:     atoi(m[4], 1),
				ContextLines: []string{},
			}
			body = []string{line}
			continue
		}
		if current == nil {
			continue
		}
		if strings.HasPrefix(line, "diff --git ") {
			flush()
			continue
		}
		body = append(body, line)
		if strings.HasPrefix(line, " ") {
			current.ContextLines = append(current.ContextLines, line[1:])
		}
	}
	flush()

	return hunks
}

func atoi(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// CategorizeChanges buckets files by the first matching category: critical,
// tests, source code, documentation, configuration, other.
func (da *DiffAnalyzer) CategorizeChanges(files []model.FileStatus) model.ChangeCategorization {
	cats := model.ChangeCategorization{
		CriticalFiles: []string{},
		SourceCode:    []string{},
		Documentation: []string{},
		Tests:         []string{},
		Configuration: []string{},
		Other:         []string{},
	}

	for _, f := range files {
		p := f.Path
		switch {
		case da.IsCritical(p):
			cats.CriticalFiles = append(cats.CriticalFiles, p)
		case IsTestFile(p):
			cats.Tests = append(cats.Tests, p)
		case IsSourceCode(p):
			cats.SourceCode = append(cats.SourceCode, p)
		case IsDocumentation(p):
			cats.Documentation = append(cats.Documentation, p)
		case IsConfiguration(p):
			cats.Configuration = append(cats.Configuration, p)
		default:
			cats.Other = append(cats.Other, p)
		}
	}

	return cats
}

// MatchesPattern reports whether p matches pattern, case-insensitively.
// The pattern is tried against both the base name and the full path.
func MatchesPattern(p, pattern string) bool {
	p = strings.ToLower(p)
	pattern = strings.ToLower(pattern)
	base := path.Base(p)

	if !strings.ContainsAny(pattern, "*?[") {
		return base == pattern || p == pattern
	}
	if ok, _ := path.Match(pattern, base); ok {
		return true
	}
	ok, _ := path.Match(pattern, p)
	return ok
}

// IsCritical reports whether p matches one of the configured critical patterns.
func (da *DiffAnalyzer) IsCritical(p string) bool {
	for _, pattern := range da.cfg.CriticalPatterns {
		if MatchesPattern(p, pattern) {
			return true
		}
	}
	return false
}

// IsSensitive reports whether p contains one of the configured sensitive
// fragments such as "auth" or "secret".
func (da *DiffAnalyzer) IsSensitive(p string) bool {
	lower := strings.ToLower(p)
	for _, pattern := range da.cfg.SensitivePatterns {
		if pattern != "" && strings.Contains(lower, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

func extension(p string) string {
	return strings.TrimPrefix(strings.ToLower(path.Ext(p)), ".")
}

func dirs(p string) []string {
	parts := strings.Split(strings.ToLower(p), "/")
	return parts[:len(parts)-1]
}

func IsTestFile(p string) bool {
	base := strings.ToLower(path.Base(p))
	stem := strings.TrimSuffix(base, path.Ext(base))
	if strings.HasPrefix(base, "test_") || strings.HasSuffix(stem, "_test") ||
		strings.Contains(base, ".test.") || strings.Contains(base, ".spec.") {
		return true
	}
	for _, d := range dirs(p) {
		if testDirs[d] {
			return true
		}
	}
	return false
}

func IsSourceCode(p string) bool {
	return sourceExtensions[extension(p)]
}

func IsDocumentation(p string) bool {
	if docExtensions[extension(p)] {
		return true
	}
	for _, d := range dirs(p) {
		if docDirs[d] {
			return true
		}
	}
	return false
}

func IsConfiguration(p string) bool {
	return configExtensions[extension(p)]
}

// MightConflict reports whether a change is likely to conflict on merge:
// renames and copies, lock files, migrations and changes above the
// configured line threshold.
func (da *DiffAnalyzer) MightConflict(f model.FileStatus) bool {
	if f.StatusCode == "R" || f.StatusCode == "C" {
		return true
	}
	lower := strings.ToLower(f.Path)
	if lockFiles[path.Base(lower)] {
		return true
	}
	if strings.Contains(lower, "migration") {
		return true
	}
	return f.TotalChanges() > da.cfg.ConflictLineThreshold
}

// AssessRisk scores a set of changed files.
func (da *DiffAnalyzer) AssessRisk(files []model.FileStatus) model.RiskAssessment {
	ra := model.RiskAssessment{
		RiskLevel:          model.RiskLow,
		RiskFactors:        []string{},
		LargeChanges:       []string{},
		PotentialConflicts: []string{},
		BinaryChanges:      []string{},
	}

	points := 0
	totalLines := 0
	var critical, sensitive int

	for _, f := range files {
		totalLines += f.TotalChanges()
		if f.TotalChanges() > da.cfg.LargeChangeThreshold {
			ra.LargeChanges = append(ra.LargeChanges, f.Path)
		}
		if f.IsBinary {
			ra.BinaryChanges = append(ra.BinaryChanges, f.Path)
		}
		if da.MightConflict(f) {
			ra.PotentialConflicts = append(ra.PotentialConflicts, f.Path)
		}
		if da.IsCritical(f.Path) {
			critical++
		}
		if da.IsSensitive(f.Path) {
			sensitive++
		}
	}

	if len(files) > da.cfg.ManyFilesThreshold {
		points += 3
		ra.RiskFactors = append(ra.RiskFactors, fmt.Sprintf("%d files changed", len(files)))
	}
	if totalLines > da.cfg.MassiveChangeThreshold {
		points += 3
		ra.RiskFactors = append(ra.RiskFactors, fmt.Sprintf("%d total line changes", totalLines))
	}
	if n := len(ra.LargeChanges); n > 0 {
		if n > 5 {
			points += 2
		} else {
			points++
		}
		ra.RiskFactors = append(ra.RiskFactors, fmt.Sprintf("%d file(s) with more than %d line changes", n, da.cfg.LargeChangeThreshold))
	}
	if n := len(ra.PotentialConflicts); n > 0 {
		points++
		ra.RiskFactors = append(ra.RiskFactors, fmt.Sprintf("%d potential conflict(s)", n))
	}
	if n := len(ra.BinaryChanges); n > 0 {
		points++
		ra.RiskFactors = append(ra.RiskFactors, fmt.Sprintf("%d binary file(s) changed", n))
	}
	if critical > 0 {
		points += 2
		ra.RiskFactors = append(ra.RiskFactors, fmt.Sprintf("%d critical file(s) changed", critical))
	}
	if sensitive > 0 {
		points += 2
		ra.RiskFactors = append(ra.RiskFactors, fmt.Sprintf("%d sensitive file(s) changed", sensitive))
	}

	switch {
	case points >= 3:
		ra.RiskLevel = model.RiskHigh
	case points >= 1:
		ra.RiskLevel = model.RiskMedium
	}

	return ra
}

// Statistics summarizes line counts across files.
type Statistics struct {
	TotalFiles            int     `json:"total_files"`
	TotalAdditions        int     `json:"total_additions"`
	TotalDeletions        int     `json:"total_deletions"`
	TotalChanges          int     `json:"total_changes"`
	AverageChangesPerFile float64 `json:"average_changes_per_file"`
}

// ChangedFile is an entry of Insights.MostChangedFiles.
type ChangedFile struct {
	Path      string `json:"path"`
	Changes   int    `json:"changes"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Status    string `json:"status"`
}

// Patterns flags notable shapes of a change set.
type Patterns struct {
	SourceWithoutTests   bool `json:"source_without_tests"`
	DocumentationUpdated bool `json:"documentation_updated"`
	ConfigurationChanged bool `json:"configuration_changed"`
	CriticalChanges      bool `json:"critical_changes"`
	NewFiles             int  `json:"new_files"`
	DeletedFiles         int  `json:"deleted_files"`
	BinaryFiles          int  `json:"binary_files"`
}

// Insights is the combined analysis produced by GenerateInsights.
type Insights struct {
	Categories       model.ChangeCategorization `json:"categories"`
	RiskAssessment   model.RiskAssessment       `json:"risk_assessment"`
	RiskScore        int                        `json:"risk_score"`
	Statistics       Statistics                 `json:"statistics"`
	FileTypes        map[string]int             `json:"file_types"`
	MostChangedFiles []ChangedFile              `json:"most_changed_files"`
	Patterns         Patterns                   `json:"patterns"`
}

// FileTypes counts files per extension, without the dot. Files without an
// extension are counted under "no_extension".
func FileTypes(files []model.FileStatus) map[string]int {
	types := make(map[string]int)
	for _, f := range files {
		ext := extension(f.Path)
		if ext == "" {
			ext = "no_extension"
		}
		types[ext]++
	}
	return types
}

// GenerateInsights combines categorization, risk, statistics and patterns.
func (da *DiffAnalyzer) GenerateInsights(files []model.FileStatus) Insights {
	cats := da.CategorizeChanges(files)
	risk := da.AssessRisk(files)

	var stats Statistics
	stats.TotalFiles = len(files)
	for _, f := range files {
		stats.TotalAdditions += f.LinesAdded
		stats.TotalDeletions += f.LinesDeleted
	}
	stats.TotalChanges = stats.TotalAdditions + stats.TotalDeletions
	if stats.TotalFiles > 0 {
		stats.AverageChangesPerFile = float64(stats.TotalChanges) / float64(stats.TotalFiles)
	}

	sorted := make([]model.FileStatus, len(files))
	copy(sorted, files)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TotalChanges() > sorted[j].TotalChanges()
	})
	most := make([]ChangedFile, 0, min(10, len(sorted)))
	for _, f := range sorted[:min(10, len(sorted))] {
		most = append(most, ChangedFile{
			Path:      f.Path,
			Changes:   f.TotalChanges(),
			Additions: f.LinesAdded,
			Deletions: f.LinesDeleted,
			Status:    f.StatusDescription(),
		})
	}

	patterns := Patterns{
		SourceWithoutTests:   len(cats.SourceCode) > 0 && len(cats.Tests) == 0,
		DocumentationUpdated: len(cats.Documentation) > 0,
		ConfigurationChanged: len(cats.Configuration) > 0,
		CriticalChanges:      cats.HasCriticalChanges(),
		BinaryFiles:          len(risk.BinaryChanges),
	}
	for _, f := range files {
		switch f.ChangeType() {
		case model.ChangeAddition, model.ChangeUntracked:
			patterns.NewFiles++
		case model.ChangeDeletion:
			patterns.DeletedFiles++
		}
	}

	return Insights{
		Categories:       cats,
		RiskAssessment:   risk,
		RiskScore:        risk.RiskScore(),
		Statistics:       stats,
		FileTypes:        FileTypes(files),
		MostChangedFiles: most,
		Patterns:         patterns,
	}
}
