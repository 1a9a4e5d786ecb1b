package analyzer

import (
	"fmt"
	"strings"
	"testing"

	"mcp-local-repo-analyzer/internal/config"
	"mcp-local-repo-analyzer/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDiffAnalyzer() *DiffAnalyzer {
	return NewDiffAnalyzer(config.DefaultAnalyzerConfig())
}

func TestParseDiff_Basic(t *testing.T) {
	text := `diff --git a/file1.py b/file1.py
index abc123..def456 100644
--- a/file1.py
+++ b/file1.py
@@ -1,3 +1,4 @@
 line1
+new_line
 line2
 line3
`
	diffs := newTestDiffAnalyzer().ParseDiff(text)

	require.Len(t, diffs, 1)
	assert.Equal(t, "file1.py", diffs[0].FilePath)
	assert.Empty(t, diffs[0].OldPath, "same path is not a rename")
	assert.Len(t, diffs[0].Hunks, 1)
	assert.Equal(t, 1, diffs[0].TotalChanges())
	assert.Equal(t, []string{"line1", "line2", "line3"}, diffs[0].Hunks[0].ContextLines)
}

func TestParseDiff_MultipleFiles(t *testing.T) {
	text := `diff --git a/file1.py b/file1.py
index abc123..def456 100644
--- a/file1.py
+++ b/file1.py
@@ -1,1 +1,1 @@
-old_line
+new_line
diff --git a/file2.py b/file2.py
index ghi789..jkl012 100644
--- a/file2.py
+++ b/file2.py
@@ -1,1 +1,2 @@
 line1
+line2
`
	diffs := newTestDiffAnalyzer().ParseDiff(text)

	require.Len(t, diffs, 2)
	assert.Equal(t, "file1.py", diffs[0].FilePath)
	assert.Equal(t, 1, diffs[0].LinesAdded)
	assert.Equal(t, 1, diffs[0].LinesDeleted)
	assert.Equal(t, "file2.py", diffs[1].FilePath)
	assert.Equal(t, 1, diffs[1].LinesAdded)
}

func TestParseDiff_Rename(t *testing.T) {
	text := `diff --git a/old_name.py b/new_name.py
index abc123..def456 100644
--- a/old_name.py
+++ b/new_name.py
@@ -1,1 +1,1 @@
-old_content
+new_content
`
	diffs := newTestDiffAnalyzer().ParseDiff(text)

	require.Len(t, diffs, 1)
	assert.Equal(t, "old_name.py", diffs[0].OldPath)
	assert.Equal(t, "new_name.py", diffs[0].FilePath)
}

func TestParseDiff_EmptyAndWhitespace(t *testing.T) {
	da := newTestDiffAnalyzer()
	assert.Empty(t, da.ParseDiff(""))
	assert.Empty(t, da.ParseDiff("   \n  \n"))
}

func TestParseDiff_SkipsMalformedSection(t *testing.T) {
	text := `diff --git a/file1.py b/file1.py
--- a/file1.py
+++ b/file1.py
@@ -1,1 +1,1 @@
-old_line
+new_line
diff --git
malformed section
`
	diffs := newTestDiffAnalyzer().ParseDiff(text)

	require.Len(t, diffs, 1)
	assert.Equal(t, "file1.py", diffs[0].FilePath)
}

func TestParseDiff_Binary(t *testing.T) {
	text := `diff --git a/image.png b/image.png
index abc123..def456 100644
Binary files a/image.png and b/image.png differ
`
	diffs := newTestDiffAnalyzer().ParseDiff(text)

	require.Len(t, diffs, 1)
	assert.True(t, diffs[0].IsBinary)
	assert.Zero(t, diffs[0].LinesAdded)
	assert.Zero(t, diffs[0].LinesDeleted)
}

func TestParseDiff_NewAndDeletedFiles(t *testing.T) {
	text := `diff --git a/added.go b/added.go
new file mode 100644
--- /dev/null
+++ b/added.go
@@ -0,0 +1,2 @@
+package added
+
diff --git a/gone.go b/gone.go
deleted file mode 100644
--- a/gone.go
+++ /dev/null
@@ -1 +0,0 @@
-package gone
`
	diffs := newTestDiffAnalyzer().ParseDiff(text)

	require.Len(t, diffs, 2)
	assert.Equal(t, "added.go", diffs[0].FilePath)
	assert.Empty(t, diffs[0].OldPath)
	assert.Equal(t, "100644", diffs[0].FileModeNew)
	assert.Equal(t, 2, diffs[0].LinesAdded)

	assert.Equal(t, "gone.go", diffs[1].FilePath)
	assert.Empty(t, diffs[1].OldPath)
	assert.Equal(t, "100644", diffs[1].FileModeOld)
	assert.Equal(t, 1, diffs[1].LinesDeleted)
}

func TestParseDiff_HeaderEdgeCases(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantPath    string
		wantOldPath string
		wantBinary  bool
		wantAdded   int
		wantDeleted int
	}{
		{
			name: "body lines that look like headers",
			text: `diff --git a/schema.sql b/schema.sql
--- a/schema.sql
+++ b/schema.sql
@@ -1,2 +1,2 @@
--- users table
+++ x
 create table users;
`,
			wantPath:    "schema.sql",
			wantAdded:   1,
			wantDeleted: 1,
		},
		{
			name: "path with spaces",
			text: `diff --git a/docs/my notes.md b/docs/my notes.md
--- a/docs/my notes.md
+++ b/docs/my notes.md
@@ -1 +1 @@
-old
+new
`,
			wantPath:    "docs/my notes.md",
			wantAdded:   1,
			wantDeleted: 1,
		},
		{
			name: "binary path with spaces",
			text: `diff --git a/my image.bin b/my image.bin
Binary files a/my image.bin and b/my image.bin differ
`,
			wantPath:   "my image.bin",
			wantBinary: true,
		},
		{
			name: "new binary file without file headers",
			text: `diff --git a/assets/logo.png b/assets/logo.png
new file mode 100644
Binary files a/assets/logo.png and b/assets/logo.png differ
`,
			wantPath:   "assets/logo.png",
			wantBinary: true,
		},
		{
			name: "rename with spaces from git header",
			text: `diff --git a/old name.txt b/new name.txt
similarity index 100%
`,
			wantPath:    "new name.txt",
			wantOldPath: "old name.txt",
		},
	}

	da := newTestDiffAnalyzer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diffs := da.ParseDiff(tt.text)

			require.Len(t, diffs, 1)
			assert.Equal(t, tt.wantPath, diffs[0].FilePath)
			assert.Equal(t, tt.wantOldPath, diffs[0].OldPath)
			assert.Equal(t, tt.wantBinary, diffs[0].IsBinary)
			assert.Equal(t, tt.wantAdded, diffs[0].LinesAdded)
			assert.Equal(t, tt.wantDeleted, diffs[0].LinesDeleted)
		})
	}
}

func TestParseFileDiff(t *testing.T) {
	da := newTestDiffAnalyzer()

	t.Run("paths from header lines", func(t *testing.T) {
		fd, ok := da.parseFileDiff("--- a/old_path/file.py\n+++ b/new_path/file.py\n@@ -1,1 +1,1 @@\n-a\n+b\n")
		require.True(t, ok)
		assert.Equal(t, "old_path/file.py", fd.OldPath)
		assert.Equal(t, "new_path/file.py", fd.FilePath)
	})

	t.Run("paths from git header", func(t *testing.T) {
		fd, ok := da.parseFileDiff("a/old_file.py b/new_file.py\nindex abc123..def456 100644\n@@ -1,1 +1,1 @@\n-a\n+b\n")
		require.True(t, ok)
		assert.Equal(t, "old_file.py", fd.OldPath)
		assert.Equal(t, "new_file.py", fd.FilePath)
	})

	t.Run("no path information", func(t *testing.T) {
		_, ok := da.parseFileDiff("@@ -1,1 +1,1 @@\n-old_content\n+new_content\n")
		assert.False(t, ok)
	})

	t.Run("malformed", func(t *testing.T) {
		_, ok := da.parseFileDiff("malformed content\nno proper diff format\n")
		assert.False(t, ok)
	})
}

func TestParseHunks(t *testing.T) {
	da := newTestDiffAnalyzer()

	t.Run("single", func(t *testing.T) {
		hunks := da.ParseHunks(strings.Split("@@ -1,3 +1,4 @@\n line1\n+new_line\n line2\n line3\n", "\n"))
		require.Len(t, hunks, 1)
		assert.Equal(t, 1, hunks[0].OldStart)
		assert.Equal(t, 3, hunks[0].OldLines)
		assert.Equal(t, 1, hunks[0].NewStart)
		assert.Equal(t, 4, hunks[0].NewLines)
	})

	t.Run("multiple", func(t *testing.T) {
		text := "@@ -1,3 +1,4 @@\n line1\n+new_line\n line2\n line3\n@@ -10,2 +11,3 @@\n line10\n+another_new_line\n line11\n"
		hunks := da.ParseHunks(strings.Split(text, "\n"))
		require.Len(t, hunks, 2)
		assert.Equal(t, 1, hunks[0].OldStart)
		assert.Equal(t, 10, hunks[1].OldStart)
		assert.Equal(t, 11, hunks[1].NewStart)
	})

	t.Run("counts default to one", func(t *testing.T) {
		hunks := da.ParseHunks(strings.Split("@@ -1 +1 @@\n-old_line\n+new_line\n", "\n"))
		require.Len(t, hunks, 1)
		assert.Equal(t, model.DiffHunk{
			OldStart: 1, OldLines: 1, NewStart: 1, NewLines: 1,
			Content:      "@@ -1 +1 @@\n-old_line\n+new_line\n",
			ContextLines: []string{},
		}, hunks[0])
	})

	t.Run("malformed header", func(t *testing.T) {
		hunks := da.ParseHunks(strings.Split("@@ malformed @@\n content\n", "\n"))
		assert.Empty(t, hunks)
	})
}

func TestCategorizeChanges(t *testing.T) {
	da := newTestDiffAnalyzer()

	cats := da.CategorizeChanges([]model.FileStatus{
		{Path: "src/main.py", StatusCode: "M"},
		{Path: "tests/test_main.py", StatusCode: "M"},
		{Path: "README.md", StatusCode: "M"},
		{Path: "docs/README.md", StatusCode: "M"},
		{Path: "config.json", StatusCode: "M"},
		{Path: "docs/guide.rst", StatusCode: "A"},
		{Path: "data.csv", StatusCode: "A"},
	})

	assert.Equal(t, []string{"src/main.py"}, cats.SourceCode)
	assert.Equal(t, []string{"tests/test_main.py"}, cats.Tests)
	assert.Equal(t, []string{"README.md", "docs/README.md"}, cats.CriticalFiles)
	assert.Equal(t, []string{"config.json"}, cats.Configuration)
	assert.Equal(t, []string{"docs/guide.rst"}, cats.Documentation)
	assert.Equal(t, []string{"data.csv"}, cats.Other)
	assert.Equal(t, 7, cats.TotalFiles())
}

func TestCategorizeChanges_Empty(t *testing.T) {
	cats := newTestDiffAnalyzer().CategorizeChanges(nil)
	assert.NotNil(t, cats.SourceCode)
	assert.Zero(t, cats.TotalFiles())
}

func TestFileClassifiers(t *testing.T) {
	da := newTestDiffAnalyzer()

	for _, p := range []string{"dockerfile", "Makefile", "LICENSE", "README.md", "config.env", "pyproject.toml", ".github/workflows/ci.yml"} {
		assert.True(t, da.IsCritical(p), p)
	}
	assert.False(t, da.IsCritical("regular_file.py"))

	for _, p := range []string{"script.py", "app.js", "component.tsx", "main.cpp", "service.go"} {
		assert.True(t, IsSourceCode(p), p)
	}
	assert.False(t, IsSourceCode("data.csv"))

	for _, p := range []string{"README.md", "docs/guide.rst", "documentation/setup.txt", "manual.tex"} {
		assert.True(t, IsDocumentation(p), p)
	}
	assert.False(t, IsDocumentation("script.py"))

	for _, p := range []string{"test_module.py", "module_test.py", "tests/unit_test.py", "__tests__/component.test.js", "spec/feature.spec.rb", "pkg/client_test.go"} {
		assert.True(t, IsTestFile(p), p)
	}
	assert.False(t, IsTestFile("regular_file.py"))
	assert.False(t, IsTestFile("contest.py"))

	for _, p := range []string{"config.json", "settings.yaml", "app.toml", "database.env"} {
		assert.True(t, IsConfiguration(p), p)
	}
	assert.False(t, IsConfiguration("script.py"))
}

func TestMatchesPattern(t *testing.T) {
	assert.True(t, MatchesPattern("config.env", "*.env"))
	assert.True(t, MatchesPattern("test_file.py", "test_*"))
	assert.False(t, MatchesPattern("file.txt", "*.env"))
	assert.True(t, MatchesPattern("dockerfile", "dockerfile"))
	assert.True(t, MatchesPattern("Dockerfile", "dockerfile"))
	assert.True(t, MatchesPattern("build/Dockerfile", "dockerfile"))
	assert.False(t, MatchesPattern("script.py", "dockerfile"))
}

func TestAssessRisk(t *testing.T) {
	da := newTestDiffAnalyzer()

	t.Run("small change is low risk", func(t *testing.T) {
		ra := da.AssessRisk([]model.FileStatus{{Path: "src/small.py", StatusCode: "M", LinesAdded: 3, LinesDeleted: 1}})
		assert.Equal(t, model.RiskLow, ra.RiskLevel)
		assert.Empty(t, ra.RiskFactors)
	})

	t.Run("no files is low risk", func(t *testing.T) {
		ra := da.AssessRisk(nil)
		assert.Equal(t, model.RiskLow, ra.RiskLevel)
		assert.NotNil(t, ra.RiskFactors)
	})

	t.Run("many files", func(t *testing.T) {
		files := make([]model.FileStatus, 25)
		for i := range files {
			files[i] = model.FileStatus{Path: fmt.Sprintf("file_%d.py", i), StatusCode: "M"}
		}
		ra := da.AssessRisk(files)
		assert.Equal(t, model.RiskHigh, ra.RiskLevel)
		assert.Contains(t, ra.RiskFactors, "25 files changed")
	})

	t.Run("massive line changes", func(t *testing.T) {
		ra := da.AssessRisk([]model.FileStatus{{Path: "big_file.py", StatusCode: "M", LinesAdded: 800, LinesDeleted: 500}})
		assert.Equal(t, model.RiskHigh, ra.RiskLevel)
		assert.Contains(t, ra.RiskFactors, "1300 total line changes")
		assert.Equal(t, []string{"big_file.py"}, ra.LargeChanges)
	})

	t.Run("binary files", func(t *testing.T) {
		ra := da.AssessRisk([]model.FileStatus{
			{Path: "image.png", StatusCode: "M", IsBinary: true},
			{Path: "data.bin", StatusCode: "M", IsBinary: true},
		})
		assert.Equal(t, model.RiskMedium, ra.RiskLevel)
		assert.Contains(t, ra.RiskFactors, "2 binary file(s) changed")
		assert.Equal(t, []string{"image.png", "data.bin"}, ra.BinaryChanges)
	})

	t.Run("rename is a potential conflict", func(t *testing.T) {
		ra := da.AssessRisk([]model.FileStatus{{Path: "new_name.py", StatusCode: "R", OldPath: "old_name.py"}})
		assert.Contains(t, ra.RiskFactors, "1 potential conflict(s)")
		assert.Equal(t, model.RiskMedium, ra.RiskLevel)
	})

	t.Run("lock files and migrations conflict", func(t *testing.T) {
		ra := da.AssessRisk([]model.FileStatus{
			{Path: "go.sum", StatusCode: "M"},
			{Path: "db/migrations/0001_init.sql", StatusCode: "A"},
			{Path: "src/app.py", StatusCode: "M", LinesAdded: 60},
			{Path: "src/other.py", StatusCode: "M", LinesAdded: 2},
		})
		assert.Equal(t, []string{"go.sum", "db/migrations/0001_init.sql", "src/app.py"}, ra.PotentialConflicts)
	})

	t.Run("sensitive files", func(t *testing.T) {
		ra := da.AssessRisk([]model.FileStatus{
			{Path: "src/auth.py", StatusCode: "M"},
			{Path: "config/secrets.py", StatusCode: "M"},
		})
		assert.Contains(t, ra.RiskFactors, "2 sensitive file(s) changed")
		assert.Equal(t, model.RiskMedium, ra.RiskLevel)
	})

	t.Run("critical files", func(t *testing.T) {
		ra := da.AssessRisk([]model.FileStatus{{Path: "Dockerfile", StatusCode: "M"}})
		assert.Contains(t, ra.RiskFactors, "1 critical file(s) changed")
		assert.Equal(t, model.RiskMedium, ra.RiskLevel)
	})

	t.Run("large changes add up", func(t *testing.T) {
		ra := da.AssessRisk([]model.FileStatus{
			{Path: "a.py", StatusCode: "M", LinesAdded: 700},
			{Path: "b.py", StatusCode: "M", LinesAdded: 400},
		})
		assert.Equal(t, model.RiskHigh, ra.RiskLevel)
		assert.Len(t, ra.LargeChanges, 2)
	})
}

func TestAssessRisk_CustomThresholds(t *testing.T) {
	cfg := config.DefaultAnalyzerConfig()
	cfg.ManyFilesThreshold = 2
	da := NewDiffAnalyzer(cfg)

	ra := da.AssessRisk([]model.FileStatus{
		{Path: "a.txt", StatusCode: "M"},
		{Path: "b.txt", StatusCode: "M"},
		{Path: "c.txt", StatusCode: "M"},
	})
	assert.Equal(t, model.RiskHigh, ra.RiskLevel)
	assert.Contains(t, ra.RiskFactors, "3 files changed")
}

func TestGenerateInsights(t *testing.T) {
	da := newTestDiffAnalyzer()

	insights := da.GenerateInsights([]model.FileStatus{
		{Path: "small_change.py", StatusCode: "M", LinesAdded: 5, LinesDeleted: 2},
		{Path: "big_change.py", StatusCode: "M", LinesAdded: 100, LinesDeleted: 50},
		{Path: "tests/test_x.py", StatusCode: "A", LinesAdded: 20},
		{Path: "Makefile", StatusCode: "M", LinesAdded: 1, LinesDeleted: 2},
	})

	assert.Equal(t, Statistics{
		TotalFiles:            4,
		TotalAdditions:        126,
		TotalDeletions:        54,
		TotalChanges:          180,
		AverageChangesPerFile: 45,
	}, insights.Statistics)
	assert.Equal(t, map[string]int{"py": 3, "no_extension": 1}, insights.FileTypes)

	require.Len(t, insights.MostChangedFiles, 4)
	assert.Equal(t, "big_change.py", insights.MostChangedFiles[0].Path)
	assert.Equal(t, 150, insights.MostChangedFiles[0].Changes)
	assert.Equal(t, "Makefile", insights.MostChangedFiles[3].Path)

	assert.True(t, insights.Patterns.CriticalChanges)
	assert.False(t, insights.Patterns.SourceWithoutTests)
	assert.Equal(t, 1, insights.Patterns.NewFiles)
	assert.Equal(t, []string{"Makefile"}, insights.Categories.CriticalFiles)
}

func TestGenerateInsights_AverageAndTopTen(t *testing.T) {
	da := newTestDiffAnalyzer()

	files := []model.FileStatus{
		{Path: "a.py", StatusCode: "M", LinesAdded: 30, LinesDeleted: 15},
		{Path: "b.py", StatusCode: "M"},
	}
	assert.InDelta(t, 22.5, da.GenerateInsights(files).Statistics.AverageChangesPerFile, 0.001)

	many := make([]model.FileStatus, 15)
	for i := range many {
		many[i] = model.FileStatus{Path: fmt.Sprintf("f%02d.go", i), StatusCode: "M", LinesAdded: i}
	}
	top := da.GenerateInsights(many).MostChangedFiles
	require.Len(t, top, 10)
	assert.Equal(t, "f14.go", top[0].Path)
	assert.Equal(t, "f05.go", top[9].Path)
}

func TestGenerateInsights_Empty(t *testing.T) {
	insights := newTestDiffAnalyzer().GenerateInsights(nil)
	assert.Zero(t, insights.Statistics.TotalFiles)
	assert.Zero(t, insights.Statistics.TotalChanges)
	assert.NotNil(t, insights.MostChangedFiles)
	assert.Empty(t, insights.FileTypes)
}
