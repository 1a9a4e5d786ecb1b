package model

import (
	"fmt"
	"strings"
	"time"
)

// ChangeType classifies a FileStatus by what happened to the file.
type ChangeType string

const (
	ChangeAddition     ChangeType = "addition"
	ChangeModification ChangeType = "modification"
	ChangeDeletion     ChangeType = "deletion"
	ChangeRename       ChangeType = "rename"
	ChangeCopy         ChangeType = "copy"
	ChangeUntracked    ChangeType = "untracked"
)

// FileStatus is the status of a single changed file.
type FileStatus struct {
	Path              string `json:"path"`
	StatusCode        string `json:"status_code"`
	Staged            bool   `json:"staged"`
	WorkingTreeStatus string `json:"working_tree_status,omitempty"`
	IndexStatus       string `json:"index_status,omitempty"`
	LinesAdded        int    `json:"lines_added"`
	LinesDeleted      int    `json:"lines_deleted"`
	IsBinary          bool   `json:"is_binary"`
	OldPath           string `json:"old_path,omitempty"`
}

// TotalChanges returns lines added plus lines deleted.
func (f FileStatus) TotalChanges() int {
	return f.LinesAdded + f.LinesDeleted
}

var statusDescriptions = map[string]string{
	"M": "Modified",
	"A": "Added",
	"D": "Deleted",
	"R": "Renamed",
	"C": "Copied",
	"U": "Unmerged",
	"?": "Untracked",
	"!": "Ignored",
}

// StatusDescription returns a human readable name for the status code.
// Unknown codes are returned unchanged.
func (f FileStatus) StatusDescription() string {
	if d, ok := statusDescriptions[f.StatusCode]; ok {
		return d
	}
	return f.StatusCode
}

// ChangeType categorizes the status code. Unknown codes count as modifications.
func (f FileStatus) ChangeType() ChangeType {
	switch f.StatusCode {
	case "A":
		return ChangeAddition
	case "D":
		return ChangeDeletion
	case "R":
		return ChangeRename
	case "C":
		return ChangeCopy
	case "?":
		return ChangeUntracked
	default:
		return ChangeModification
	}
}

// DiffHunk is a single @@ section of a unified diff.
type DiffHunk struct {
	OldStart     int      `json:"old_start"`
	OldLines     int      `json:"old_lines"`
	NewStart     int      `json:"new_start"`
	NewLines     int      `json:"new_lines"`
	Content      string   `json:"content"`
	ContextLines []string `json:"context_lines"`
}

// FileDiff is the parsed diff of one file.
type FileDiff struct {
	FilePath     string     `json:"file_path"`
	OldPath      string     `json:"old_path,omitempty"`
	DiffContent  string     `json:"diff_content"`
	Hunks        []DiffHunk `json:"hunks"`
	IsBinary     bool       `json:"is_binary"`
	LinesAdded   int        `json:"lines_added"`
	LinesDeleted int        `json:"lines_deleted"`
	FileModeOld  string     `json:"file_mode_old,omitempty"`
	FileModeNew  string     `json:"file_mode_new,omitempty"`
}

// LargeChangeLines is the line count above which a diff counts as large.
const LargeChangeLines = 100

func (d FileDiff) TotalChanges() int {
	return d.LinesAdded + d.LinesDeleted
}

func (d FileDiff) IsLargeChange() bool {
	return d.TotalChanges() > LargeChangeLines
}

// WorkingDirectoryChanges groups the changed files of a working tree by kind.
type WorkingDirectoryChanges struct {
	Modified  []FileStatus `json:"modified_files"`
	Added     []FileStatus `json:"added_files"`
	Deleted   []FileStatus `json:"deleted_files"`
	Renamed   []FileStatus `json:"renamed_files"`
	Untracked []FileStatus `json:"untracked_files"`
}

func (w WorkingDirectoryChanges) TotalFiles() int {
	return len(w.Modified) + len(w.Added) + len(w.Deleted) + len(w.Renamed) + len(w.Untracked)
}

func (w WorkingDirectoryChanges) HasChanges() bool {
	return w.TotalFiles() > 0
}

// AllFiles returns every changed file: modified, added, deleted, renamed,
// then untracked.
func (w WorkingDirectoryChanges) AllFiles() []FileStatus {
	all := make([]FileStatus, 0, w.TotalFiles())
	all = append(all, w.Modified...)
	all = append(all, w.Added...)
	all = append(all, w.Deleted...)
	all = append(all, w.Renamed...)
	all = append(all, w.Untracked...)
	return all
}

// StagedChanges holds the files staged for the next commit.
type StagedChanges struct {
	StagedFiles []FileStatus `json:"staged_files"`
}

func (s StagedChanges) TotalStaged() int {
	return len(s.StagedFiles)
}

func (s StagedChanges) ReadyToCommit() bool {
	return s.TotalStaged() > 0
}

func (s StagedChanges) TotalAdditions() int {
	total := 0
	for _, f := range s.StagedFiles {
		total += f.LinesAdded
	}
	return total
}

func (s StagedChanges) TotalDeletions() int {
	total := 0
	for _, f := range s.StagedFiles {
		total += f.LinesDeleted
	}
	return total
}

// UnpushedCommit is a local commit not present on the upstream.
type UnpushedCommit struct {
	SHA          string    `json:"sha"`
	Message      string    `json:"message"`
	Author       string    `json:"author"`
	AuthorEmail  string    `json:"author_email"`
	Date         time.Time `json:"date"`
	FilesChanged []string  `json:"files_changed"`
	Insertions   int       `json:"insertions"`
	Deletions    int       `json:"deletions"`
}

// ShortSHA returns the first 8 characters of the commit hash.
func (c UnpushedCommit) ShortSHA() string {
	if len(c.SHA) <= 8 {
		return c.SHA
	}
	return c.SHA[:8]
}

// ShortMessage returns the first line of the commit message.
func (c UnpushedCommit) ShortMessage() string {
	first, _, _ := strings.Cut(c.Message, "\n")
	return first
}

func (c UnpushedCommit) TotalChanges() int {
	return c.Insertions + c.Deletions
}

// StashedChanges is one entry of the stash list.
type StashedChanges struct {
	Index         int       `json:"stash_index"`
	Message       string    `json:"message"`
	Branch        string    `json:"branch"`
	Date          time.Time `json:"date"`
	FilesAffected []string  `json:"files_affected"`
}

// Name returns the stash reference, e.g. stash@{0}.
func (s StashedChanges) Name() string {
	return fmt.Sprintf("stash@{%d}", s.Index)
}
