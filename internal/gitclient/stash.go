package gitclient

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"mcp-local-repo-analyzer/internal/model"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
)

// stashBranchPattern extracts the branch from "WIP on <branch>: ..." and
// "On <branch>: ..." stash messages.
var stashBranchPattern = regexp.MustCompile(`^(?:WIP on|On) ([^:]+):`)

// reflogEntry is one line of a reflog file.
type reflogEntry struct {
	newHash plumbing.Hash
	when    time.Time
	message string
}

// StashList returns the stash entries, newest first (stash@{0}). go-git has
// no stash support so the refs/stash reflog is read directly.
func (c *Client) StashList(ctx context.Context, root string) ([]model.StashedChanges, error) {
	dir, err := gitDir(root)
	if err != nil {
		return nil, err
	}

	entries, err := readReflog(filepath.Join(dir, "logs", "refs", "stash"))
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	repo, err := openRepo(root)
	if err != nil {
		return nil, err
	}

	stashes := make([]model.StashedChanges, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e := entries[i]
		s := model.StashedChanges{
			Index:         len(stashes),
			Message:       e.message,
			Date:          e.when,
			FilesAffected: []string{},
		}
		if m := stashBranchPattern.FindStringSubmatch(e.message); m != nil {
			s.Branch = m[1]
		}

		files, err := stashFiles(repo, e.newHash)
		if err != nil {
			c.logger.Warn("Failed to read stash contents", "stash", s.Name(), "error", err)
		} else {
			s.FilesAffected = files
		}
		stashes = append(stashes, s)
	}

	return stashes, nil
}

// stashFiles lists the paths a stash commit changes relative to its base.
func stashFiles(repo *git.Repository, hash plumbing.Hash) ([]string, error) {
	commit, err := repo.CommitObject(hash)
	if err != nil {
		return nil, err
	}
	stats, err := commit.Stats()
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(stats))
	for _, s := range stats {
		files = append(files, s.Name)
	}
	return files, nil
}

// readReflog parses a reflog file. A missing file yields no entries.
//
// Line format: <old> <new> <name> <<email>> <unix-ts> <tz>\t<message>
func readReflog(path string) ([]reflogEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open reflog %s: %w", path, err)
	}
	defer f.Close()

	var entries []reflogEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		entry, ok := parseReflogLine(line)
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read reflog %s: %w", path, err)
	}
	return entries, nil
}

func parseReflogLine(line string) (reflogEntry, bool) {
	meta, message, _ := strings.Cut(line, "\t")
	fields := strings.Fields(meta)
	if len(fields) < 4 {
		return reflogEntry{}, false
	}

	entry := reflogEntry{
		newHash: plumbing.NewHash(fields[1]),
		message: strings.TrimSpace(message),
	}
	if entry.newHash.IsZero() {
		return reflogEntry{}, false
	}

	ts, err := strconv.ParseInt(fields[len(fields)-2], 10, 64)
	if err == nil {
		entry.when = time.Unix(ts, 0)
		if loc, ok := parseTZ(fields[len(fields)-1]); ok {
			entry.when = entry.when.In(loc)
		}
	}
	return entry, true
}

// parseTZ converts a "+0200" style offset to a fixed zone.
func parseTZ(s string) (*time.Location, bool) {
	if len(s) != 5 || (s[0] != '+' && s[0] != '-') {
		return nil, false
	}
	hours, err1 := strconv.Atoi(s[1:3])
	mins, err2 := strconv.Atoi(s[3:5])
	if err1 != nil || err2 != nil {
		return nil, false
	}
	offset := hours*3600 + mins*60
	if s[0] == '-' {
		offset = -offset
	}
	return time.FixedZone(s, offset), true
}
