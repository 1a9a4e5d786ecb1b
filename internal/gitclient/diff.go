package gitclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/aymanbagabas/go-udiff"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/format/index"
	"github.com/go-git/go-git/v6/plumbing/object"
)

// binarySniffLen is how much of a file is inspected for NUL bytes.
const binarySniffLen = 8000

// content is one side of a comparison.
type content struct {
	data   []byte
	exists bool
	binary bool
}

// LineStats holds per-file change counts.
type LineStats struct {
	Added   int
	Deleted int
	Binary  bool
}

// IsBinary reports whether data looks binary: a NUL byte in the first 8000 bytes.
func IsBinary(data []byte) bool {
	if len(data) > binarySniffLen {
		data = data[:binarySniffLen]
	}
	return bytes.IndexByte(data, 0) >= 0
}

// LineStats counts lines added and deleted for path. With staged set it
// compares HEAD to the index, otherwise the index to the working tree.
// Untracked files count every line as added.
func (c *Client) LineStats(ctx context.Context, root, path string, staged bool) (LineStats, error) {
	if err := ctx.Err(); err != nil {
		return LineStats{}, err
	}

	repo, err := openRepo(root)
	if err != nil {
		return LineStats{}, err
	}

	before, after, err := c.sides(repo, root, path, staged)
	if err != nil {
		return LineStats{}, err
	}

	if before.binary || after.binary {
		return LineStats{Binary: true}, nil
	}

	added, deleted := countChangedLines(udiff.Unified("a/"+path, "b/"+path, string(before.data), string(after.data)))
	return LineStats{Added: added, Deleted: deleted}, nil
}

// Diff returns a unified diff for path with a "diff --git" header, or an
// empty string when the two sides are identical.
func (c *Client) Diff(ctx context.Context, root, path string, staged bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	repo, err := openRepo(root)
	if err != nil {
		return "", err
	}

	before, after, err := c.sides(repo, root, path, staged)
	if err != nil {
		return "", err
	}
	if !before.exists && !after.exists {
		return "", nil
	}
	if before.exists == after.exists && before.binary == after.binary && bytes.Equal(before.data, after.data) {
		return "", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "diff --git a/%s b/%s\n", path, path)
	switch {
	case !before.exists:
		b.WriteString("new file mode 100644\n")
	case !after.exists:
		b.WriteString("deleted file mode 100644\n")
	}

	if before.binary || after.binary {
		fmt.Fprintf(&b, "Binary files a/%s and b/%s differ\n", path, path)
		return b.String(), nil
	}

	oldLabel, newLabel := "a/"+path, "b/"+path
	if !before.exists {
		oldLabel = "/dev/null"
	}
	if !after.exists {
		newLabel = "/dev/null"
	}

	b.WriteString(udiff.Unified(oldLabel, newLabel, string(before.data), string(after.data)))
	return b.String(), nil
}

func (c *Client) sides(repo *git.Repository, root, path string, staged bool) (content, content, error) {
	idx, err := c.indexContent(repo, path)
	if err != nil {
		return content{}, content{}, err
	}

	if staged {
		head, err := c.headContent(repo, path)
		if err != nil {
			return content{}, content{}, err
		}
		return head, idx, nil
	}

	wt, err := c.worktreeContent(root, path)
	if err != nil {
		return content{}, content{}, err
	}
	return idx, wt, nil
}

func (c *Client) headContent(repo *git.Repository, path string) (content, error) {
	head, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return content{}, nil
		}
		return content{}, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return content{}, fmt.Errorf("failed to read HEAD commit: %w", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return content{}, fmt.Errorf("failed to read HEAD tree: %w", err)
	}

	f, err := tree.File(path)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return content{}, nil
		}
		return content{}, fmt.Errorf("failed to read %s at HEAD: %w", path, err)
	}

	return c.readBlob(&f.Blob)
}

func (c *Client) indexContent(repo *git.Repository, path string) (content, error) {
	idx, err := repo.Storer.Index()
	if err != nil {
		return content{}, fmt.Errorf("failed to read index: %w", err)
	}

	entry, err := idx.Entry(path)
	if err != nil {
		if errors.Is(err, index.ErrEntryNotFound) {
			return content{}, nil
		}
		return content{}, fmt.Errorf("failed to read index entry for %s: %w", path, err)
	}

	blob, err := repo.BlobObject(entry.Hash)
	if err != nil {
		return content{}, fmt.Errorf("failed to read staged blob for %s: %w", path, err)
	}
	return c.readBlob(blob)
}

func (c *Client) readBlob(blob *object.Blob) (content, error) {
	if blob.Size > c.maxFileSize {
		return content{exists: true, binary: true}, nil
	}

	r, err := blob.Reader()
	if err != nil {
		return content{}, fmt.Errorf("failed to open blob %s: %w", blob.Hash, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return content{}, fmt.Errorf("failed to read blob %s: %w", blob.Hash, err)
	}
	return content{data: data, exists: true, binary: IsBinary(data)}, nil
}

func (c *Client) worktreeContent(root, path string) (content, error) {
	full := filepath.Join(root, filepath.FromSlash(path))
	info, err := os.Lstat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return content{}, nil
		}
		return content{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(full)
		if err != nil {
			return content{}, fmt.Errorf("failed to read symlink %s: %w", path, err)
		}
		return content{data: []byte(target), exists: true}, nil
	}
	if info.IsDir() {
		return content{}, nil
	}
	if info.Size() > c.maxFileSize {
		return content{exists: true, binary: true}, nil
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return content{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return content{data: data, exists: true, binary: IsBinary(data)}, nil
}

// countChangedLines counts added and removed lines in unified diff text,
// ignoring the file headers that precede the first hunk.
func countChangedLines(diff string) (added, deleted int) {
	inHunk := false
	for _, line := range strings.Split(diff, "\n") {
		if strings.HasPrefix(line, "@@") {
			inHunk = true
			continue
		}
		if !inHunk {
			continue
		}
		switch {
		case strings.HasPrefix(line, "+"):
			added++
		case strings.HasPrefix(line, "-"):
			deleted++
		}
	}
	return added, deleted
}
