package fileops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidateRelativePath checks that path names something inside a directory
// tree: non-empty, relative, and free of ".." components.
//
// Usage example:
//
//	if err := fileops.ValidateRelativePath("src/main.go"); err != nil {
//	    return fmt.Errorf("invalid file path: %w", err)
//	}
func ValidateRelativePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if filepath.IsAbs(path) || strings.HasPrefix(path, "/") {
		return fmt.Errorf("path must be relative: %q", path)
	}

	for _, part := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return fmt.Errorf("path traversal not allowed")
		}
	}
	return nil
}

// ValidateWithinDirectory checks that filePath resolves to a location inside
// baseDir. The file does not have to exist, but if it is a symlink its target
// must stay inside baseDir too.
func ValidateWithinDirectory(filePath, baseDir string) error {
	absFile, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("cannot resolve file path: %w", err)
	}
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return fmt.Errorf("cannot resolve base directory: %w", err)
	}

	if !contained(absBase, absFile) {
		return fmt.Errorf("file is not within base directory")
	}

	info, err := os.Lstat(absFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("cannot access file: %w", err)
	}

	if info.Mode()&os.ModeSymlink != 0 {
		resolved, err := filepath.EvalSymlinks(absFile)
		if err != nil {
			// dangling links are reported by whoever reads them
			return nil
		}
		resolvedBase, err := filepath.EvalSymlinks(absBase)
		if err != nil {
			resolvedBase = absBase
		}
		if !contained(resolvedBase, resolved) {
			return fmt.Errorf("symlink resolves outside base directory")
		}
	}

	return nil
}

func contained(base, target string) bool {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ValidateFileSizeLimit checks that filePath is a regular file no larger than
// maxSize bytes.
func ValidateFileSizeLimit(filePath string, maxSize int64) error {
	if maxSize <= 0 {
		return fmt.Errorf("invalid size limit: %d", maxSize)
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file does not exist: %s", filepath.Base(filePath))
		}
		return fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", filePath)
	}
	if info.Size() > maxSize {
		return fmt.Errorf("file size %d bytes exceeds limit %d bytes", info.Size(), maxSize)
	}
	return nil
}

// ExpandPath replaces a leading "~" or "~/" with the user's home directory.
// Other paths are returned unchanged.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
