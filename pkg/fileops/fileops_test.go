package fileops

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestValidateRelativePath(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		expectError bool
	}{
		{"simple file", "main.go", false},
		{"nested file", "src/pkg/file.go", false},
		{"dots in name", "v1..2/notes.txt", false},
		{"empty", "", true},
		{"whitespace", "  \t", true},
		{"absolute", "/etc/passwd", true},
		{"leading traversal", "../outside.txt", true},
		{"middle traversal", "src/../../outside.txt", true},
		{"backslash traversal", `src\..\..\outside.txt`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRelativePath(tt.path)
			if tt.expectError && err == nil {
				t.Errorf("expected error for %q", tt.path)
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error for %q: %v", tt.path, err)
			}
		})
	}
}

func TestValidateWithinDirectory(t *testing.T) {
	base := t.TempDir()
	inside := filepath.Join(base, "inside.txt")
	if err := os.WriteFile(inside, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	if err := ValidateWithinDirectory(inside, base); err != nil {
		t.Errorf("file inside base rejected: %v", err)
	}
	if err := ValidateWithinDirectory(filepath.Join(base, "deleted.txt"), base); err != nil {
		t.Errorf("missing file inside base rejected: %v", err)
	}
	if err := ValidateWithinDirectory(filepath.Join(base, "..", "other.txt"), base); err == nil {
		t.Error("expected error for file outside base")
	}

	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	outside := t.TempDir()
	target := filepath.Join(outside, "secret.txt")
	if err := os.WriteFile(target, []byte("s"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	link := filepath.Join(base, "link.txt")
	if err := os.Symlink(target, link); err != nil {
		t.Fatalf("failed to create symlink: %v", err)
	}
	if err := ValidateWithinDirectory(link, base); err == nil {
		t.Error("expected error for symlink escaping base")
	}
}

func TestValidateFileSizeLimit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(path, []byte("0123456789"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	if err := ValidateFileSizeLimit(path, 10); err != nil {
		t.Errorf("file at limit rejected: %v", err)
	}
	if err := ValidateFileSizeLimit(path, 9); err == nil {
		t.Error("expected error for file over limit")
	}
	if err := ValidateFileSizeLimit(path, 0); err == nil {
		t.Error("expected error for invalid limit")
	}
	if err := ValidateFileSizeLimit(dir, 100); err == nil {
		t.Error("expected error for directory")
	}
	if err := ValidateFileSizeLimit(filepath.Join(dir, "missing"), 100); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	if got := ExpandPath("~/repos"); got != filepath.Join(home, "repos") {
		t.Errorf("ExpandPath(~/repos) = %q", got)
	}
	if got := ExpandPath("~"); got != home {
		t.Errorf("ExpandPath(~) = %q", got)
	}
	if got := ExpandPath("/abs/path"); got != "/abs/path" {
		t.Errorf("ExpandPath(/abs/path) = %q", got)
	}
	if got := ExpandPath("~user/x"); got != "~user/x" {
		t.Errorf("ExpandPath(~user/x) = %q", got)
	}
}

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	if err := AtomicWriteFile(path, []byte("first"), 0600); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}
	if err := AtomicWriteFile(path, []byte("second"), 0600); err != nil {
		t.Fatalf("AtomicWriteFile overwrite failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("content = %q, want %q", data, "second")
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("failed to stat file: %v", err)
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("mode = %v, want 0600", info.Mode().Perm())
		}
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("failed to read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the target file, found %d entries", len(entries))
	}
}
