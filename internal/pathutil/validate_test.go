package pathutil

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestValidatePath(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "graphs"), 0700); err != nil {
		t.Fatal(err)
	}
	sep := string(os.PathSeparator)

	tests := []struct {
		name    string
		path    string
		dirs    []string
		wantErr string
	}{
		{"file in root", filepath.Join(root, "network.html"), []string{root}, ""},
		{"file in existing subdir", filepath.Join(root, "graphs", "network.html"), []string{root}, ""},
		{"file in missing subdir", filepath.Join(root, "a", "b", "network.html"), []string{root}, ""},
		{"root itself", root, []string{root}, ""},
		{"doubled separator", root + sep + sep + "network.html", []string{root}, ""},
		{"second allowed dir", filepath.Join(other, "network.html"), []string{root, other}, ""},
		{"dot-dot escape", filepath.Join(root, "..", "network.html"), []string{root}, "outside allowed"},
		{"nested dot-dot escape", root + sep + "graphs" + sep + ".." + sep + ".." + sep + "x.html", []string{root}, "outside allowed"},
		{"sibling dir", filepath.Join(other, "network.html"), []string{root}, "outside allowed"},
		{"prefix is not containment", root + "-evil" + sep + "network.html", []string{root}, "outside allowed"},
		{"null byte", filepath.Join(root, "net\x00work.html"), []string{root}, "null byte"},
		{"empty path", "", []string{root}, "empty"},
		{"no dirs", filepath.Join(root, "network.html"), nil, "no allowed directories"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.path, tt.dirs)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("ValidatePath(%q) = %v, want nil", tt.path, err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ValidatePath(%q) = %v, want error containing %q", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePath_Symlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need elevated privileges on Windows")
	}
	root := t.TempDir()
	outside := t.TempDir()
	inside := filepath.Join(root, "real")
	if err := os.MkdirAll(inside, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(outside, filepath.Join(root, "escape")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(inside, filepath.Join(root, "link")); err != nil {
		t.Fatal(err)
	}

	err := ValidatePath(filepath.Join(root, "escape", "network.html"), []string{root})
	if !errors.Is(err, ErrOutsideAllowed) {
		t.Errorf("link leaving root: got %v, want ErrOutsideAllowed", err)
	}
	if err := ValidatePath(filepath.Join(root, "link", "network.html"), []string{root}); err != nil {
		t.Errorf("link staying in root: %v", err)
	}
}

func TestRedactPath(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"simple", "/home/user/.thoughtseed/config.yaml", ".../.thoughtseed/config.yaml"},
		{"deep", "/a/b/c/d/e.txt", ".../d/e.txt"},
		{"root file", "/file.txt", "file.txt"},
		{"relative", "dir/file.txt", ".../dir/file.txt"},
		{"just filename", "file.txt", "file.txt"},
		{"trailing slash cleaned", "/home/user/.thoughtseed/", ".../user/.thoughtseed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RedactPath(tt.input)
			if got != tt.want {
				t.Errorf("RedactPath(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidatePath_OutsideIsSentinel(t *testing.T) {
	err := ValidatePath(filepath.Join(t.TempDir(), "graph.html"), []string{t.TempDir()})
	if !errors.Is(err, ErrOutsideAllowed) {
		t.Errorf("expected ErrOutsideAllowed, got %v", err)
	}
}

func TestOutputDirs(t *testing.T) {
	root := t.TempDir()
	dirs := OutputDirs(root)
	if len(dirs) != 2 || dirs[0] != root || dirs[1] != os.TempDir() {
		t.Errorf("OutputDirs(%q) = %v", root, dirs)
	}
	if err := ValidatePath(filepath.Join(root, "out", "graph.html"), dirs); err != nil {
		t.Errorf("path under root rejected: %v", err)
	}
}
