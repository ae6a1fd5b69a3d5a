// Package pathutil guards the files thoughtseed writes outside its own store
// and shortens paths that end up in error messages.
package pathutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideAllowed is returned when a path resolves outside every allowed
// directory.
var ErrOutsideAllowed = errors.New("path is outside allowed directories")

// RedactPath reduces a full path to .../<parent>/<basename>.
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	parent := filepath.Base(filepath.Dir(cleaned))
	if parent == "." || parent == string(filepath.Separator) {
		return filepath.Base(cleaned)
	}
	return ".../" + parent + "/" + filepath.Base(cleaned)
}

// OutputDirs returns the directories generated artifacts may be written to:
// the project root and the system temp directory.
func OutputDirs(root string) []string {
	return []string{root, os.TempDir()}
}

// ValidatePath checks that path, once cleaned and with symlinks in its
// existing ancestors resolved, lies inside one of dirs.
func ValidatePath(path string, dirs []string) error {
	switch {
	case path == "":
		return fmt.Errorf("validate path: empty path")
	case strings.ContainsRune(path, '\x00'):
		return fmt.Errorf("validate path: null byte in path")
	case len(dirs) == 0:
		return fmt.Errorf("validate path: no allowed directories")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("validate path: %w", err)
	}
	// The file may not exist yet; resolve its directory only.
	dir, err := resolve(filepath.Dir(abs))
	if err != nil {
		return fmt.Errorf("validate path: %w", err)
	}
	target := filepath.Join(dir, filepath.Base(abs))

	for _, d := range dirs {
		da, err := filepath.Abs(d)
		if err != nil {
			continue
		}
		base, err := resolve(da)
		if err != nil {
			continue
		}
		if within(target, base) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrOutsideAllowed, RedactPath(abs))
}

// resolve evaluates symlinks on the deepest existing ancestor of dir and
// re-appends the missing tail.
func resolve(dir string) (string, error) {
	var tail []string
	for {
		r, err := filepath.EvalSymlinks(dir)
		if err == nil {
			for i := len(tail) - 1; i >= 0; i-- {
				r = filepath.Join(r, tail[i])
			}
			return r, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("cannot resolve %s", RedactPath(dir))
		}
		tail = append(tail, filepath.Base(dir))
		dir = parent
	}
}

func within(path, base string) bool {
	return path == base || strings.HasPrefix(path, base+string(os.PathSeparator))
}
