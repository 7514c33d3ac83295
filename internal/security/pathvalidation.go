// Package security keeps configured input paths inside the data directory.
package security

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrPathEscape is returned when a path resolves outside its directory.
var ErrPathEscape = errors.New("security: path escapes directory")

// Within returns an error unless path, after cleaning and symlink
// resolution, lies under dir. A path that does not exist yet is resolved
// through its nearest existing parent, so a symlinked parent cannot be used
// to escape.
func Within(path, dir string) error {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", dir, err)
	}
	canonicalDir, err := filepath.EvalSymlinks(absDir)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", dir, err)
	}

	rel, err := filepath.Rel(canonicalDir, resolve(absPath))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrPathEscape, path)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("%w: %s is outside %s", ErrPathEscape, path, dir)
	}
	return nil
}

// resolve follows symlinks in the longest existing prefix of abs.
func resolve(abs string) string {
	if r, err := filepath.EvalSymlinks(abs); err == nil {
		return r
	}
	for p := abs; ; {
		parent := filepath.Dir(p)
		if parent == p {
			return abs
		}
		if r, err := filepath.EvalSymlinks(parent); err == nil {
			tail, _ := filepath.Rel(parent, abs)
			return filepath.Join(r, tail)
		}
		p = parent
	}
}

// ValidateRelativeInputs checks that every relative path, joined to dir,
// stays inside dir. Absolute paths are an explicit choice of the config
// author and are not checked.
func ValidateRelativeInputs(dir string, paths ...string) error {
	for _, p := range paths {
		if p == "" || filepath.IsAbs(p) {
			continue
		}
		if err := Within(filepath.Join(dir, p), dir); err != nil {
			return err
		}
	}
	return nil
}
