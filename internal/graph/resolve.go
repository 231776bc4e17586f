// Package graph resolves document links and analyses the resulting graph
// for broken links, orphans and duplicate identifiers.
package graph

import (
	"os"
	"path/filepath"
)

// Canonical returns p as an absolute path with symlinks and ".." collapsed.
// Components that do not exist are kept lexically so missing targets still
// compare equal across spellings.
func Canonical(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		abs = filepath.Clean(p)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real
	}
	dir, base := filepath.Split(abs)
	dir = filepath.Clean(dir)
	if dir == abs || base == "" {
		return abs
	}
	return filepath.Join(Canonical(dir), base)
}

// Resolve maps a normalized link target to a canonical path. Relative
// targets are taken from the directory containing docPath. No existence
// check happens here.
func Resolve(docPath, target string) string {
	t := filepath.FromSlash(target)
	if filepath.IsAbs(t) {
		return Canonical(t)
	}
	return Canonical(filepath.Join(filepath.Dir(docPath), t))
}

// FileExists reports whether path names an existing file or directory.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
