package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/starford/graphlint/internal/apperr"
	"github.com/starford/graphlint/internal/graph"
)

const docExt = ".md"

// Options controls which files List reports.
type Options struct {
	// Exclude holds globs matched against RootRel. "**" is treated as "*",
	// and "*" also matches "/".
	Exclude []string
	// Gitignore drops files matched by <root>/.gitignore.
	Gitignore bool
}

// FS implements Provider backed by the local file system.
type FS struct {
	root    string // canonical scan root
	exclude []glob.Glob
	gi      *ignore.GitIgnore
}

// NewFS creates a provider rooted at root. It returns apperr.ErrRootNotFound
// when root does not exist.
func NewFS(root string, opts Options) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", apperr.ErrRootNotFound, abs)
		}
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}

	f := &FS{root: graph.Canonical(abs)}
	for _, pattern := range opts.Exclude {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		g, err := glob.Compile(fnmatchPattern(pattern))
		if err != nil {
			return nil, fmt.Errorf("storage: bad exclude pattern %q: %w", pattern, err)
		}
		f.exclude = append(f.exclude, g)
	}
	if opts.Gitignore {
		gi, err := ignore.CompileIgnoreFile(filepath.Join(f.root, ".gitignore"))
		if err == nil {
			f.gi = gi
		}
	}
	return f, nil
}

// fnmatchPattern rewrites an exclude glob for gobwas/glob: "**" becomes "*",
// and braces and backslashes, which fnmatch treats literally, are escaped.
func fnmatchPattern(p string) string {
	p = strings.ReplaceAll(p, "**", "*")
	return strings.NewReplacer(`\`, `\\`, "{", `\{`, "}", `\}`).Replace(p)
}

// Root returns the canonical scan root.
func (f *FS) Root() string { return f.root }

// List walks the root and returns every markdown file that survives the
// exclude rules. Unreadable subdirectories are skipped.
func (f *FS) List(ctx context.Context) ([]Entry, error) {
	var out []Entry
	err := filepath.WalkDir(f.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if p == f.root {
				return walkErr
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), docExt) {
			return nil
		}
		rel, err := filepath.Rel(f.root, p)
		if err != nil {
			return nil
		}
		rootRel := filepath.ToSlash(rel)
		if f.excluded(rootRel) {
			return nil
		}
		out = append(out, Entry{
			Path:    graph.Canonical(p),
			RootRel: rootRel,
			Rel:     f.display(p),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RootRel < out[j].RootRel })
	return out, nil
}

func (f *FS) excluded(rootRel string) bool {
	for _, g := range f.exclude {
		if g.Match(rootRel) {
			return true
		}
	}
	return f.gi != nil && f.gi.MatchesPath(rootRel)
}

// display renders p relative to the root's parent when possible.
func (f *FS) display(p string) string {
	rel, err := filepath.Rel(filepath.Dir(f.root), p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return p
	}
	return rel
}

// Read returns the file text. Invalid UTF-8 sequences become U+FFFD.
func (f *FS) Read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(data), "\uFFFD"), nil
}

// Checksum returns the hex-encoded SHA-256 digest of text.
func Checksum(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
