package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Match is a file matched by a glob pattern.
type Match struct {
	// Base is the static, slash-separated prefix of the pattern, relative
	// to the project root.
	Base string
	// Path is the slash-separated path of the file relative to Base.
	Path string
}

// Source returns the root-relative path of the matched file.
func (m Match) Source() string {
	return path.Join(m.Base, m.Path)
}

// Expand expands root-relative glob patterns into matched files. Patterns
// are processed in order and the matches of a single pattern are sorted, so
// the result is deterministic. A file matched by more than one pattern is
// returned once, under the first pattern that matched it. Patterns whose
// base directory does not exist match nothing.
func Expand(root string, patterns []string) ([]Match, error) {
	var out []Match
	seen := make(map[string]struct{})

	for _, pattern := range patterns {
		pattern = filepath.ToSlash(pattern)
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid glob pattern %q", pattern)
		}

		base, rest := doublestar.SplitPattern(pattern)
		dir := filepath.Join(root, filepath.FromSlash(base))
		if _, err := os.Stat(dir); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}

		matches, err := doublestar.Glob(os.DirFS(dir), rest, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		sort.Strings(matches)

		for _, rel := range matches {
			m := Match{Base: path.Clean(base), Path: rel}
			if _, dup := seen[m.Source()]; dup {
				continue
			}
			seen[m.Source()] = struct{}{}
			out = append(out, m)
		}
	}
	return out, nil
}

// MatchAny reports whether the slash-separated, root-relative path name
// matches at least one of the patterns.
func MatchAny(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(filepath.ToSlash(pattern), name); ok {
			return true
		}
	}
	return false
}
