package fsutil

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/otiai10/copy"
)

// Relocate copies every file matched by patterns into dest, keeping each
// file's path relative to its glob base. Both dest and the patterns are
// relative to root. It returns the number of files copied.
func Relocate(ctx context.Context, root string, patterns []string, dest string) (int, error) {
	matches, err := Expand(root, patterns)
	if err != nil {
		return 0, err
	}

	for i, m := range matches {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		src := filepath.Join(root, filepath.FromSlash(m.Source()))
		dst := filepath.Join(root, filepath.FromSlash(dest), filepath.FromSlash(m.Path))
		if err := copy.Copy(src, dst); err != nil {
			return i, fmt.Errorf("copy %s to %s: %w", m.Source(), dst, err)
		}
	}
	return len(matches), nil
}
