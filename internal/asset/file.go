package asset

import (
	"path"
	"path/filepath"
	"strings"
)

// File is one element of a task stream.
type File struct {
	// Base is the root-relative, slash-separated glob base the file was
	// matched under (for "app/img/**/*" this is "app/img").
	Base string
	// Path is the slash-separated path relative to Base. It is what lands
	// under a destination directory.
	Path string
	// Contents holds the current bytes of the file. Adapters must not
	// mutate it in place; they return new Files instead.
	Contents []byte
}

// New returns a File with the given base, relative path and contents.
func New(base, rel string, contents []byte) *File {
	return &File{Base: path.Clean(filepath.ToSlash(base)), Path: path.Clean(filepath.ToSlash(rel)), Contents: contents}
}

// Ext returns the extension of the file name, including the dot.
func (f *File) Ext() string {
	return path.Ext(f.Path)
}

// Name returns the last element of the relative path.
func (f *File) Name() string {
	return path.Base(f.Path)
}

// Dir returns the directory portion of the relative path ("." for none).
func (f *File) Dir() string {
	return path.Dir(f.Path)
}

// Stem returns the file name without its extension.
func (f *File) Stem() string {
	name := f.Name()
	return strings.TrimSuffix(name, path.Ext(name))
}

// Source returns the root-relative path the file was read from, or would
// have been read from had it existed on disk.
func (f *File) Source() string {
	return path.Join(f.Base, f.Path)
}

// WithContents returns a copy of f carrying the new contents.
func (f *File) WithContents(contents []byte) *File {
	c := *f
	c.Contents = contents
	return &c
}

// WithPath returns a copy of f with a new relative path.
func (f *File) WithPath(rel string) *File {
	c := *f
	c.Path = path.Clean(filepath.ToSlash(rel))
	return &c
}

// WithExt returns a copy of f whose extension is replaced by ext.
func (f *File) WithExt(ext string) *File {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return f.WithPath(strings.TrimSuffix(f.Path, f.Ext()) + ext)
}

// Target returns the OS path the file is written to under dir, which is
// itself relative to root.
func (f *File) Target(root, dir string) string {
	return filepath.Join(root, filepath.FromSlash(dir), filepath.FromSlash(f.Path))
}
