// Package fsutil provides the file system helpers shared by tasks and the
// release build: glob expansion relative to a project root and relocation of
// matched files into another directory.
package fsutil
