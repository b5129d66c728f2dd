// Package task implements the Task Graph: named, declarative tasks made of
// source globs, an ordered list of adapter steps and destination
// directories, plus the interpreter that runs them.
//
// A run reads its sources into memory, feeds them through every step and
// only then commits the pending writes. `dest` steps are taps: they record a
// write of the stream as it is at that point and pass it on unchanged, which
// is how one run produces both a readable and a minified output. If any step
// fails nothing is written, so the previous output on disk stays intact.
package task
