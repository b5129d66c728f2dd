package scheduler

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/radovskyb/watcher"
)

// Source delivers the paths of changed files.
type Source interface {
	// Events yields absolute paths of created, written, removed or renamed
	// files.
	Events() <-chan string
	// Errors yields non-fatal watcher errors.
	Errors() <-chan error
	Close() error
}

// nativeSource watches a directory tree with OS notifications. Directories
// created after start are added to the watch set.
type nativeSource struct {
	w      *fsnotify.Watcher
	root   string
	skip   map[string]bool
	events chan string
	errors chan error
	done   chan struct{}
	once   sync.Once
}

func newNativeSource(root string, skipDirs []string) (*nativeSource, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	s := &nativeSource{
		w:      w,
		root:   root,
		skip:   make(map[string]bool, len(skipDirs)),
		events: make(chan string, 64),
		errors: make(chan error, 8),
		done:   make(chan struct{}),
	}
	for _, d := range skipDirs {
		s.skip[cleanRel(d)] = true
	}
	if _, err := s.addTree(root); err != nil {
		_ = w.Close()
		return nil, err
	}
	go s.loop()
	return s, nil
}

// addTree watches dir and every directory below it. It returns the files
// found on the way.
func (s *nativeSource) addTree(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
			return nil
		}
		if path != dir && s.skipped(path) {
			return filepath.SkipDir
		}
		if err := s.w.Add(path); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", path, err)
		}
		return nil
	})
	return files, err
}

// skipped reports whether dir is one of the skipped root-relative paths.
func (s *nativeSource) skipped(dir string) bool {
	rel, err := filepath.Rel(s.root, dir)
	if err != nil {
		return false
	}
	return s.skip[filepath.ToSlash(rel)]
}

func (s *nativeSource) loop() {
	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-s.w.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if s.skipped(ev.Name) {
						continue
					}
					files, err := s.addTree(ev.Name)
					if err != nil {
						s.sendErr(err)
					}
					for _, f := range files {
						s.send(f)
					}
					continue
				}
			}
			s.send(ev.Name)
		case err, ok := <-s.w.Errors:
			if !ok {
				return
			}
			s.sendErr(err)
		}
	}
}

func (s *nativeSource) send(path string) {
	select {
	case s.events <- path:
	case <-s.done:
	}
}

func (s *nativeSource) sendErr(err error) {
	select {
	case s.errors <- err:
	default:
	}
}

func (s *nativeSource) Events() <-chan string { return s.events }
func (s *nativeSource) Errors() <-chan error  { return s.errors }

func (s *nativeSource) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.w.Close()
	})
	return err
}

// pollSource watches a directory tree by polling it, for file systems that
// do not deliver notifications (network mounts, some containers).
type pollSource struct {
	w      *watcher.Watcher
	events chan string
	errors chan error
	done   chan struct{}
	once   sync.Once
}

func newPollSource(root string, skipDirs []string, interval time.Duration) (*pollSource, error) {
	w := watcher.New()
	w.FilterOps(watcher.Create, watcher.Write, watcher.Remove, watcher.Rename, watcher.Move)
	for _, d := range skipDirs {
		if err := w.Ignore(filepath.Join(root, filepath.FromSlash(cleanRel(d)))); err != nil {
			return nil, fmt.Errorf("failed to ignore %s: %w", d, err)
		}
	}
	if err := w.AddRecursive(root); err != nil {
		return nil, fmt.Errorf("failed to watch %s: %w", root, err)
	}

	s := &pollSource{
		w:      w,
		events: make(chan string, 64),
		errors: make(chan error, 8),
		done:   make(chan struct{}),
	}
	go func() {
		if err := w.Start(interval); err != nil {
			s.sendErr(err)
		}
	}()
	w.Wait()
	go s.loop()
	return s, nil
}

func (s *pollSource) loop() {
	for {
		select {
		case <-s.done:
			return
		case <-s.w.Closed:
			return
		case ev := <-s.w.Event:
			if ev.IsDir() {
				continue
			}
			s.send(ev.Path)
			if ev.OldPath != "" {
				s.send(ev.OldPath)
			}
		case err := <-s.w.Error:
			s.sendErr(err)
		}
	}
}

func (s *pollSource) send(path string) {
	select {
	case s.events <- path:
	case <-s.done:
	}
}

func (s *pollSource) sendErr(err error) {
	select {
	case s.errors <- err:
	default:
	}
}

func (s *pollSource) Events() <-chan string { return s.events }
func (s *pollSource) Errors() <-chan error  { return s.errors }

func (s *pollSource) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.w.Close()
	})
	return nil
}

// cleanRel normalises a root-relative directory to slash form.
func cleanRel(dir string) string {
	return filepath.ToSlash(filepath.Clean(filepath.FromSlash(dir)))
}
