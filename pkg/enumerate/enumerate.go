// Package enumerate implements C2: lazy enumeration of files rooted at a
// path, silently skipping entries the process cannot access.
package enumerate

import (
	"io/fs"
	"os"
	"path/filepath"
)

// Mode selects how a root is traversed.
type Mode uint8

const (
	// ModeSingleFile yields exactly the root itself, if it is a regular file.
	ModeSingleFile Mode = iota
	// ModeDirectory yields the immediate children of a directory root.
	ModeDirectory
	// ModeDirectoryRecursive yields every file beneath a directory root.
	ModeDirectoryRecursive
)

// Entry is one enumerated file.
type Entry struct {
	// Path is the absolute path to the file.
	Path string
	// Size is the file's size in bytes, as of enumeration time.
	Size int64
}

// Roots enumerates every root in roots according to mode, returning entries
// on the returned channel. The channel is closed once all roots have been
// traversed or the provided done channel is closed. Access-denied and
// race-deleted entries are swallowed silently; traversal continues with the
// next entry.
func Roots(done <-chan struct{}, roots []string, mode Mode) <-chan Entry {
	entries := make(chan Entry)
	go func() {
		defer close(entries)
		for _, root := range roots {
			if !enumerateRoot(done, root, mode, entries) {
				return
			}
		}
	}()
	return entries
}

// enumerateRoot enumerates a single root, returning false if the caller's
// done channel closed and enumeration should stop entirely.
func enumerateRoot(done <-chan struct{}, root string, mode Mode, entries chan<- Entry) bool {
	switch mode {
	case ModeSingleFile:
		info, err := os.Stat(root)
		if err != nil || info.IsDir() {
			return true
		}
		return send(done, entries, Entry{Path: root, Size: info.Size()})
	case ModeDirectory:
		children, err := os.ReadDir(root)
		if err != nil {
			return true
		}
		for _, child := range children {
			if child.IsDir() {
				continue
			}
			info, err := child.Info()
			if err != nil {
				continue
			}
			if !send(done, entries, Entry{Path: filepath.Join(root, child.Name()), Size: info.Size()}) {
				return false
			}
		}
		return true
	default: // ModeDirectoryRecursive
		ok := true
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if !ok {
				return filepath.SkipAll
			}
			if err != nil {
				// Access-denied, race-deleted, or other traversal errors are
				// swallowed; continue with siblings where possible.
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			if !send(done, entries, Entry{Path: path, Size: info.Size()}) {
				ok = false
				return filepath.SkipAll
			}
			return nil
		})
		return ok
	}
}

func send(done <-chan struct{}, entries chan<- Entry, entry Entry) bool {
	select {
	case entries <- entry:
		return true
	case <-done:
		return false
	}
}

// EstimateCount returns a best-effort count of files beneath roots, for
// progress reporting. It never errors: any inaccessible subtree is simply
// skipped in the count.
func EstimateCount(roots []string, mode Mode) int {
	count := 0
	for _, root := range roots {
		switch mode {
		case ModeSingleFile:
			if info, err := os.Stat(root); err == nil && !info.IsDir() {
				count++
			}
		case ModeDirectory:
			if children, err := os.ReadDir(root); err == nil {
				for _, child := range children {
					if !child.IsDir() {
						count++
					}
				}
			}
		default:
			_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					if d != nil && d.IsDir() {
						return filepath.SkipDir
					}
					return nil
				}
				if !d.IsDir() {
					count++
				}
				return nil
			})
		}
	}
	return count
}
