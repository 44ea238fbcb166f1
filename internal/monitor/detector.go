package monitor

import (
	"io/fs"
	"os"
	"sync"
	"time"

	"trade-monitor/internal/interfaces"
)

// FileChangeDetector keeps a bookmark of the last modification time seen
// for one file. The bookmark only moves forward.
type FileChangeDetector struct {
	path string
	stat func(string) (fs.FileInfo, error)

	mu   sync.Mutex
	last time.Time
	seen bool
}

var _ interfaces.ChangeDetector = (*FileChangeDetector)(nil)

func NewFileChangeDetector(path string) *FileChangeDetector {
	return &FileChangeDetector{path: path, stat: os.Stat}
}

func (d *FileChangeDetector) Path() string { return d.path }

// HasChanged reports whether the file's modification time is newer than the
// bookmark, moving the bookmark when it is. A missing file is never a change.
func (d *FileChangeDetector) HasChanged() bool {
	mtime, ok := d.modTime()
	if !ok {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.seen && !mtime.After(d.last) {
		return false
	}
	d.last = mtime
	d.seen = true
	return true
}

func (d *FileChangeDetector) Advance() {
	mtime, ok := d.modTime()
	if !ok {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.seen || mtime.After(d.last) {
		d.last = mtime
		d.seen = true
	}
}

// Bookmark returns the last observed modification time, if any.
func (d *FileChangeDetector) Bookmark() (time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last, d.seen
}

func (d *FileChangeDetector) modTime() (time.Time, bool) {
	info, err := d.stat(d.path)
	if err != nil || info.IsDir() {
		return time.Time{}, false
	}
	return info.ModTime(), true
}
