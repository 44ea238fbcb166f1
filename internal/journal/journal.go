package journal

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"trade-monitor/internal/interfaces"
	"trade-monitor/internal/logger"
	"trade-monitor/internal/types"
)

// Journal appends one JSON line per snapshot swap to a daily file.
type Journal struct {
	dir string
	now func() time.Time

	mu sync.Mutex
}

var _ interfaces.SnapshotListener = (*Journal)(nil)

func New(dir string) *Journal {
	return &Journal{dir: dir, now: time.Now}
}

func (j *Journal) Dir() string { return j.dir }

func (j *Journal) dailyFilepath(t time.Time) string {
	return filepath.Join(j.dir, t.Format("2006-01-02")+".jsonl")
}

// Append writes ev to today's file, filling in the time if empty.
func (j *Journal) Append(ev types.ReloadEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()
	if ev.Time == "" {
		ev.Time = now.Format(time.RFC3339Nano)
	}
	p := j.dailyFilepath(now)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f, string(b))
	return err
}

func (j *Journal) OnSnapshot(ctx context.Context, change types.SnapshotChange) {
	if err := j.Append(change.Event()); err != nil {
		logger.ErrorWithErr(ctx, "Failed to append reload journal entry", err, "dir", j.dir)
	}
}

// CompressOlder gzips journal files last modified more than retentionDays
// ago and removes the originals. Zero disables compression.
func (j *Journal) CompressOlder(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	cutoff := j.now().AddDate(0, 0, -retentionDays)
	compressed := 0
	err := filepath.WalkDir(j.dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || filepath.Ext(p) != ".jsonl" {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}

		gz := p + ".gz"
		// an earlier run already compressed it
		if _, err := os.Stat(gz); err == nil {
			return os.Remove(p)
		}
		if err := gzipFile(p, gz); err != nil {
			return fmt.Errorf("failed to compress %s: %w", p, err)
		}
		compressed++
		return os.Remove(p)
	})
	return compressed, err
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	gw := gzip.NewWriter(out)
	gw.Name = strings.TrimSuffix(filepath.Base(dst), ".gz")
	if _, err := io.Copy(gw, in); err != nil {
		_ = gw.Close()
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := gw.Close(); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}
