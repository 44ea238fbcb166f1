package monitor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"trade-monitor/internal/interfaces"
	"trade-monitor/internal/logger"
	"trade-monitor/internal/types"
)

// refreshCall is one check-load-swap in flight. Callers that arrive while it
// runs wait for it and share its result instead of loading again.
type refreshCall struct {
	done  chan struct{}
	force bool
	snap  types.Snapshot
}

// SnapshotStore holds the latest snapshot of the watched file and refreshes
// it through a detector and a loader. At most one refresh runs at a time;
// readers never wait for it.
type SnapshotStore struct {
	path      string
	detector  interfaces.ChangeDetector
	loader    interfaces.SnapshotLoader
	listeners []interfaces.SnapshotListener

	mu       sync.Mutex
	inflight *refreshCall

	current atomic.Pointer[types.Snapshot]
	loads   atomic.Int64
}

var _ interfaces.TradeStore = (*SnapshotStore)(nil)

func NewSnapshotStore(path string, detector interfaces.ChangeDetector, loader interfaces.SnapshotLoader, listeners ...interfaces.SnapshotListener) *SnapshotStore {
	return &SnapshotStore{
		path:      path,
		detector:  detector,
		loader:    loader,
		listeners: listeners,
	}
}

// AddListener registers a listener. It must be called before the store is
// shared with the scheduler or the HTTP layer.
func (s *SnapshotStore) AddListener(l interfaces.SnapshotListener) {
	s.listeners = append(s.listeners, l)
}

// MaybeRefresh loads the file if it changed since the last look and returns
// the new snapshot, or a no_update view otherwise.
func (s *SnapshotStore) MaybeRefresh(ctx context.Context) types.Snapshot {
	return s.run(ctx, false)
}

// ForceRefresh loads the file whether or not it changed.
func (s *SnapshotStore) ForceRefresh(ctx context.Context) types.Snapshot {
	return s.run(ctx, true)
}

// CurrentView returns the stored snapshot, or a no_update view before the
// first load.
func (s *SnapshotStore) CurrentView() types.Snapshot {
	if snap := s.current.Load(); snap != nil {
		return *snap
	}
	return types.NoUpdate()
}

func (s *SnapshotStore) Status() types.StoreStatus {
	st := types.StoreStatus{Path: s.path, Loads: s.loads.Load()}
	snap := s.current.Load()
	if snap == nil {
		return st
	}
	st.LastStatus = snap.Status
	st.LastLoad = snap.Timestamp
	if !snap.ModTime.IsZero() {
		mt := snap.ModTime
		st.ModTime = &mt
	}
	st.Fingerprint = snap.FingerprintHex()
	st.Rows = len(snap.Records)
	st.Error = snap.Error
	return st
}

// Loads returns how many times the loader has been invoked.
func (s *SnapshotStore) Loads() int64 { return s.loads.Load() }

func (s *SnapshotStore) run(ctx context.Context, force bool) types.Snapshot {
	for {
		s.mu.Lock()
		c := s.inflight
		if c == nil {
			break
		}
		s.mu.Unlock()

		select {
		case <-c.done:
		case <-ctx.Done():
			return types.NoUpdate()
		}
		// a forced refresh does not settle for a change check
		if !force || c.force {
			return c.snap
		}
	}

	c := &refreshCall{done: make(chan struct{}), force: force}
	s.inflight = c
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inflight = nil
		s.mu.Unlock()
		close(c.done)
	}()

	c.snap = s.refresh(ctx, force)
	return c.snap
}

func (s *SnapshotStore) refresh(ctx context.Context, force bool) types.Snapshot {
	if force {
		s.detector.Advance()
	} else if !s.detector.HasChanged() {
		return types.NoUpdate()
	}

	snap := s.loader.Load(ctx, s.path)
	s.loads.Add(1)
	s.current.Store(&snap)

	change := types.SnapshotChange{Path: s.path, Snapshot: snap, Forced: force}
	for _, l := range s.listeners {
		s.notify(ctx, l, change)
	}
	return snap
}

func (s *SnapshotStore) notify(ctx context.Context, l interfaces.SnapshotListener, change types.SnapshotChange) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorWithErr(ctx, "Snapshot listener panicked", fmt.Errorf("%v", r),
				"listener", fmt.Sprintf("%T", l),
			)
		}
	}()
	l.OnSnapshot(ctx, change)
}
