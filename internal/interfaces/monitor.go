package interfaces

import (
	"context"

	"trade-monitor/internal/types"
)

// ChangeDetector decides whether the watched file has a newer version than
// the last one observed.
type ChangeDetector interface {
	HasChanged() bool
	// Advance moves the bookmark to the file's current modification time
	// if that is newer, without reporting a change.
	Advance()
}

type SnapshotLoader interface {
	Load(ctx context.Context, path string) types.Snapshot
}

// Refresher is the part of the store the scheduler depends on.
type Refresher interface {
	MaybeRefresh(ctx context.Context) types.Snapshot
}

type TradeStore interface {
	Refresher
	ForceRefresh(ctx context.Context) types.Snapshot
	CurrentView() types.Snapshot
	Status() types.StoreStatus
}

// SnapshotListener is told about every snapshot swap. Implementations must
// not block.
type SnapshotListener interface {
	OnSnapshot(ctx context.Context, change types.SnapshotChange)
}
