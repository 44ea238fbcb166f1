package monitorobs

import (
	"context"

	"trade-monitor/internal/interfaces"
	"trade-monitor/internal/logger"
	"trade-monitor/internal/trace"
	"trade-monitor/internal/types"
)

type observableTradeStore struct {
	store interfaces.TradeStore
}

var _ interfaces.TradeStore = (*observableTradeStore)(nil)

func Wrap(store interfaces.TradeStore) interfaces.TradeStore {
	return &observableTradeStore{
		store: store,
	}
}

func (ots *observableTradeStore) MaybeRefresh(ctx context.Context) types.Snapshot {
	ctx, span := trace.StartSpan(ctx, "monitor.MaybeRefresh")
	defer span.End()

	snap := ots.store.MaybeRefresh(ctx)
	logSnapshot(ctx, "Trades checked", snap, false)
	return snap
}

func (ots *observableTradeStore) ForceRefresh(ctx context.Context) types.Snapshot {
	ctx, span := trace.StartSpan(ctx, "monitor.ForceRefresh")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Forcing trades reload")

	snap := ots.store.ForceRefresh(ctx)
	logSnapshot(ctx, "Trades reloaded", snap, true)
	return snap
}

func (ots *observableTradeStore) CurrentView() types.Snapshot {
	return ots.store.CurrentView()
}

func (ots *observableTradeStore) Status() types.StoreStatus {
	ctx, span := trace.StartSpan(context.Background(), "monitor.Status")
	defer span.End()

	st := ots.store.Status()
	logger.DebugSkip(ctx, 1, "Store status read",
		"loads", st.Loads,
		"last_status", st.LastStatus,
	)
	return st
}

func logSnapshot(ctx context.Context, msg string, snap types.Snapshot, forced bool) {
	switch snap.Status {
	case types.StatusError:
		logger.WarnSkip(ctx, 2, msg+" with errors",
			"error", snap.Error,
			"forced", forced,
		)
	case types.StatusSuccess:
		logger.InfoSkip(ctx, 2, msg,
			"rows", len(snap.Records),
			"fingerprint", snap.FingerprintHex(),
			"forced", forced,
		)
	default:
		logger.DebugSkip(ctx, 2, msg+", no update")
	}
}
