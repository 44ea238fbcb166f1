package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-monitor/internal/types"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisher_OnSnapshot(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisher(w, "trade-snapshots")

	ts := time.Date(2024, 5, 2, 14, 0, 0, 0, time.UTC)
	p.OnSnapshot(context.Background(), types.SnapshotChange{
		Path:     "/data/trades.csv",
		Snapshot: types.Snapshot{Status: types.StatusSuccess, Timestamp: &ts, Records: []types.Record{}},
	})

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, "/data/trades.csv", string(msg.Key))

	var ev types.ReloadEvent
	require.NoError(t, json.Unmarshal(msg.Value, &ev))
	assert.Equal(t, types.StatusSuccess, ev.Status)
	assert.Equal(t, "2024-05-02T14:00:00Z", ev.Time)
	assert.Zero(t, ev.Rows)
}

func TestKafkaPublisher_WriteErrorIsSwallowed(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := NewKafkaPublisher(w, "trade-snapshots")

	assert.NotPanics(t, func() {
		p.OnSnapshot(context.Background(), types.SnapshotChange{Snapshot: types.NoUpdate()})
	})
	assert.Error(t, p.Publish(context.Background(), types.ReloadEvent{}))
}

func TestKafkaPublisher_Close(t *testing.T) {
	w := &fakeWriter{}
	require.NoError(t, NewKafkaPublisher(w, "t").Close())
	assert.True(t, w.closed)
}

func TestNewKafkaWriter(t *testing.T) {
	w := NewKafkaWriter([]string{"localhost:9092"}, "trade-snapshots")

	assert.Equal(t, "trade-snapshots", w.Topic)
	assert.True(t, w.Async)
	assert.NotNil(t, w.Completion)
	assert.Equal(t, "localhost:9092", w.Addr.String())
}
