package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEvent(t *testing.T, eventType string, seed int64) *Envelope {
	t.Helper()
	ev, err := NewEnvelope("worldgen-test", eventType, 5, WorldTemplateEvent{Seed: seed, Origin: "generated"})
	require.NoError(t, err)
	return ev
}

func TestNewEnvelope(t *testing.T) {
	a := newEvent(t, EventWorldTemplateGenerated, 42)
	b := newEvent(t, EventWorldTemplateGenerated, 42)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID, "каждое событие получает свой UUID")
	assert.Equal(t, 1, a.Version)
	assert.Equal(t, time.UTC, a.Timestamp.Location())

	var payload WorldTemplateEvent
	require.NoError(t, a.DecodePayload(&payload))
	assert.Equal(t, int64(42), payload.Seed)
	assert.Equal(t, "generated", payload.Origin)
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "worldgen.WorldTemplateGenerated", Subject(EventWorldTemplateGenerated))
}

func TestMemoryBus_FilterDelivery(t *testing.T) {
	bus := NewMemoryBus(16)
	defer bus.Close()

	var mu sync.Mutex
	var got []string
	_, err := bus.Subscribe(context.Background(), Filter{Types: []string{EventWorldTemplateDeleted}}, func(ctx context.Context, ev *Envelope) {
		mu.Lock()
		got = append(got, ev.EventType)
		mu.Unlock()
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, newEvent(t, EventWorldTemplateGenerated, 1)))
	require.NoError(t, bus.Publish(ctx, newEvent(t, EventWorldTemplateDeleted, 1)))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []string{EventWorldTemplateDeleted}, got, "фильтр пропускает только нужный тип")
	mu.Unlock()

	assert.Equal(t, uint64(2), bus.Metrics().Published)
}

func TestMemoryBus_Unsubscribe(t *testing.T) {
	bus := NewMemoryBus(4)
	defer bus.Close()

	calls := make(chan struct{}, 4)
	sub, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		calls <- struct{}{}
	})
	require.NoError(t, err)
	sub.Unsubscribe()

	require.NoError(t, bus.Publish(context.Background(), newEvent(t, EventWorldTemplateGenerated, 3)))
	select {
	case <-calls:
		t.Fatal("отписанный обработчик не должен вызываться")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryBus_DropsLowPriorityWhenFull(t *testing.T) {
	mb := &memoryBus{
		subscribers: make(map[int]subscriber),
		buffer:      make(chan *Envelope, 1),
		done:        make(chan struct{}),
	}
	// dispatchLoop не запущен, буфер не разгружается
	ctx := context.Background()
	low := newEvent(t, EventWorldTemplateGenerated, 1)
	low.Priority = 1

	require.NoError(t, mb.Publish(ctx, low))
	require.NoError(t, mb.Publish(ctx, low))

	stats := mb.Metrics()
	assert.Equal(t, uint64(1), stats.Published)
	assert.Equal(t, uint64(1), stats.Dropped)
	assert.Equal(t, 1, stats.InFlight)

	high := newEvent(t, EventWorldTemplateGenerated, 2)
	high.Priority = 9
	cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, mb.Publish(cctx, high), context.DeadlineExceeded, "высокий приоритет ждёт места до отмены")
}

func TestMemoryBus_PublishAfterClose(t *testing.T) {
	bus := NewMemoryBus(4)
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())
	assert.Error(t, bus.Publish(context.Background(), newEvent(t, EventWorldTemplateGenerated, 1)))
}

func TestGlobalPublish(t *testing.T) {
	Init(nil)
	assert.NoError(t, Publish(context.Background(), newEvent(t, EventWorldTemplateGenerated, 1)), "без шины публикация молча игнорируется")

	bus := NewMemoryBus(4)
	defer bus.Close()
	Init(bus)
	defer Init(nil)

	require.NoError(t, Publish(context.Background(), newEvent(t, EventWorldTemplateGenerated, 1)))
	assert.Equal(t, uint64(1), Global().Metrics().Published)
}

func TestMetricsExporter_Sync(t *testing.T) {
	bus := NewMemoryBus(8)
	defer bus.Close()

	reg := prometheus.NewRegistry()
	exp := NewMetricsExporter(bus, reg)

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, newEvent(t, EventWorldTemplateGenerated, 1)))
	require.NoError(t, bus.Publish(ctx, newEvent(t, EventWorldTemplateGenerated, 2)))

	exp.sync()
	exp.sync()
	assert.Equal(t, 2.0, testutil.ToFloat64(exp.published), "повторная синхронизация не удваивает счётчик")

	exp.Start(time.Hour)
	exp.Stop()
	assert.Equal(t, 2.0, testutil.ToFloat64(exp.published))
}
