package flume_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxward/flume"
	"github.com/fluxward/flume/internal/test"
	"github.com/fluxward/flume/scheduler"
)

type reading struct {
	sensor string
	value  int
}

func bySensor(r reading) string { return r.sensor }

func TestAggregate_LappedKeyFlushes(t *testing.T) {
	src := flume.NewChannel[reading]()
	out := flume.Aggregate(src, flume.AggregateConfig[reading, string]{Facet: bySensor})

	src.Enqueue(reading{"a", 1})
	src.Enqueue(reading{"b", 2})
	// The repeat on "a" hands the first map off and starts the next one.
	src.Enqueue(reading{"a", 3})
	src.Close()

	batches := test.Drain(t, out)
	require.Len(t, batches, 2)
	assert.Equal(t, map[string]reading{"a": {"a", 1}, "b": {"b", 2}}, batches[0])
	assert.Equal(t, map[string]reading{"a": {"a", 3}}, batches[1])
}

func TestAggregate_KeepsLatestPerKeyWithinBatch(t *testing.T) {
	src := flume.FromValues(
		reading{"a", 1},
		reading{"b", 2},
	)
	out := flume.Aggregate(src, flume.AggregateConfig[reading, string]{Facet: bySensor})

	batches := test.Drain(t, out)
	require.Len(t, batches, 1)
	assert.Equal(t, map[string]reading{"a": {"a", 1}, "b": {"b", 2}}, batches[0])
}

func TestAggregate_FlushPredicate(t *testing.T) {
	src := flume.FromValues(
		reading{"a", 1},
		reading{"b", 2},
		reading{"c", 3},
	)
	out := flume.Aggregate(src, flume.AggregateConfig[reading, string]{
		Facet: bySensor,
		Flush: func(m map[string]reading) bool { return len(m) >= 2 },
	})

	batches := test.Drain(t, out)
	require.Len(t, batches, 2)
	assert.Len(t, batches[0], 2)
	assert.Equal(t, map[string]reading{"c": {"c", 3}}, batches[1])
}

func TestAggregate_ResidualFlushOnClose(t *testing.T) {
	src := flume.FromValues(reading{"a", 1})
	out := flume.Aggregate(src, flume.AggregateConfig[reading, string]{Facet: bySensor})

	batches := test.Drain(t, out)
	require.Len(t, batches, 1)
	assert.Equal(t, map[string]reading{"a": {"a", 1}}, batches[0])
}

func TestAggregate_EmptySourceEmitsNothing(t *testing.T) {
	src := flume.NewChannel[reading]()
	src.Close()
	out := flume.Aggregate(src, flume.AggregateConfig[reading, string]{Facet: bySensor})
	assert.Empty(t, test.Drain(t, out))
}

func TestAggregate_PeriodicFlush(t *testing.T) {
	tq := scheduler.NewFakeQueue(time.Now())
	src := flume.NewChannel[reading]()
	out := flume.Aggregate(src, flume.AggregateConfig[reading, string]{
		Facet:     bySensor,
		Period:    time.Second,
		TaskQueue: tq,
	})

	src.Enqueue(reading{"a", 1})
	test.Eventually(t, func() bool { return src.Len() == 0 })

	tq.Advance(time.Second)
	test.Eventually(t, func() bool { return out.Len() == 1 })

	batch, ok := out.TryReceive()
	require.True(t, ok)
	assert.Equal(t, map[string]reading{"a": {"a", 1}}, batch)

	// An empty interval flushes nothing.
	tq.Advance(time.Second)
	assert.Equal(t, 0, out.Len())
	src.Close()
}

func TestDistributeAggregate_CombinesPerKeyStreams(t *testing.T) {
	tq := scheduler.NewFakeQueue(time.Now())
	src := flume.NewChannel[reading]()
	out := flume.DistributeAggregate(src, flume.DistributeAggregateConfig[reading, string]{
		Facet:     bySensor,
		Period:    time.Minute,
		TaskQueue: tq,
	})

	src.Enqueue(reading{"a", 1})
	src.Enqueue(reading{"b", 2})
	src.Close()

	batches := test.Drain(t, out)
	require.NotEmpty(t, batches)
	assert.Equal(t, map[string]reading{"a": {"a", 1}, "b": {"b", 2}}, batches[len(batches)-1])
}

func TestDistributeAggregate_GeneratorTransformsSubStreams(t *testing.T) {
	tq := scheduler.NewFakeQueue(time.Now())
	src := flume.NewChannel[reading]()
	out := flume.DistributeAggregate(src, flume.DistributeAggregateConfig[reading, string]{
		Facet: bySensor,
		Generator: func(key string, sub *flume.Channel[reading]) *flume.Channel[reading] {
			return flume.Transform(sub, func(r reading) reading {
				r.value *= 10
				return r
			})
		},
		Period:    time.Minute,
		TaskQueue: tq,
	})

	src.Enqueue(reading{"a", 1})
	src.Close()

	batches := test.Drain(t, out)
	require.NotEmpty(t, batches)
	assert.Equal(t, map[string]reading{"a": {"a", 10}}, batches[len(batches)-1])
}

func TestDistributeAggregate_PeriodicRefreshRepeatsSnapshot(t *testing.T) {
	tq := scheduler.NewFakeQueue(time.Now())
	src := flume.NewChannel[reading]()
	out := flume.DistributeAggregate(src, flume.DistributeAggregateConfig[reading, string]{
		Facet:     bySensor,
		Period:    time.Second,
		TaskQueue: tq,
	})

	src.Enqueue(reading{"a", 1})
	test.Eventually(t, func() bool { return out.Len() >= 1 })

	before := out.Len()
	tq.Advance(time.Second)
	test.Eventually(t, func() bool { return out.Len() > before })

	snap, ok := out.TryReceive()
	require.True(t, ok)
	assert.Equal(t, map[string]reading{"a": {"a", 1}}, snap)
	src.Close()
}
