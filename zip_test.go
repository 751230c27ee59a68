package flume_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fluxward/flume"
	"github.com/fluxward/flume/internal/test"
)

func TestZipAll_EmitsCompleteTuplesInOrder(t *testing.T) {
	a := flume.FromValues(1, 2)
	b := flume.FromValues(10, 20)

	out := flume.ZipAll(a, b)
	assert.Equal(t, [][]int{{1, 10}, {2, 20}}, test.Drain(t, out))
}

func TestZipAll_NeverEmitsPartialTuples(t *testing.T) {
	a := flume.NewChannel[int]()
	b := flume.NewChannel[int]()
	out := flume.ZipAll(a, b)

	a.Enqueue(1)
	a.Enqueue(2)
	assert.Equal(t, 0, out.Len())

	b.Enqueue(10)
	test.Eventually(t, func() bool { return out.Len() == 1 })

	v, ok := out.TryReceive()
	assert.True(t, ok)
	assert.Equal(t, []int{1, 10}, v)

	a.Close()
	b.Close()
	assert.Empty(t, test.Drain(t, out))
}

func TestZipAll_ClosesWhenAnyInputDrains(t *testing.T) {
	a := flume.FromValues(1)
	b := flume.NewChannel[int]()

	out := flume.ZipAll(a, b)
	b.Enqueue(10)
	assert.Equal(t, [][]int{{1, 10}}, test.Drain(t, out))
}

func TestZipAll_BackpressuresFastInput(t *testing.T) {
	a := flume.NewChannel[int]()
	b := flume.NewChannel[int]()
	out := flume.ZipAll(a, b)

	for i := 1; i <= 3; i++ {
		a.Enqueue(i)
	}
	// The slot holds one value and parks one more; the third stays queued
	// with a until the round advances.
	test.Eventually(t, func() bool { return a.Len() == 1 })

	b.Enqueue(10)
	b.Enqueue(20)
	b.Enqueue(30)
	a.Close()
	b.Close()
	assert.Equal(t, [][]int{{1, 10}, {2, 20}, {3, 30}}, test.Drain(t, out))
}

func TestZip_EagerSlotFlushesStaleRound(t *testing.T) {
	fast := flume.NewChannel[int]()
	slow := flume.NewChannel[int]()
	out := flume.Zip(0, fast, slow)

	fast.Enqueue(1)
	slow.Enqueue(10)
	test.Eventually(t, func() bool { return out.Len() == 1 })

	// A repeat arrival on the eager slot re-emits the last snapshot with
	// the new value rather than waiting for the slow input.
	fast.Enqueue(2)
	fast.Enqueue(3)
	test.Eventually(t, func() bool { return out.Len() == 2 })

	fast.Close()
	slow.Close()
	got := test.Drain(t, out)
	assert.Equal(t, [][]int{{1, 10}, {2, 10}}, got[:2])
}

func TestZipAll_NoInputsClosesImmediately(t *testing.T) {
	out := flume.ZipAll[int]()
	assert.True(t, out.Drained())
}

func TestCombineLatest_WaitsForAllThenEmitsPerArrival(t *testing.T) {
	a := flume.NewChannel[int]()
	b := flume.NewChannel[int]()
	out := flume.CombineLatest(a, b)

	a.Enqueue(1)
	a.Enqueue(2)
	assert.Equal(t, 0, out.Len())

	b.Enqueue(10)
	test.Eventually(t, func() bool { return out.Len() >= 1 })

	a.Enqueue(3)
	a.Close()
	b.Close()

	got := test.Drain(t, out)
	assert.Equal(t, []int{3, 10}, got[len(got)-1])
}

func TestCombineLatest_ClosesAfterAllInputsClose(t *testing.T) {
	a := flume.FromValues(1)
	b := flume.NewChannel[int]()
	out := flume.CombineLatest(a, b)

	assert.False(t, out.Closed())
	b.Enqueue(10)
	b.Close()
	assert.Equal(t, [][]int{{1, 10}}, test.Drain(t, out))
}
