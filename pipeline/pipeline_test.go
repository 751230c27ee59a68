package pipeline_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxward/flume"
	"github.com/fluxward/flume/pipeline"
)

func await(t *testing.T, r *flume.Result[any]) (any, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	v, err := r.Await(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("run did not finish")
	}
	return v, err
}

func addStage(n int) pipeline.Stage {
	return func(v any) (any, error) { return v.(int) + n, nil }
}

func TestRun_StagesExecuteInOrder(t *testing.T) {
	p := pipeline.New(addStage(1), addStage(10), addStage(100))
	v, err := await(t, p.Run(0))
	require.NoError(t, err)
	assert.Equal(t, 111, v)
}

func TestRun_SuspendsOnPendingResultAndResumes(t *testing.T) {
	gate := flume.NewResult[int]()
	p := pipeline.New(
		func(v any) (any, error) { return gate, nil },
		addStage(1),
	)

	r := p.Run(nil)
	assert.False(t, r.Resolved())

	gate.Succeed(41)
	v, err := await(t, r)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestRun_ResolvedResultContinuesInline(t *testing.T) {
	p := pipeline.New(
		func(v any) (any, error) { return flume.SuccessResult(5), nil },
		addStage(1),
	)
	v, err := await(t, p.Run(nil))
	require.NoError(t, err)
	assert.Equal(t, 6, v)
}

func TestRun_FailedResultFailsRun(t *testing.T) {
	cause := errors.New("boom")
	gate := flume.NewResult[int]()
	p := pipeline.New(func(v any) (any, error) { return gate, nil })

	r := p.Run(nil)
	gate.Fail(cause)
	_, err := await(t, r)
	assert.ErrorIs(t, err, cause)
}

func TestRun_RestartLoopsToFirstStage(t *testing.T) {
	p := pipeline.New(func(v any) (any, error) {
		n := v.(int)
		if n < 3 {
			return pipeline.Restart(n + 1), nil
		}
		return n, nil
	})
	v, err := await(t, p.Run(0))
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestRun_CompleteShortCircuits(t *testing.T) {
	var reached atomic.Bool
	p := pipeline.New(
		func(v any) (any, error) { return pipeline.Complete("early"), nil },
		func(v any) (any, error) { reached.Store(true); return v, nil },
	)
	v, err := await(t, p.Run(nil))
	require.NoError(t, err)
	assert.Equal(t, "early", v)
	assert.False(t, reached.Load())
}

func TestRun_RedirectExecutesTargetStages(t *testing.T) {
	target := pipeline.New(addStage(100))
	p := pipeline.New(func(v any) (any, error) {
		return pipeline.Redirect(target, v), nil
	})
	v, err := await(t, p.Run(1))
	require.NoError(t, err)
	assert.Equal(t, 101, v)
}

func TestRun_RedirectAdoptsTargetHandlers(t *testing.T) {
	var originalFinally, targetFinally atomic.Int32
	target := pipeline.New(func(v any) (any, error) {
		return nil, errors.New("target boom")
	}).OnError(func(err error) (any, bool) {
		return "recovered by target", true
	}).Finally(func() { targetFinally.Add(1) })

	p := pipeline.New(func(v any) (any, error) {
		return pipeline.Redirect(target, v), nil
	}).Finally(func() { originalFinally.Add(1) })

	v, err := await(t, p.Run(nil))
	require.NoError(t, err)
	assert.Equal(t, "recovered by target", v)
	assert.Equal(t, int32(1), targetFinally.Load())
	assert.Equal(t, int32(0), originalFinally.Load())
}

func TestRun_RedirectKeepsHandlersTargetLacks(t *testing.T) {
	var finallyRuns atomic.Int32
	target := pipeline.New(func(v any) (any, error) { return v, nil })
	p := pipeline.New(func(v any) (any, error) {
		return pipeline.Redirect(target, v), nil
	}).Finally(func() { finallyRuns.Add(1) })

	_, err := await(t, p.Run(nil))
	require.NoError(t, err)
	assert.Equal(t, int32(1), finallyRuns.Load())
}

func TestRun_HandlerRecoversStageError(t *testing.T) {
	p := pipeline.New(func(v any) (any, error) {
		return nil, errors.New("boom")
	}).OnError(func(err error) (any, bool) {
		return "fallback", true
	})
	v, err := await(t, p.Run(nil))
	require.NoError(t, err)
	assert.Equal(t, "fallback", v)
}

func TestRun_HandlerDecliningLeavesErrorUnrecovered(t *testing.T) {
	cause := errors.New("boom")
	p := pipeline.New(func(v any) (any, error) {
		return nil, cause
	}).OnError(func(err error) (any, bool) {
		return nil, false
	})
	_, err := await(t, p.Run(nil))
	assert.ErrorIs(t, err, cause)
}

func TestRun_StagePanicBecomesError(t *testing.T) {
	p := pipeline.New(func(v any) (any, error) { panic("kaboom") })
	_, err := await(t, p.Run(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestRun_FinallyRunsExactlyOnceOnSuccess(t *testing.T) {
	var runs atomic.Int32
	p := pipeline.New(addStage(1)).Finally(func() { runs.Add(1) })
	_, err := await(t, p.Run(0))
	require.NoError(t, err)
	assert.Equal(t, int32(1), runs.Load())
}

func TestRun_FinallyRunsExactlyOnceOnError(t *testing.T) {
	var runs atomic.Int32
	p := pipeline.New(func(v any) (any, error) {
		return nil, errors.New("boom")
	}).Finally(func() { runs.Add(1) })
	_, err := await(t, p.Run(nil))
	require.Error(t, err)
	assert.Equal(t, int32(1), runs.Load())
}

func TestRun_FinallyRunsAcrossSuspension(t *testing.T) {
	var runs atomic.Int32
	gate := flume.NewResult[int]()
	p := pipeline.New(
		func(v any) (any, error) { return gate, nil },
	).Finally(func() { runs.Add(1) })

	r := p.Run(nil)
	assert.Equal(t, int32(0), runs.Load())

	gate.Succeed(1)
	_, err := await(t, r)
	require.NoError(t, err)
	assert.Equal(t, int32(1), runs.Load())
}

func TestRun_FinallyRunsBeforeResultResolves(t *testing.T) {
	var order []string
	p := pipeline.New(addStage(1)).Finally(func() {
		order = append(order, "finally")
	})
	r := p.Run(0)
	r.Subscribe(
		func(any) { order = append(order, "result") },
		func(error) { order = append(order, "result") },
	)
	await(t, r)
	assert.Equal(t, []string{"finally", "result"}, order)
}

func TestRun_EachRunIsIndependent(t *testing.T) {
	var runs atomic.Int32
	p := pipeline.New(addStage(1)).Finally(func() { runs.Add(1) })

	v1, _ := await(t, p.Run(0))
	v2, _ := await(t, p.Run(10))
	assert.Equal(t, 1, v1)
	assert.Equal(t, 11, v2)
	assert.Equal(t, int32(2), runs.Load())
}

func TestLift_TypedStage(t *testing.T) {
	double := pipeline.Lift(func(n int) (int, error) { return n * 2, nil })
	p := pipeline.New(double)

	v, err := await(t, p.Run(21))
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	_, err = await(t, p.Run("not an int"))
	assert.Error(t, err)
}
