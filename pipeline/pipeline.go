// Package pipeline provides resumable multi-stage computations. Stages run
// left to right; a stage returning a pending result suspends the run, which
// resumes on whichever goroutine resolves it. Runs may loop back to the
// first stage, hand off to another pipeline, or short-circuit, and a
// finally handler is guaranteed to run exactly once per run.
package pipeline

import (
	"fmt"
	"sync/atomic"

	"github.com/fluxward/flume"
)

// Stage transforms the previous stage's output. Returning a pending
// *flume.Result suspends the run until it resolves; returning a value built
// with Restart, Redirect or Complete changes the run's control flow.
type Stage func(v any) (any, error)

// Handler recovers a run from a stage error. A false second return leaves
// the error unrecovered.
type Handler func(err error) (any, bool)

// pendingResult is satisfied by *flume.Result of any type parameter.
type pendingResult interface {
	SubscribeAny(onSuccess func(any), onError func(error))
	PeekAny() (any, error, bool)
}

type restartValue struct{ v any }

type redirectValue struct {
	target *Pipeline
	v      any
}

type completeValue struct{ v any }

// Restart re-enters the run's first stage with v, without finalizing.
func Restart(v any) any {
	return restartValue{v: v}
}

// Redirect abandons the remaining stages and begins executing target from
// its first stage with v. The target's error and finally handlers take
// over where the target supplies them.
func Redirect(target *Pipeline, v any) any {
	return redirectValue{target: target, v: v}
}

// Complete ends the run immediately, resolving its result with v.
func Complete(v any) any {
	return completeValue{v: v}
}

// Pipeline is an immutable sequence of stages with optional error and
// finally handlers. A pipeline may be run any number of times; each Run is
// independent.
type Pipeline struct {
	stages  []Stage
	handler Handler
	finally func()
}

// New creates a pipeline from stages.
func New(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// OnError sets the handler invoked when a stage returns or panics an
// unrecovered error. Returns the pipeline for chaining.
func (p *Pipeline) OnError(h Handler) *Pipeline {
	p.handler = h
	return p
}

// Finally sets a handler guaranteed to run exactly once per run, on
// success, error, and every control-flow path.
func (p *Pipeline) Finally(fn func()) *Pipeline {
	p.finally = fn
	return p
}

// Run executes the pipeline with input. The returned result resolves with
// the final stage's output (or a Complete value), or with the unrecovered
// error. Control returns as soon as the run suspends.
func (p *Pipeline) Run(input any) *flume.Result[any] {
	r := &run{
		stages:  p.stages,
		handler: p.handler,
		finally: p.finally,
		result:  flume.NewResult[any](),
	}
	r.advance(0, input)
	return r.result
}

// Lift adapts a typed function into a Stage, failing the run when the
// input is not an In.
func Lift[In, Out any](fn func(In) (Out, error)) Stage {
	return func(v any) (any, error) {
		in, ok := v.(In)
		if !ok {
			return nil, fmt.Errorf("pipeline: stage expected %T, got %T", in, v)
		}
		return fn(in)
	}
}

type run struct {
	stages  []Stage
	handler Handler
	finally func()
	result  *flume.Result[any]
	done    atomic.Bool
}

// advance drives the state machine from stage idx with input v. It is a
// trampoline: suspension registers a callback that re-enters advance on the
// resolving goroutine and returns immediately.
func (r *run) advance(idx int, v any) {
	for {
		if idx >= len(r.stages) {
			r.finish(v, nil)
			return
		}
		out, err := r.applyStage(r.stages[idx], v)
		if err != nil {
			r.fail(err)
			return
		}
		switch cv := out.(type) {
		case restartValue:
			idx, v = 0, cv.v
		case redirectValue:
			r.stages = cv.target.stages
			if cv.target.handler != nil {
				r.handler = cv.target.handler
			}
			if cv.target.finally != nil {
				r.finally = cv.target.finally
			}
			idx, v = 0, cv.v
		case completeValue:
			r.finish(cv.v, nil)
			return
		case pendingResult:
			if pv, perr, ok := cv.PeekAny(); ok {
				if perr != nil {
					r.fail(perr)
					return
				}
				idx, v = idx+1, pv
				continue
			}
			next := idx + 1
			cv.SubscribeAny(
				func(rv any) { r.advance(next, rv) },
				func(rerr error) { r.fail(rerr) },
			)
			return
		default:
			idx, v = idx+1, out
		}
	}
}

func (r *run) applyStage(s Stage, v any) (out any, err error) {
	defer func() {
		if p := recover(); p != nil {
			out = nil
			err = fmt.Errorf("pipeline: stage panic: %v", p)
		}
	}()
	return s(v)
}

func (r *run) fail(err error) {
	if r.handler != nil {
		if rv, ok := r.handler(err); ok {
			r.finish(rv, nil)
			return
		}
	}
	r.finish(nil, err)
}

func (r *run) finish(v any, err error) {
	if !r.done.CompareAndSwap(false, true) {
		return
	}
	defer func() {
		if err != nil {
			r.result.Fail(err)
		} else {
			r.result.Succeed(v)
		}
	}()
	if r.finally != nil {
		r.finally()
	}
}
