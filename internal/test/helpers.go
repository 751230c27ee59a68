// Package test provides shared helpers for operator tests.
package test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fluxward/flume"
)

const waitFor = 2 * time.Second

// Drain collects every message from ch in order, failing the test if the
// channel neither drains nor errors within the timeout.
func Drain[T any](t *testing.T, ch *flume.Channel[T]) []T {
	t.Helper()
	var (
		out []T
		err error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		out, err = flume.ToSlice(ch)
	}()
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("channel did not drain")
	}
	if err != nil {
		t.Fatalf("channel errored: %v", err)
	}
	return out
}

// Await resolves r within the test timeout, failing the test on a pending
// result. The result's own error is returned for the caller to assert on.
func Await[T any](t *testing.T, r *flume.Result[T]) (T, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	v, err := r.Await(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("result did not resolve")
	}
	return v, err
}

// Eventually polls cond until it returns true or the test timeout expires.
func Eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(waitFor)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never became true")
}
