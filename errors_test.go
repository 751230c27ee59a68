package flume_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fluxward/flume"
	"github.com/fluxward/flume/internal/test"
)

func TestUpstreamErrorWrapsCause(t *testing.T) {
	cause := errors.New("disk full")
	ch := flume.NewChannel[int]()
	ch.Error(cause, false)

	_, err := test.Await(t, ch.Receive())
	assert.ErrorIs(t, err, flume.ErrUpstream)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "disk full")
}

func TestUpstreamErrorIsNotDoubleWrapped(t *testing.T) {
	up := flume.NewChannel[int]()
	down := flume.NewChannel[int]()
	flume.Siphon(up, down)

	up.Error(errors.New("boom"), false)
	test.Eventually(t, down.Errored)

	_, err := test.Await(t, down.Receive())
	assert.ErrorIs(t, err, flume.ErrUpstream)
	// One upstream prefix, however many hops the error travelled.
	assert.Equal(t, 1, strings.Count(err.Error(), flume.ErrUpstream.Error()))
}

func TestTimeoutErrorUnwraps(t *testing.T) {
	r := flume.NewResult[int]().WithTimeout(0)
	err := r.Err()
	assert.ErrorIs(t, err, flume.ErrTimeout)
}
