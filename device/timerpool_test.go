package device

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// TestTimerPoolReuse exercises getTimer/putTimer directly: a pooled timer
// is reset rather than reallocated, and its channel never carries a stale
// tick left over from before it was returned to the pool.
func TestTimerPoolReuse(t *testing.T) {
	t1 := getTimer(10 * time.Millisecond)
	<-t1.C
	putTimer(t1)

	t2 := getTimer(20 * time.Millisecond)
	select {
	case <-t2.C:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("reused timer did not fire")
	}
	putTimer(t2)
}

func newThrottleTestServer(t *testing.T, readTimeout time.Duration) *Server {
	t.Helper()
	cfg, err := NewConfig("127.0.0.1", 0, WithReadTimeout(readTimeout))
	require.NoError(t, err)
	return NewServer(cfg, NewMemory(), nil)
}

// TestThrottleWaitsOutShortDelay exercises throttle's pooled-timer wait:
// a reservation slightly over budget is held for its delay rather than
// dropped outright.
func TestThrottleWaitsOutShortDelay(t *testing.T) {
	s := newThrottleTestServer(t, time.Second)
	limiter := rate.NewLimiter(rate.Limit(10), 1)
	remote := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1}

	require.True(t, s.throttle(limiter, remote))

	start := time.Now()
	require.True(t, s.throttle(limiter, remote))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

// TestThrottleDropsWhenWaitExceedsReadTimeout exercises the other branch:
// a reservation whose wait would outlast the read timeout is dropped
// instead of held, since waiting that long would starve the client's own
// read deadline.
func TestThrottleDropsWhenWaitExceedsReadTimeout(t *testing.T) {
	s := newThrottleTestServer(t, 10*time.Millisecond)
	limiter := rate.NewLimiter(rate.Limit(1), 1)
	remote := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1}

	require.True(t, s.throttle(limiter, remote))
	assert.False(t, s.throttle(limiter, remote))
}
