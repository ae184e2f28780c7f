package device

import (
	"sync"
	"time"
)

// timerPool backs throttle's rate-limit wait: one *time.Timer per
// concurrently-waiting connection goroutine, reused across frames instead
// of allocated fresh for every reservation delay.
var timerPool sync.Pool

// getTimer returns a timer for duration d from the pool, resetting and
// draining a reused timer so its channel never carries a stale tick.
func getTimer(d time.Duration) *time.Timer {
	if v := timerPool.Get(); v != nil {
		t, _ := v.(*time.Timer) // safe: only *time.Timer is ever Put
		if t.Reset(d) {
			select {
			case <-t.C:
			default:
			}
		}
		return t
	}
	return time.NewTimer(d)
}

// putTimer returns t to the pool. t must not be used by the caller again.
func putTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	timerPool.Put(t)
}
