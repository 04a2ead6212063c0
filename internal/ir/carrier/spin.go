package carrier

import (
	"runtime"
	"time"
)

// sleepThreshold is the remaining time above which SpinDelay yields with a
// real sleep before spinning the rest.
const sleepThreshold = 2 * time.Millisecond

// SpinDelay waits for d against the monotonic clock. Kernel sleeps overshoot
// by tens of microseconds, which is a sizable share of a 520µs space, so the
// tail of every wait is a busy loop.
func SpinDelay(d time.Duration) {
	if d <= 0 {
		return
	}
	deadline := time.Now().Add(d)
	if d > sleepThreshold {
		time.Sleep(d - sleepThreshold)
	}
	for time.Now().Before(deadline) {
		runtime.Gosched()
	}
}
