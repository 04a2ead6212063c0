package carrier

import (
	"errors"
	"sync"
	"time"
)

// ErrInjected is returned by a Recorder once its failure point is reached.
var ErrInjected = errors.New("injected carrier failure")

// Interval is one recorded level hold.
type Interval struct {
	On       bool
	Duration time.Duration
}

// Recorder is a Carrier that keeps every transition instead of driving a pin.
// FailAfter > 0 makes the FailAfter-th SetCarrier(true) call fail.
type Recorder struct {
	FailAfter int

	mu        sync.Mutex
	on        bool
	marks     int
	setCalls  int
	intervals []Interval
}

func (r *Recorder) SetCarrier(on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setCalls++
	if on {
		r.marks++
		if r.FailAfter > 0 && r.marks == r.FailAfter {
			return ErrInjected
		}
	}
	r.on = on
	return nil
}

func (r *Recorder) Delay(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.intervals = append(r.intervals, Interval{On: r.on, Duration: d})
}

// Intervals returns a copy of the recorded holds in order.
func (r *Recorder) Intervals() []Interval {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Interval, len(r.intervals))
	copy(out, r.intervals)
	return out
}

// SetCalls is the number of SetCarrier invocations, failed ones included.
func (r *Recorder) SetCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.setCalls
}

// On reports the last level successfully set.
func (r *Recorder) On() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.on
}
