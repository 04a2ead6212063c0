package carrier

import (
	"sync"
	"time"
)

// Simulated stands in for the emitter on hosts without one. It keeps the
// protocol timing by sleeping and counts marks and lit time for diagnostics.
type Simulated struct {
	mu     sync.Mutex
	on     bool
	marks  int
	onTime time.Duration
	sleep  func(time.Duration)
}

// NewSimulated returns a dark simulated line.
func NewSimulated() *Simulated {
	return &Simulated{sleep: time.Sleep}
}

func (s *Simulated) SetCarrier(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if on && !s.on {
		s.marks++
	}
	s.on = on
	return nil
}

func (s *Simulated) Delay(d time.Duration) {
	s.mu.Lock()
	if s.on {
		s.onTime += d
	}
	sleep := s.sleep
	s.mu.Unlock()
	sleep(d)
}

// Stats returns how many marks were emitted and the total lit time.
func (s *Simulated) Stats() (marks int, onTime time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.marks, s.onTime
}
