package service

import "sync"

// StateFeed fans a "state changed" signal out to watchers such as websocket
// streams. Notify never blocks: a watcher that has not drained its previous
// signal keeps that one, so bursts coalesce. A nil *StateFeed ignores Notify.
type StateFeed struct {
	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

func NewStateFeed() *StateFeed {
	return &StateFeed{subs: make(map[chan struct{}]struct{})}
}

// Subscribe returns a signal channel and the func that releases it.
// The release func may be called more than once.
func (f *StateFeed) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, ch)
			f.mu.Unlock()
		})
	}
}

// Notify signals every watcher.
func (f *StateFeed) Notify() {
	if f == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Watchers reports how many subscriptions are live.
func (f *StateFeed) Watchers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
