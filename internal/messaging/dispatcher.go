// Package messaging connects the heatpump to its control bus. Transports only
// push events into a Dispatcher; every handler runs on the dispatcher's single
// goroutine, in arrival order.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"controlling_heatpump/internal/logger"
)

// Kind distinguishes bus events.
type Kind int

const (
	KindMessage Kind = iota
	KindConnected
	KindDisconnected
)

func (k Kind) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindConnected:
		return "connected"
	case KindDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Event is one occurrence on the bus.
type Event struct {
	Kind    Kind
	Topic   string
	Payload []byte
	Err     error // set on KindDisconnected when the transport reported a cause
}

// Sink receives events from a transport.
type Sink interface {
	Emit(e Event) bool
}

// Handler processes one message received on a topic.
type Handler func(ctx context.Context, topic string, payload []byte)

// ErrDispatcherRunning is returned when registering after Run started.
var ErrDispatcherRunning = errors.New("messaging: dispatcher already running")

const defaultBuffer = 64

// Dispatcher is the single dispatch point for bus events.
type Dispatcher struct {
	log    *logger.Logger
	events chan Event
	done   chan struct{}

	mu           sync.Mutex
	running      bool
	handlers     map[string]Handler
	onConnect    []func(ctx context.Context)
	onDisconnect []func(ctx context.Context, err error)

	unrouted atomic.Uint64
}

// NewDispatcher returns a dispatcher whose queue holds buffer events
// (a non-positive buffer selects the default).
func NewDispatcher(buffer int, log *logger.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Dispatcher{
		log:      logger.Or(log),
		events:   make(chan Event, buffer),
		done:     make(chan struct{}),
		handlers: make(map[string]Handler),
	}
}

// Handle routes messages whose topic equals topic to h. A later registration
// for the same topic replaces the earlier one.
func (d *Dispatcher) Handle(topic string, h Handler) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return ErrDispatcherRunning
	}
	d.handlers[topic] = h
	return nil
}

// OnConnect registers fn to run after every (re)connect.
func (d *Dispatcher) OnConnect(fn func(ctx context.Context)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return ErrDispatcherRunning
	}
	d.onConnect = append(d.onConnect, fn)
	return nil
}

// OnDisconnect registers fn to run after the transport loses its connection.
func (d *Dispatcher) OnDisconnect(fn func(ctx context.Context, err error)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return ErrDispatcherRunning
	}
	d.onDisconnect = append(d.onDisconnect, fn)
	return nil
}

// Emit queues e, blocking while the queue is full. It returns false once the
// dispatcher has stopped; the event is dropped in that case.
func (d *Dispatcher) Emit(e Event) bool {
	select {
	case <-d.done:
		return false
	default:
	}
	select {
	case d.events <- e:
		return true
	case <-d.done:
		return false
	}
}

// Unrouted is the number of messages that arrived on a topic without a handler.
func (d *Dispatcher) Unrouted() uint64 { return d.unrouted.Load() }

// Run dispatches events until ctx is canceled. It must be called once.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return ErrDispatcherRunning
	}
	d.running = true
	d.mu.Unlock()
	defer close(d.done)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-d.events:
			d.dispatch(ctx, e)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, e Event) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Errorw("bus_handler_panic", "kind", e.Kind.String(), "topic", e.Topic, "panic", r)
		}
	}()

	switch e.Kind {
	case KindConnected:
		d.log.Infow("bus_connected")
		for _, fn := range d.onConnect {
			fn(ctx)
		}
	case KindDisconnected:
		d.log.Warnw("bus_disconnected", "err", e.Err)
		for _, fn := range d.onDisconnect {
			fn(ctx, e.Err)
		}
	case KindMessage:
		h, ok := d.handlers[e.Topic]
		if !ok {
			d.unrouted.Add(1)
			d.log.Debugw("bus_message_unrouted", "topic", e.Topic)
			return
		}
		h(ctx, e.Topic, e.Payload)
	default:
		d.log.Warnw("bus_event_unknown", "kind", e.Kind.String())
	}
}
