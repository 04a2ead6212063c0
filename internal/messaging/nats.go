package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS is a nats.go connection. Subjects stay subscribed across reconnects,
// so Subscribe is idempotent per subject.
type NATS struct {
	opts Options
	sink Sink

	mu   sync.Mutex
	nc   *nats.Conn
	subs map[string]*nats.Subscription
}

func NewNATS(o Options, sink Sink) *NATS {
	return &NATS{opts: o, sink: sink, subs: make(map[string]*nats.Subscription)}
}

func (n *NATS) options() []nats.Option {
	opts := []nats.Option{
		nats.Name(n.opts.ClientID),
		nats.Timeout(n.opts.ConnectTimeout),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.RetryOnFailedConnect(true),
		nats.ConnectHandler(func(*nats.Conn) {
			n.sink.Emit(Event{Kind: KindConnected})
		}),
		nats.ReconnectHandler(func(*nats.Conn) {
			n.sink.Emit(Event{Kind: KindConnected})
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			n.sink.Emit(Event{Kind: KindDisconnected, Err: err})
		}),
	}
	if n.opts.Username != "" {
		opts = append(opts, nats.UserInfo(n.opts.Username, n.opts.Password))
	}
	return opts
}

// Connect dials the server. With the initial attempt failing the connection
// keeps retrying in the background.
func (n *NATS) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	nc, err := nats.Connect(n.opts.BrokerURL, n.options()...)
	if err != nil {
		return fmt.Errorf("nats connect %s: %w", n.opts.BrokerURL, err)
	}
	n.mu.Lock()
	n.nc = nc
	n.mu.Unlock()
	// ConnectHandler may report this connection too; Subscribe tolerates repeats
	if nc.IsConnected() {
		n.sink.Emit(Event{Kind: KindConnected})
	}
	return nil
}

func (n *NATS) Subscribe(subject string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.nc == nil {
		return ErrNotConnected
	}
	if _, ok := n.subs[subject]; ok {
		return nil
	}
	sub, err := n.nc.Subscribe(subject, n.onMessage)
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", subject, err)
	}
	n.subs[subject] = sub
	return nil
}

func (n *NATS) Publish(ctx context.Context, subject string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.mu.Lock()
	nc := n.nc
	n.mu.Unlock()
	if nc == nil || !nc.IsConnected() {
		return ErrNotConnected
	}
	if err := nc.Publish(subject, payload); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

func (n *NATS) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for subject, sub := range n.subs {
		_ = sub.Unsubscribe()
		delete(n.subs, subject)
	}
	if n.nc != nil {
		n.nc.Close()
		n.nc = nil
	}
}

func (n *NATS) onMessage(msg *nats.Msg) {
	n.sink.Emit(Event{Kind: KindMessage, Topic: msg.Subject, Payload: msg.Data})
}
