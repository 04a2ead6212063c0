package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Transport is a bus connection. Inbound traffic and connection changes are
// delivered to the Sink given at construction, never to the caller.
type Transport interface {
	Connect(ctx context.Context) error
	Subscribe(topic string) error
	Publish(ctx context.Context, topic string, payload []byte) error
	Close()
}

// Options common to the broker transports.
type Options struct {
	BrokerURL      string
	ClientID       string
	Username       string
	Password       string
	QoS            byte
	Retain         bool
	ConnectTimeout time.Duration
}

// Transport names accepted by New.
const (
	NameMQTT = "mqtt"
	NameNATS = "nats"
	NameNone = "none"
)

var (
	ErrNotConnected     = errors.New("messaging: not connected")
	ErrUnknownTransport = errors.New("messaging: unknown transport")
)

const defaultConnectTimeout = 10 * time.Second

// New builds the transport called name.
func New(name string, opts Options, sink Sink) (Transport, error) {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}
	switch name {
	case NameMQTT:
		return NewMQTT(opts, sink), nil
	case NameNATS:
		return NewNATS(opts, sink), nil
	case NameNone:
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, name)
	}
}

// Noop is the transport of an HTTP-only deployment: publishes vanish and
// nothing is ever received.
type Noop struct{}

func (Noop) Connect(context.Context) error                 { return nil }
func (Noop) Subscribe(string) error                        { return nil }
func (Noop) Publish(context.Context, string, []byte) error { return nil }
func (Noop) Close()                                        {}
