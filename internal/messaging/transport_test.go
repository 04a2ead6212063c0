package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
)

type captureSink struct {
	events []Event
}

func (c *captureSink) Emit(e Event) bool {
	c.events = append(c.events, e)
	return true
}

func TestNew(t *testing.T) {
	sink := &captureSink{}
	opts := Options{BrokerURL: "tcp://127.0.0.1:1883", ClientID: "hp-test"}

	tr, err := New(NameMQTT, opts, sink)
	if err != nil {
		t.Fatalf("New(mqtt): %v", err)
	}
	m, ok := tr.(*MQTT)
	if !ok {
		t.Fatalf("New(mqtt) = %T", tr)
	}
	if m.opts.ConnectTimeout != defaultConnectTimeout {
		t.Fatalf("ConnectTimeout = %s", m.opts.ConnectTimeout)
	}

	if tr, err := New(NameNATS, opts, sink); err != nil {
		t.Fatalf("New(nats): %v", err)
	} else if _, ok := tr.(*NATS); !ok {
		t.Fatalf("New(nats) = %T", tr)
	}

	if tr, err := New(NameNone, opts, sink); err != nil {
		t.Fatalf("New(none): %v", err)
	} else if _, ok := tr.(Noop); !ok {
		t.Fatalf("New(none) = %T", tr)
	}

	if _, err := New("amqp", opts, sink); !errors.Is(err, ErrUnknownTransport) {
		t.Fatalf("New(amqp) err = %v", err)
	}
}

func TestNoop(t *testing.T) {
	var n Noop
	ctx := context.Background()
	if err := n.Connect(ctx); err != nil {
		t.Fatal(err)
	}
	if err := n.Subscribe("t"); err != nil {
		t.Fatal(err)
	}
	if err := n.Publish(ctx, "t", []byte("x")); err != nil {
		t.Fatal(err)
	}
	n.Close()
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (f fakeMessage) Duplicate() bool   { return false }
func (f fakeMessage) Qos() byte         { return 1 }
func (f fakeMessage) Retained() bool    { return false }
func (f fakeMessage) Topic() string     { return f.topic }
func (f fakeMessage) MessageID() uint16 { return 1 }
func (f fakeMessage) Payload() []byte   { return f.payload }
func (f fakeMessage) Ack()              {}

func TestMQTT_ClientOptions(t *testing.T) {
	m := NewMQTT(Options{
		BrokerURL:      "tcp://127.0.0.1:1883",
		ClientID:       "hp-1",
		ConnectTimeout: time.Second,
	}, &captureSink{})

	r := m.client.OptionsReader()
	if r.ClientID() != "hp-1" {
		t.Errorf("ClientID = %q", r.ClientID())
	}
	if !r.AutoReconnect() || !r.ConnectRetry() {
		t.Errorf("auto reconnect/connect retry not enabled")
	}
	if servers := r.Servers(); len(servers) != 1 || servers[0].Host != "127.0.0.1:1883" {
		t.Errorf("Servers = %v", servers)
	}
}

func TestMQTT_OnMessageEmits(t *testing.T) {
	sink := &captureSink{}
	m := NewMQTT(Options{BrokerURL: "tcp://127.0.0.1:1883", ConnectTimeout: time.Second}, sink)

	m.onMessage(nil, fakeMessage{topic: "heatpump/target", payload: []byte(`{"mode":"COOL"}`)})

	if len(sink.events) != 1 {
		t.Fatalf("events = %v", sink.events)
	}
	e := sink.events[0]
	if e.Kind != KindMessage || e.Topic != "heatpump/target" || string(e.Payload) != `{"mode":"COOL"}` {
		t.Fatalf("event = %+v", e)
	}
}

func TestMQTT_RequiresConnection(t *testing.T) {
	m := NewMQTT(Options{BrokerURL: "tcp://127.0.0.1:1883", ConnectTimeout: time.Second}, &captureSink{})
	if err := m.Subscribe("t"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Subscribe err = %v", err)
	}
	if err := m.Publish(context.Background(), "t", nil); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Publish err = %v", err)
	}
}

func TestNATS_RequiresConnection(t *testing.T) {
	n := NewNATS(Options{BrokerURL: "nats://127.0.0.1:4222"}, &captureSink{})
	if err := n.Subscribe("t"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Subscribe err = %v", err)
	}
	if err := n.Publish(context.Background(), "t", nil); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Publish err = %v", err)
	}
	n.Close()
}

func TestNATS_OnMessageEmits(t *testing.T) {
	sink := &captureSink{}
	n := NewNATS(Options{}, sink)
	n.onMessage(&nats.Msg{Subject: "heatpump.target", Data: []byte("x")})
	if len(sink.events) != 1 || sink.events[0].Topic != "heatpump.target" || sink.events[0].Kind != KindMessage {
		t.Fatalf("events = %+v", sink.events)
	}
}

func TestNATS_ConnectCanceled(t *testing.T) {
	n := NewNATS(Options{BrokerURL: "nats://127.0.0.1:4222"}, &captureSink{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := n.Connect(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Connect err = %v", err)
	}
}
