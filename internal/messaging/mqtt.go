package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTT is a paho client that reconnects on its own and reports every
// (re)connect and connection loss to the sink.
type MQTT struct {
	client mqtt.Client
	opts   Options
	sink   Sink
}

func NewMQTT(o Options, sink Sink) *MQTT {
	m := &MQTT{opts: o, sink: sink}

	co := mqtt.NewClientOptions()
	co.AddBroker(o.BrokerURL)
	co.SetClientID(o.ClientID)
	if o.Username != "" {
		co.SetUsername(o.Username)
		co.SetPassword(o.Password)
	}
	co.SetCleanSession(true)
	co.SetAutoReconnect(true)
	co.SetConnectRetry(true)
	co.SetConnectTimeout(o.ConnectTimeout)
	co.SetKeepAlive(30 * time.Second)
	// message callbacks get their own goroutines so a full dispatcher queue
	// never stalls acks for our own subscribe calls
	co.SetOrderMatters(false)
	co.SetOnConnectHandler(func(mqtt.Client) {
		m.sink.Emit(Event{Kind: KindConnected})
	})
	co.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		m.sink.Emit(Event{Kind: KindDisconnected, Err: err})
	})

	m.client = mqtt.NewClient(co)
	return m
}

// Connect starts the connection. If the broker does not answer within the
// connect timeout the client keeps retrying in the background and Connect
// returns nil; the sink sees KindConnected once it succeeds.
func (m *MQTT) Connect(ctx context.Context) error {
	tok := m.client.Connect()
	err := waitToken(ctx, tok, m.opts.ConnectTimeout)
	if errors.Is(err, errTokenTimeout) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("mqtt connect %s: %w", m.opts.BrokerURL, err)
	}
	return nil
}

func (m *MQTT) Subscribe(topic string) error {
	if !m.client.IsConnected() {
		return ErrNotConnected
	}
	tok := m.client.Subscribe(topic, m.opts.QoS, m.onMessage)
	if err := waitToken(context.Background(), tok, m.opts.ConnectTimeout); err != nil {
		return fmt.Errorf("mqtt subscribe %s: %w", topic, err)
	}
	return nil
}

func (m *MQTT) Publish(ctx context.Context, topic string, payload []byte) error {
	if !m.client.IsConnected() {
		return ErrNotConnected
	}
	tok := m.client.Publish(topic, m.opts.QoS, m.opts.Retain, payload)
	if err := waitToken(ctx, tok, m.opts.ConnectTimeout); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", topic, err)
	}
	return nil
}

func (m *MQTT) Close() {
	m.client.Disconnect(250)
}

func (m *MQTT) onMessage(_ mqtt.Client, msg mqtt.Message) {
	m.sink.Emit(Event{Kind: KindMessage, Topic: msg.Topic(), Payload: msg.Payload()})
}

var errTokenTimeout = errors.New("timed out")

// waitToken blocks until tok completes, ctx ends or timeout elapses.
func waitToken(ctx context.Context, tok mqtt.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return errTokenTimeout
	}
}
