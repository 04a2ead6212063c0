package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"controlling_heatpump/internal/models"
)

const namespace = "heatpump"

// Result labels.
const (
	ResultOK       = "ok"
	ResultInvalid  = "invalid"
	ResultFailed   = "failed"
	ResultIgnored  = "ignored"
	ResultRejected = "rejected"
)

// Metrics holds the daemon's collectors on a private registry.
// A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	transmissions   *prometheus.CounterVec
	transmitTiming  prometheus.Summary
	busMessages     *prometheus.CounterVec
	busPublishes    *prometheus.CounterVec
	ambientTemp     prometheus.Gauge
	ambientHumidity prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transmissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ir_transmissions_total",
				Help:      "IR transmissions by result",
			},
			[]string{"result"},
		),
		transmitTiming: prometheus.NewSummary(prometheus.SummaryOpts{
			Namespace:  namespace,
			Name:       "ir_transmit_duration_seconds",
			Help:       "Time the IR line was held per transmission",
			Objectives: map[float64]float64{0.5: 0.05, 0.99: 0.001},
		}),
		busMessages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bus_messages_total",
				Help:      "Inbound target-state messages by result",
			},
			[]string{"result"},
		),
		busPublishes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bus_publishes_total",
				Help:      "Outbound current-state publishes by result",
			},
			[]string{"result"},
		),
		ambientTemp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ambient_temperature_celsius",
			Help:      "Last sampled ambient temperature",
		}),
		ambientHumidity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ambient_humidity_percent",
			Help:      "Last sampled relative humidity",
		}),
	}

	m.registry.MustRegister(
		m.transmissions,
		m.transmitTiming,
		m.busMessages,
		m.busPublishes,
		m.ambientTemp,
		m.ambientHumidity,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Transmission records one Transmit call.
func (m *Metrics) Transmission(result string, held time.Duration) {
	if m == nil {
		return
	}
	m.transmissions.WithLabelValues(result).Inc()
	if result == ResultOK {
		m.transmitTiming.Observe(held.Seconds())
	}
}

// BusMessage records the outcome of one inbound target message.
func (m *Metrics) BusMessage(result string) {
	if m == nil {
		return
	}
	m.busMessages.WithLabelValues(result).Inc()
}

// Publish records the outcome of one current-state publish.
func (m *Metrics) Publish(result string) {
	if m == nil {
		return
	}
	m.busPublishes.WithLabelValues(result).Inc()
}

// Ambient records the latest sensor reading.
func (m *Metrics) Ambient(r models.Reading) {
	if m == nil {
		return
	}
	m.ambientTemp.Set(r.Temperature)
	m.ambientHumidity.Set(r.Humidity)
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
