// Package metrics exports supervisor readings, alerts, conditions and queue
// state to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"gitlab.com/lologarithm/thermgr/sensor"
	"gitlab.com/lologarithm/thermgr/thermal"
)

const namespace = "thermgr"

// Sink is a telemetry, alert and condition sink backed by Prometheus collectors.
type Sink struct {
	temperature prometheus.Gauge
	samples     prometheus.Counter
	overTemp    prometheus.Gauge
	alerts      *prometheus.CounterVec
	conditions  *prometheus.CounterVec
}

// NewSink registers the sink's collectors on reg.
func NewSink(reg prometheus.Registerer) *Sink {
	s := &Sink{
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "temperature_celsius",
			Help:      "Last sampled temperature in degrees Celsius.",
		}),
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_total",
			Help:      "Successful sensor samples.",
		}),
		overTemp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "over_temperature",
			Help:      "1 after an over-temperature alert until the next safe-conditions alert.",
		}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Alerts raised, by kind.",
		}, []string{"kind"}),
		conditions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conditions_total",
			Help:      "Non-fatal supervisor conditions, by kind. One channel_full report can cover many drops; see queue_dropped_total.",
		}, []string{"kind"}),
	}
	reg.MustRegister(s.temperature, s.samples, s.overTemp, s.alerts, s.conditions)
	return s
}

func (s *Sink) RecordTemperature(t sensor.Celsius) {
	s.temperature.Set(float64(t))
	s.samples.Inc()
}

func (s *Sink) OverTemperature() {
	s.overTemp.Set(1)
	s.alerts.WithLabelValues("over").Inc()
}

func (s *Sink) SafeConditions() {
	s.overTemp.Set(0)
	s.alerts.WithLabelValues("safe").Inc()
}

func (s *Sink) LogCondition(kind thermal.ConditionKind, _ error) {
	s.conditions.WithLabelValues(kind.String()).Inc()
}

// RegisterQueue exports the depth, capacity and producer counters of c.
func RegisterQueue(reg prometheus.Registerer, c *thermal.Channel) {
	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Events waiting for the supervisor.",
		}, func() float64 { return float64(c.Len()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_capacity",
			Help:      "Capacity of the event queue.",
		}, func() float64 { return float64(c.Cap()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_pushed_total",
			Help:      "Events accepted by the queue.",
		}, func() float64 { return float64(c.Stats().Pushed) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_dropped_total",
			Help:      "Events dropped because the queue was full.",
		}, func() float64 { return float64(c.Stats().Dropped) }),
	)
}
