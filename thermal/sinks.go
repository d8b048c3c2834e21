package thermal

import (
	"github.com/rs/zerolog"

	"gitlab.com/lologarithm/thermgr/sensor"
)

// Telemetry receives every successful sample.
type Telemetry interface {
	RecordTemperature(t sensor.Celsius)
}

// Alerter receives the thermal transitions found on interrupt notices.
type Alerter interface {
	OverTemperature()
	SafeConditions()
}

// ConditionLogger receives non-fatal conditions. err carries the detail and
// wraps kind.Err().
type ConditionLogger interface {
	LogCondition(kind ConditionKind, err error)
}

// TelemetryFunc adapts a function to Telemetry.
type TelemetryFunc func(t sensor.Celsius)

func (f TelemetryFunc) RecordTemperature(t sensor.Celsius) { f(t) }

// MultiTelemetry fans a sample out to every sink in order.
type MultiTelemetry []Telemetry

func (m MultiTelemetry) RecordTemperature(t sensor.Celsius) {
	for _, s := range m {
		s.RecordTemperature(t)
	}
}

// MultiAlerter fans alerts out to every sink in order.
type MultiAlerter []Alerter

func (m MultiAlerter) OverTemperature() {
	for _, a := range m {
		a.OverTemperature()
	}
}

func (m MultiAlerter) SafeConditions() {
	for _, a := range m {
		a.SafeConditions()
	}
}

// MultiConditions fans conditions out to every logger in order.
type MultiConditions []ConditionLogger

func (m MultiConditions) LogCondition(kind ConditionKind, err error) {
	for _, l := range m {
		l.LogCondition(kind, err)
	}
}

// LogConditions writes conditions to a zerolog logger. Sensor failures and
// invalid arguments are errors, the rest warnings.
func LogConditions(log zerolog.Logger) ConditionLogger {
	return logConditions{log: log}
}

type logConditions struct {
	log zerolog.Logger
}

func (l logConditions) LogCondition(kind ConditionKind, err error) {
	ev := l.log.Warn()
	if kind == ConditionSensorFailure || kind == ConditionInvalidArgument {
		ev = l.log.Error()
	}
	ev.Err(err).Str("condition", kind.String()).Msg("thermal condition")
}

type nop struct{}

func (nop) RecordTemperature(sensor.Celsius) {}
func (nop) OverTemperature() {}
func (nop) SafeConditions() {}
func (nop) LogCondition(ConditionKind, error) {}
