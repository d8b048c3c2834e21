// Package alert delivers over-temperature and safe-again notifications:
// to the log, to a GPIO output driving a fan or alarm relay, and by e-mail.
package alert

import (
	"github.com/rs/zerolog"

	"gitlab.com/lologarithm/thermgr/sensor"
)

// Console writes telemetry and alerts to a logger.
type Console struct {
	Log zerolog.Logger
}

func (c Console) RecordTemperature(t sensor.Celsius) {
	c.Log.Info().Float32("celsius", float32(t)).Msg("temperature telemetry")
}

func (c Console) OverTemperature() {
	c.Log.Warn().Msg("over temperature detected")
}

func (c Console) SafeConditions() {
	c.Log.Info().Msg("returned to safe operating conditions")
}
