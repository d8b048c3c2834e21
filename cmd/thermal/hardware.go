package main

import (
	"github.com/rs/zerolog"

	"gitlab.com/lologarithm/thermgr/sensor"
)

// openSensor builds the configured reader. When the bus cannot be opened the
// daemon keeps running on simulated readings.
func openSensor(cfg Config, settings sensor.Settings, log zerolog.Logger) (sensor.Reader, func() error) {
	nop := func() error { return nil }
	switch cfg.Sensor.Driver {
	case "hwmon":
		return sensor.Hwmon{Root: sensor.DefaultI2CDevices, Bus: cfg.Sensor.Bus}, nop
	case "host":
		return sensor.NewHost(cfg.Sensor.HostKey), nop
	case "fake":
		return fakeSensor(cfg), nop
	}

	dev, err := sensor.OpenI2C(cfg.Sensor.Bus)
	if err != nil {
		log.Warn().Err(err).Int("bus", cfg.Sensor.Bus).Msg("failed to open i2c bus, defaulting to fake data")
		return fakeSensor(cfg), nop
	}
	if cfg.Sensor.ProgramThresholds {
		programThresholds(dev, cfg, settings, log)
	}
	return dev, dev.Close
}

func programThresholds(dev *sensor.I2C, cfg Config, settings sensor.Settings, log zerolog.Logger) {
	tc := cfg.Thermal()
	if err := dev.Configure(tc.Addr, settings, tc.OverTemp, tc.Hysteresis); err != nil {
		log.Error().Err(err).Stringer("addr", tc.Addr).Msg("failed to program thresholds")
		return
	}
	over, hyst, err := dev.Limits(tc.Addr)
	if err != nil {
		log.Error().Err(err).Stringer("addr", tc.Addr).Msg("failed to read back thresholds")
		return
	}
	log.Info().Stringer("addr", tc.Addr).Stringer("tos", over).Stringer("thyst", hyst).Msg("programmed thresholds")
}

func fakeSensor(cfg Config) *sensor.Fake {
	values := make([]sensor.Celsius, 0, len(cfg.Sensor.FakeValues))
	for _, v := range cfg.Sensor.FakeValues {
		values = append(values, sensor.Celsius(v))
	}
	return sensor.NewFake(values...)
}
