package main

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/lologarithm/thermgr/sensor"
)

func TestOpenSensorFallsBackToFake(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sensor.Bus = 99
	cfg.Sensor.FakeValues = []float32{33}
	r, closeFn := openSensor(cfg, sensor.Settings{FaultQueue: 1}, zerolog.Nop())
	defer closeFn()

	require.IsType(t, &sensor.Fake{}, r)
	temp, err := r.ReadTemperature(0x48)
	require.NoError(t, err)
	assert.Equal(t, sensor.Celsius(33), temp)
}

func TestOpenSensorDrivers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sensor.Driver = "hwmon"
	r, _ := openSensor(cfg, sensor.Settings{FaultQueue: 1}, zerolog.Nop())
	assert.IsType(t, sensor.Hwmon{}, r)

	cfg.Sensor.Driver = "host"
	cfg.Sensor.HostKey = "coretemp"
	r, _ = openSensor(cfg, sensor.Settings{FaultQueue: 1}, zerolog.Nop())
	assert.IsType(t, &sensor.Host{}, r)
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Name = "test"
	cfg.Listen = "127.0.0.1:0"
	cfg.Sensor.Driver = "fake"
	cfg.Telemetry.Console = false
	cfg.Telemetry.Multicast = ""
	cfg.Queue.MeasureInterval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- run(ctx, cfg, zerolog.Nop()) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}
