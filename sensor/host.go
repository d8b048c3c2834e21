package sensor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/sensors"
)

const hostReadTimeout = 5 * time.Second

// Host reads a temperature from the host's own sensors (hwmon, ACPI, SMC)
// through gopsutil. The address is ignored; the sensor is chosen by Key,
// matched as a case-insensitive prefix of the gopsutil sensor key.
type Host struct {
	Key string

	list func(ctx context.Context) ([]sensors.TemperatureStat, error)
}

// NewHost returns a Host reader for the sensor whose key starts with key.
func NewHost(key string) *Host {
	return &Host{Key: key, list: sensors.TemperaturesWithContext}
}

func (h *Host) ReadTemperature(Address) (Celsius, error) {
	ctx, cancel := context.WithTimeout(context.Background(), hostReadTimeout)
	defer cancel()

	stats, err := h.list(ctx)
	if err != nil && len(stats) == 0 {
		return 0, fmt.Errorf("sensor: host sensors: %w", err)
	}
	key := strings.ToLower(h.Key)
	for _, s := range stats {
		if strings.HasPrefix(strings.ToLower(s.SensorKey), key) {
			return Celsius(s.Temperature), nil
		}
	}
	return 0, fmt.Errorf("%w: no host sensor matching %q", ErrNoReading, h.Key)
}
