package sensor

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultI2CDevices is where the kernel lists bound i2c clients.
const DefaultI2CDevices = "/sys/bus/i2c/devices"

// Hwmon reads sensors that are bound to the kernel lm75 driver, through the
// hwmon sysfs interface, instead of talking to the bus directly.
type Hwmon struct {
	Root string // defaults to DefaultI2CDevices
	Bus  int
}

// ReadTemperature reads temp1_input (millidegrees) of the client at addr.
func (h Hwmon) ReadTemperature(addr Address) (Celsius, error) {
	root := h.Root
	if root == "" {
		root = DefaultI2CDevices
	}
	pattern := filepath.Join(root, fmt.Sprintf("%d-%04x", h.Bus, uint8(addr)), "hwmon", "hwmon*", "temp1_input")
	matches, _ := filepath.Glob(pattern)
	if len(matches) == 0 {
		return 0, fmt.Errorf("%w: no hwmon device for %d-%04x", ErrNoReading, h.Bus, uint8(addr))
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		return 0, fmt.Errorf("sensor: read %s: %w", matches[0], err)
	}
	milli, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 0, fmt.Errorf("sensor: parse %s: %w", matches[0], err)
	}
	return Celsius(milli / 1000.0), nil
}
