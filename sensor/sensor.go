// Package sensor reads temperatures from LM75-family thermal sensors and
// watches the sensor's over-temperature (OS) output pin.
package sensor

import (
	"errors"
	"fmt"
)

// Celsius is a temperature in degrees Celsius.
type Celsius float32

func (c Celsius) String() string {
	return fmt.Sprintf("%.3f°C", float32(c))
}

// Address is the 7-bit bus address of a sensor.
type Address uint8

func (a Address) String() string {
	return fmt.Sprintf("0x%02x", uint8(a))
}

// Reader is anything that can sample a temperature at an address.
type Reader interface {
	ReadTemperature(addr Address) (Celsius, error)
}

// ErrNoReading is returned when a source has no value for the requested sensor.
var ErrNoReading = errors.New("sensor: no reading")

// ReaderFunc adapts a plain function to Reader.
type ReaderFunc func(addr Address) (Celsius, error)

func (f ReaderFunc) ReadTemperature(addr Address) (Celsius, error) {
	return f(addr)
}
