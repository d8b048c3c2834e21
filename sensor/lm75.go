package sensor

import (
	"fmt"
	"math"
)

// LM75 register pointers.
const (
	RegTemp  byte = 0x00
	RegConf  byte = 0x01
	RegThyst byte = 0x02
	RegTos   byte = 0x03
)

// Limits of the LM75 measurement and threshold range.
const (
	MinCelsius Celsius = -55
	MaxCelsius Celsius = 125
)

// OSMode selects how the OS output behaves.
type OSMode byte

const (
	// Comparator holds OS asserted while the temperature exceeds Tos
	// and releases it once it drops below Thyst.
	Comparator OSMode = iota
	// Interrupt pulses OS on each threshold crossing; reading any register clears it.
	Interrupt
)

// Polarity is the active level of the OS output.
type Polarity byte

const (
	ActiveLow Polarity = iota
	ActiveHigh
)

// Settings is the LM75 configuration register content.
type Settings struct {
	Mode       OSMode
	Polarity   Polarity
	FaultQueue int // consecutive faults before OS trips: 1, 2, 4 or 6
	Shutdown   bool
}

// ConfigByte encodes the settings into the configuration register layout.
func (s Settings) ConfigByte() (byte, error) {
	var b byte
	if s.Shutdown {
		b |= 0x01
	}
	if s.Mode == Interrupt {
		b |= 0x02
	}
	if s.Polarity == ActiveHigh {
		b |= 0x04
	}
	switch s.FaultQueue {
	case 0, 1:
	case 2:
		b |= 0x01 << 3
	case 4:
		b |= 0x02 << 3
	case 6:
		b |= 0x03 << 3
	default:
		return 0, fmt.Errorf("sensor: invalid fault queue size %d", s.FaultQueue)
	}
	return b, nil
}

// DecodeTemp converts the two temperature register bytes (MSB first)
// into Celsius. The reading is an 11-bit two's complement value with
// 0.125°C resolution, left aligned.
func DecodeTemp(b [2]byte) Celsius {
	raw := int16(uint16(b[0])<<8|uint16(b[1])) >> 5
	return Celsius(float32(raw) * 0.125)
}

// EncodeLimit converts a threshold into the Tos/Thyst register layout:
// 9-bit two's complement, 0.5°C resolution, left aligned.
// Values outside the sensor range are clamped.
func EncodeLimit(c Celsius) [2]byte {
	if c < MinCelsius {
		c = MinCelsius
	}
	if c > MaxCelsius {
		c = MaxCelsius
	}
	raw := uint16(int16(math.Round(float64(c)*2)) << 7)
	return [2]byte{byte(raw >> 8), byte(raw)}
}

// DecodeLimit is the inverse of EncodeLimit.
func DecodeLimit(b [2]byte) Celsius {
	raw := int16(uint16(b[0])<<8|uint16(b[1])) >> 7
	return Celsius(float32(raw) * 0.5)
}
