package sensor

import (
	"fmt"
	"sync"
)

// bus is the raw transfer layer under I2C. The linux implementation talks
// to /dev/i2c-N; tests swap in a register map.
type bus interface {
	setAddr(addr Address) error
	write(p []byte) error
	read(p []byte) error
	close() error
}

// I2C reads LM75 sensors over an I2C bus. Transfers are serialized so a
// pointer write and the following read are never split by another caller.
type I2C struct {
	mu  sync.Mutex
	dev bus
}

// ReadTemperature samples the temperature register of the sensor at addr.
func (i *I2C) ReadTemperature(addr Address) (Celsius, error) {
	var b [2]byte
	if err := i.readReg(addr, RegTemp, b[:]); err != nil {
		return 0, err
	}
	return DecodeTemp(b), nil
}

// Configure programs the configuration register and the Tos/Thyst
// thresholds so the OS output trips at overTemp and releases at hyst.
func (i *I2C) Configure(addr Address, s Settings, overTemp, hyst Celsius) error {
	if hyst >= overTemp {
		return fmt.Errorf("sensor: hysteresis %s must be below over-temperature %s", hyst, overTemp)
	}
	conf, err := s.ConfigByte()
	if err != nil {
		return err
	}
	tos := EncodeLimit(overTemp)
	thyst := EncodeLimit(hyst)

	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.dev.setAddr(addr); err != nil {
		return fmt.Errorf("sensor: select %s: %w", addr, err)
	}
	writes := [][]byte{
		{RegConf, conf},
		{RegThyst, thyst[0], thyst[1]},
		{RegTos, tos[0], tos[1]},
	}
	for _, w := range writes {
		if err := i.dev.write(w); err != nil {
			return fmt.Errorf("sensor: write register 0x%02x at %s: %w", w[0], addr, err)
		}
	}
	return nil
}

// Limits reads back the programmed over-temperature and hysteresis thresholds.
func (i *I2C) Limits(addr Address) (overTemp, hyst Celsius, err error) {
	var b [2]byte
	if err = i.readReg(addr, RegTos, b[:]); err != nil {
		return 0, 0, err
	}
	overTemp = DecodeLimit(b)
	if err = i.readReg(addr, RegThyst, b[:]); err != nil {
		return 0, 0, err
	}
	return overTemp, DecodeLimit(b), nil
}

// Close releases the bus device.
func (i *I2C) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.dev.close()
}

func (i *I2C) readReg(addr Address, reg byte, p []byte) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.dev.setAddr(addr); err != nil {
		return fmt.Errorf("sensor: select %s: %w", addr, err)
	}
	if err := i.dev.write([]byte{reg}); err != nil {
		return fmt.Errorf("sensor: set pointer 0x%02x at %s: %w", reg, addr, err)
	}
	if err := i.dev.read(p); err != nil {
		return fmt.Errorf("sensor: read register 0x%02x at %s: %w", reg, addr, err)
	}
	return nil
}
