package sensor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// regBus emulates LM75 devices as register files keyed by address.
type regBus struct {
	regs    map[Address]map[byte][]byte
	addr    Address
	pointer byte
	writes  [][]byte
	readErr error
	closed  bool
}

func newRegBus() *regBus {
	return &regBus{regs: map[Address]map[byte][]byte{}}
}

func (b *regBus) setAddr(addr Address) error {
	if _, ok := b.regs[addr]; !ok {
		return errors.New("no device")
	}
	b.addr = addr
	return nil
}

func (b *regBus) write(p []byte) error {
	b.writes = append(b.writes, append([]byte(nil), p...))
	b.pointer = p[0]
	if len(p) > 1 {
		b.regs[b.addr][p[0]] = append([]byte(nil), p[1:]...)
	}
	return nil
}

func (b *regBus) read(p []byte) error {
	if b.readErr != nil {
		return b.readErr
	}
	copy(p, b.regs[b.addr][b.pointer])
	return nil
}

func (b *regBus) close() error {
	b.closed = true
	return nil
}

func TestI2CReadTemperature(t *testing.T) {
	dev := newRegBus()
	dev.regs[0x48] = map[byte][]byte{RegTemp: {0x19, 0x20}}
	dev.regs[0x4f] = map[byte][]byte{RegTemp: {0xe7, 0x00}}
	bus := &I2C{dev: dev}

	got, err := bus.ReadTemperature(0x48)
	require.NoError(t, err)
	assert.Equal(t, Celsius(25.125), got)

	got, err = bus.ReadTemperature(0x4f)
	require.NoError(t, err)
	assert.Equal(t, Celsius(-25), got)

	_, err = bus.ReadTemperature(0x40)
	assert.ErrorContains(t, err, "select 0x40")
}

func TestI2CReadError(t *testing.T) {
	dev := newRegBus()
	dev.regs[0x48] = map[byte][]byte{}
	dev.readErr = errors.New("remote i/o error")
	bus := &I2C{dev: dev}

	_, err := bus.ReadTemperature(0x48)
	assert.ErrorIs(t, err, dev.readErr)
}

func TestI2CConfigure(t *testing.T) {
	dev := newRegBus()
	dev.regs[0x48] = map[byte][]byte{}
	bus := &I2C{dev: dev}

	err := bus.Configure(0x48, Settings{Mode: Interrupt, FaultQueue: 2}, 80, 75)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{
		{RegConf, 0x0a},
		{RegThyst, 0x4b, 0x00},
		{RegTos, 0x50, 0x00},
	}, dev.writes)

	over, hyst, err := bus.Limits(0x48)
	require.NoError(t, err)
	assert.Equal(t, Celsius(80), over)
	assert.Equal(t, Celsius(75), hyst)

	assert.Error(t, bus.Configure(0x48, Settings{}, 75, 75))
	assert.Error(t, bus.Configure(0x48, Settings{FaultQueue: 5}, 80, 75))

	require.NoError(t, bus.Close())
	assert.True(t, dev.closed)
}
