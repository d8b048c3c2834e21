package alert

import (
	"sync"

	rpio "github.com/stianeikeland/go-rpio/v4"
)

// OutputPin is the subset of rpio.Pin needed to drive a relay.
type OutputPin interface {
	High()
	Low()
}

// Pin switches an output on while the sensor is over temperature and off
// once it is safe again. Relay boards are commonly active low.
type Pin struct {
	mu        sync.Mutex
	pin       OutputPin
	activeLow bool
	on        bool
}

// NewPin wraps p and drives it to the off level.
func NewPin(p OutputPin, activeLow bool) *Pin {
	ap := &Pin{pin: p, activeLow: activeLow}
	ap.set(false)
	return ap
}

// OpenPin configures BCM pin n as an output. rpio.Open must have succeeded.
func OpenPin(n int, activeLow bool) *Pin {
	p := rpio.Pin(n)
	p.Output()
	return NewPin(p, activeLow)
}

func (p *Pin) OverTemperature() { p.set(true) }

func (p *Pin) SafeConditions() { p.set(false) }

// On reports whether the output is currently on.
func (p *Pin) On() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.on
}

func (p *Pin) set(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.on = on
	if on != p.activeLow {
		p.pin.High()
	} else {
		p.pin.Low()
	}
}
