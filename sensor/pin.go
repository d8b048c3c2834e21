package sensor

import (
	"context"
	"time"

	rpio "github.com/stianeikeland/go-rpio/v4"
)

// EdgePin is the subset of rpio.Pin used to watch the OS output.
type EdgePin interface {
	Input()
	PullUp()
	Read() rpio.State
	Detect(edge rpio.Edge)
	EdgeDetected() bool
}

// EdgeFor returns the edge on which an OS output with polarity p asserts.
func EdgeFor(p Polarity) rpio.Edge {
	if p == ActiveHigh {
		return rpio.RiseEdge
	}
	return rpio.FallEdge
}

// WatchEdge returns the edges to latch for an OS output programmed with s.
// In interrupt mode OS pulses on each threshold crossing, so the asserting
// edge is enough. In comparator mode OS asserts at Tos and releases at
// Thyst, so both edges are needed to see the return to safe conditions.
func WatchEdge(s Settings) rpio.Edge {
	if s.Mode == Comparator {
		return rpio.AnyEdge
	}
	return EdgeFor(s.Polarity)
}

// WatchPin polls pin for the edges WatchEdge(s) selects and calls fn for
// every detected edge until ctx is done. If the pin is already at its
// asserted level when watching starts, fn is called once so a trip that
// happened before startup is not missed. fn runs on the watcher goroutine
// and must not block.
func WatchPin(ctx context.Context, pin EdgePin, s Settings, poll time.Duration, fn func()) {
	pin.Input()
	if s.Polarity == ActiveLow {
		pin.PullUp()
	}
	pin.Detect(WatchEdge(s))
	defer pin.Detect(rpio.NoEdge)

	asserted := rpio.Low
	if s.Polarity == ActiveHigh {
		asserted = rpio.High
	}
	if pin.Read() == asserted {
		fn()
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pin.EdgeDetected() {
				fn()
			}
		}
	}
}
