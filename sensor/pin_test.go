package sensor

import (
	"context"
	"sync"
	"testing"
	"time"

	rpio "github.com/stianeikeland/go-rpio/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePin latches an edge only when the level change matches the armed
// detection, like the BCM2835 event detect registers.
type fakePin struct {
	mu       sync.Mutex
	level    rpio.State
	armed    rpio.Edge
	latched  bool
	detect   []rpio.Edge
	pulledUp bool
}

func (p *fakePin) Input() {}

func (p *fakePin) PullUp() {
	p.mu.Lock()
	p.pulledUp = true
	p.mu.Unlock()
}

func (p *fakePin) Read() rpio.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

func (p *fakePin) Detect(edge rpio.Edge) {
	p.mu.Lock()
	p.armed = edge
	p.detect = append(p.detect, edge)
	p.mu.Unlock()
}

func (p *fakePin) EdgeDetected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	l := p.latched
	p.latched = false
	return l
}

func (p *fakePin) set(level rpio.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if level == p.level {
		return
	}
	rising := level == rpio.High
	switch p.armed {
	case rpio.AnyEdge:
		p.latched = true
	case rpio.RiseEdge:
		p.latched = p.latched || rising
	case rpio.FallEdge:
		p.latched = p.latched || !rising
	}
	p.level = level
}

func (p *fakePin) isLatched() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latched
}

type counter struct {
	mu sync.Mutex
	n  int
}

func (c *counter) inc() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *counter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func watch(t *testing.T, pin *fakePin, s Settings, fn func()) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		WatchPin(ctx, pin, s, time.Millisecond, fn)
		close(done)
	}()
	require.Eventually(t, func() bool {
		pin.mu.Lock()
		defer pin.mu.Unlock()
		return len(pin.detect) == 1
	}, time.Second, time.Millisecond)
	return func() {
		cancel()
		<-done
	}
}

// step drives one level change and waits for the watcher to consume it.
func step(t *testing.T, pin *fakePin, level rpio.State) {
	t.Helper()
	pin.set(level)
	require.Eventually(t, func() bool { return !pin.isLatched() }, time.Second, time.Millisecond)
}

func TestWatchEdge(t *testing.T) {
	tests := []struct {
		s    Settings
		want rpio.Edge
	}{
		{Settings{Mode: Interrupt, Polarity: ActiveLow}, rpio.FallEdge},
		{Settings{Mode: Interrupt, Polarity: ActiveHigh}, rpio.RiseEdge},
		{Settings{Mode: Comparator, Polarity: ActiveLow}, rpio.AnyEdge},
		{Settings{Mode: Comparator, Polarity: ActiveHigh}, rpio.AnyEdge},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, WatchEdge(tt.s), "%+v", tt.s)
	}
}

func TestWatchPinInterruptMode(t *testing.T) {
	pin := &fakePin{level: rpio.High}
	var c counter
	stop := watch(t, pin, Settings{Mode: Interrupt, Polarity: ActiveLow}, c.inc)

	// Tos crossing: pulse low, cleared by the read.
	step(t, pin, rpio.Low)
	step(t, pin, rpio.High)
	// Thyst crossing: another pulse.
	step(t, pin, rpio.Low)
	step(t, pin, rpio.High)
	require.Eventually(t, func() bool { return c.count() == 2 }, time.Second, time.Millisecond)

	stop()
	assert.True(t, pin.pulledUp)
	assert.Equal(t, []rpio.Edge{rpio.FallEdge, rpio.NoEdge}, pin.detect)
	assert.Equal(t, 2, c.count())
}

func TestWatchPinComparatorTripAndRelease(t *testing.T) {
	pin := &fakePin{level: rpio.High}
	var c counter
	stop := watch(t, pin, Settings{Mode: Comparator, Polarity: ActiveLow}, c.inc)

	step(t, pin, rpio.Low) // asserted at Tos
	require.Eventually(t, func() bool { return c.count() == 1 }, time.Second, time.Millisecond)
	step(t, pin, rpio.High) // released at Thyst
	require.Eventually(t, func() bool { return c.count() == 2 }, time.Second, time.Millisecond)

	stop()
	assert.Equal(t, []rpio.Edge{rpio.AnyEdge, rpio.NoEdge}, pin.detect)
}

func TestWatchPinAlreadyAsserted(t *testing.T) {
	pin := &fakePin{level: rpio.High}
	called := make(chan struct{}, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	WatchPin(ctx, pin, Settings{Mode: Interrupt, Polarity: ActiveHigh}, time.Millisecond, func() {
		select {
		case called <- struct{}{}:
		default:
		}
	})

	select {
	case <-called:
	default:
		t.Fatal("asserted pin at startup was not reported")
	}
	assert.False(t, pin.pulledUp)
}
