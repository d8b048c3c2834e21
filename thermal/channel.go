package thermal

import (
	"context"
	"sync/atomic"
	"time"
)

// DefaultCapacity is the queue depth used when none is configured.
const DefaultCapacity = 10

// Channel is a bounded FIFO of events with any number of producers and a
// single consumer. A full channel drops the incoming event; queued events
// are never overwritten.
type Channel struct {
	ch      chan Event
	pushed  atomic.Uint64
	dropped atomic.Uint64
}

// ChannelStats are cumulative producer counters.
type ChannelStats struct {
	Pushed  uint64
	Dropped uint64
}

// NewChannel returns a channel holding up to capacity events.
// A non-positive capacity selects DefaultCapacity.
func NewChannel(capacity int) *Channel {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Channel{ch: make(chan Event, capacity)}
}

// TryPush enqueues ev without blocking. Safe for the interrupt path:
// it neither waits nor allocates.
func (c *Channel) TryPush(ev Event) error {
	select {
	case c.ch <- ev:
		c.pushed.Add(1)
		return nil
	default:
		c.dropped.Add(1)
		return ErrChannelFull
	}
}

// Push enqueues ev, waiting at most wait for room.
func (c *Channel) Push(ev Event, wait time.Duration) error {
	if wait <= 0 {
		return c.TryPush(ev)
	}
	select {
	case c.ch <- ev:
		c.pushed.Add(1)
		return nil
	default:
	}

	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case c.ch <- ev:
		c.pushed.Add(1)
		return nil
	case <-t.C:
		c.dropped.Add(1)
		return ErrChannelFull
	}
}

// Pop waits up to timeout for the next event. It reports false on timeout
// or when ctx is done. Only one goroutine may pop.
func (c *Channel) Pop(ctx context.Context, timeout time.Duration) (Event, bool) {
	select {
	case ev := <-c.ch:
		return ev, true
	default:
	}
	if timeout <= 0 {
		return EventUnset, false
	}

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case ev := <-c.ch:
		return ev, true
	case <-t.C:
	case <-ctx.Done():
	}
	return EventUnset, false
}

// Len is the number of queued events.
func (c *Channel) Len() int { return len(c.ch) }

// Cap is the channel capacity.
func (c *Channel) Cap() int { return cap(c.ch) }

// Stats returns the producer counters.
func (c *Channel) Stats() ChannelStats {
	return ChannelStats{
		Pushed:  c.pushed.Load(),
		Dropped: c.dropped.Load(),
	}
}
