package thermal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelFIFO(t *testing.T) {
	c := NewChannel(4)
	in := []Event{MeasureCommand, InterruptNotice, InterruptNotice, MeasureCommand}
	for _, ev := range in {
		require.NoError(t, c.TryPush(ev))
	}
	for i, want := range in {
		got, ok := c.Pop(context.Background(), time.Millisecond)
		require.True(t, ok, "pop %d", i)
		assert.Equal(t, want, got, "pop %d", i)
	}
}

func TestChannelFullDoesNotMutate(t *testing.T) {
	c := NewChannel(2)
	require.NoError(t, c.TryPush(MeasureCommand))
	require.NoError(t, c.TryPush(InterruptNotice))

	assert.ErrorIs(t, c.TryPush(MeasureCommand), ErrChannelFull)
	assert.ErrorIs(t, c.Push(MeasureCommand, 5*time.Millisecond), ErrChannelFull)
	assert.Equal(t, 2, c.Len())

	ev, ok := c.Pop(context.Background(), time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, MeasureCommand, ev)
	ev, ok = c.Pop(context.Background(), time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, InterruptNotice, ev)

	assert.Equal(t, ChannelStats{Pushed: 2, Dropped: 2}, c.Stats())
}

func TestChannelCapacityPlusOne(t *testing.T) {
	c := NewChannel(0)
	require.Equal(t, DefaultCapacity, c.Cap())

	var ok, full int
	for i := 0; i < DefaultCapacity+1; i++ {
		if err := c.TryPush(InterruptNotice); err != nil {
			assert.ErrorIs(t, err, ErrChannelFull)
			full++
			continue
		}
		ok++
	}
	assert.Equal(t, DefaultCapacity, ok)
	assert.GreaterOrEqual(t, full, 1)
}

func TestChannelPopTimeout(t *testing.T) {
	c := NewChannel(1)
	start := time.Now()
	ev, ok := c.Pop(context.Background(), 20*time.Millisecond)
	assert.False(t, ok)
	assert.Equal(t, EventUnset, ev)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestChannelPopCancelled(t *testing.T) {
	c := NewChannel(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok := c.Pop(ctx, time.Hour)
	assert.False(t, ok)
}

func TestChannelPushWaitsForRoom(t *testing.T) {
	c := NewChannel(1)
	require.NoError(t, c.TryPush(MeasureCommand))

	go func() {
		time.Sleep(10 * time.Millisecond)
		c.Pop(context.Background(), time.Second)
	}()
	assert.NoError(t, c.Push(InterruptNotice, time.Second))
}

// Racing producers of both classes lose nothing once they retry past a full channel.
func TestChannelInterleavedProducers(t *testing.T) {
	const perProducer = 200
	c := NewChannel(DefaultCapacity)

	var wg sync.WaitGroup
	for _, ev := range []Event{MeasureCommand, InterruptNotice} {
		wg.Add(1)
		go func(ev Event) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				for c.Push(ev, time.Millisecond) != nil {
				}
			}
		}(ev)
	}

	counts := map[Event]int{}
	for n := 0; n < 2*perProducer; n++ {
		ev, ok := c.Pop(context.Background(), time.Second)
		require.True(t, ok)
		counts[ev]++
	}
	wg.Wait()
	assert.Equal(t, perProducer, counts[MeasureCommand])
	assert.Equal(t, perProducer, counts[InterruptNotice])
	assert.Equal(t, 0, c.Len())
}
