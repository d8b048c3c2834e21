package rnet

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcasterUnicastListener(t *testing.T) {
	b, err := NewBroadcaster("attic", "127.0.0.1:0", "", zerolog.Nop())
	require.NoError(t, err)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Serve(ctx)

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer conn.Close()

	var mu sync.Mutex
	var got []Msg
	go Listen(ctx, conn, func(m Msg, _ *net.UDPAddr) {
		mu.Lock()
		got = append(got, m)
		mu.Unlock()
	})

	require.NoError(t, Ping(conn, b.LocalAddr()))
	require.Eventually(t, func() bool { return len(b.Listeners()) == 1 }, time.Second, 5*time.Millisecond)

	b.RecordTemperature(42.5)
	b.OverTemperature()
	b.SafeConditions()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, KindReading, got[0].Kind)
	assert.Equal(t, float32(42.5), got[0].Temp)
	assert.Equal(t, "attic", got[0].Name)
	assert.Equal(t, KindOver, got[1].Kind)
	assert.Equal(t, KindSafe, got[2].Kind)
}

func TestBroadcasterDropsIdleListeners(t *testing.T) {
	b, err := NewBroadcaster("attic", "127.0.0.1:0", "", zerolog.Nop())
	require.NoError(t, err)
	defer b.Close()

	now := time.Now()
	b.now = func() time.Time { return now }
	b.updateListeners(&net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9})
	b.updateListeners(&net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9})
	require.Len(t, b.Listeners(), 1)

	now = now.Add(ListenerTimeout + time.Second)
	b.RecordTemperature(20)
	assert.Empty(t, b.Listeners())
}

func TestNewBroadcasterBadGroup(t *testing.T) {
	_, err := NewBroadcaster("attic", "127.0.0.1:0", "not-an-address", zerolog.Nop())
	assert.Error(t, err)
}
