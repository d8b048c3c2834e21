package rnet

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"gitlab.com/lologarithm/thermgr/sensor"
)

// ListenerTimeout is how long a unicast listener keeps receiving without pinging again.
const ListenerTimeout = 10 * time.Minute

// Listener is a unicast receiver that pinged the broadcaster.
type Listener struct {
	Addr     *net.UDPAddr
	LastPing time.Time
}

// Broadcaster publishes readings and alerts. It implements the supervisor's
// telemetry and alert sinks.
type Broadcaster struct {
	name  string
	conn  *net.UDPConn
	group *net.UDPAddr
	log   zerolog.Logger
	now   func() time.Time

	mu        sync.Mutex
	listeners []Listener
}

// NewBroadcaster opens a UDP socket on local ("" for any address, any port)
// and publishes to group. An empty group disables multicast and only pinged
// listeners receive datagrams.
func NewBroadcaster(name, local, group string, log zerolog.Logger) (*Broadcaster, error) {
	laddr, err := net.ResolveUDPAddr("udp4", local)
	if err != nil {
		return nil, fmt.Errorf("rnet: resolve %q: %w", local, err)
	}
	conn, err := net.ListenUDP("udp4", laddr)
	if err != nil {
		return nil, fmt.Errorf("rnet: listen: %w", err)
	}
	b := &Broadcaster{name: name, conn: conn, log: log, now: time.Now}
	if group != "" {
		b.group, err = net.ResolveUDPAddr("udp4", group)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("rnet: resolve group %q: %w", group, err)
		}
	}
	return b, nil
}

// LocalAddr is the address listeners ping.
func (b *Broadcaster) LocalAddr() *net.UDPAddr {
	return b.conn.LocalAddr().(*net.UDPAddr)
}

func (b *Broadcaster) RecordTemperature(t sensor.Celsius) {
	b.send(Msg{Kind: KindReading, Temp: float32(t)})
}

func (b *Broadcaster) OverTemperature() { b.send(Msg{Kind: KindOver}) }

func (b *Broadcaster) SafeConditions() { b.send(Msg{Kind: KindSafe}) }

// Listeners returns the live unicast listeners.
func (b *Broadcaster) Listeners() []Listener {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Listener(nil), b.listeners...)
}

func (b *Broadcaster) send(m Msg) {
	now := b.now()
	m.Name = b.name
	m.Time = now.UnixMilli()
	data, err := Encode(m)
	if err != nil {
		b.log.Error().Err(err).Msg("failed to encode datagram")
		return
	}
	if b.group != nil {
		if _, err := b.conn.WriteToUDP(data, b.group); err != nil {
			b.log.Debug().Err(err).Stringer("group", b.group).Msg("multicast write failed")
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = b.broadcastAndTimeout(data, b.listeners, now)
}

// broadcastAndTimeout writes data to every listener and drops the ones
// that have not pinged within ListenerTimeout.
func (b *Broadcaster) broadcastAndTimeout(data []byte, listeners []Listener, now time.Time) []Listener {
	live := listeners[:0]
	for _, l := range listeners {
		if now.Sub(l.LastPing) > ListenerTimeout {
			continue
		}
		if _, err := b.conn.WriteToUDP(data, l.Addr); err != nil {
			b.log.Debug().Err(err).Stringer("listener", l.Addr).Msg("unicast write failed")
		}
		live = append(live, l)
	}
	return live
}

func (b *Broadcaster) updateListeners(addr *net.UDPAddr) {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	for i := range b.listeners {
		if b.listeners[i].Addr.String() == addr.String() {
			b.listeners[i].LastPing = now
			return
		}
	}
	b.listeners = append(b.listeners, Listener{Addr: addr, LastPing: now})
}

// Serve reads pings from listeners until ctx is done.
func (b *Broadcaster) Serve(ctx context.Context) error {
	return Listen(ctx, b.conn, func(m Msg, raddr *net.UDPAddr) {
		if m.Kind == KindPing {
			b.updateListeners(raddr)
		}
	})
}

// Close closes the socket.
func (b *Broadcaster) Close() error {
	return b.conn.Close()
}

// Ping asks the broadcaster at addr to send datagrams to conn directly.
func Ping(conn *net.UDPConn, addr *net.UDPAddr) error {
	data, err := Encode(Msg{Kind: KindPing, Time: time.Now().UnixMilli()})
	if err != nil {
		return err
	}
	_, err = conn.WriteToUDP(data, addr)
	return err
}

// Listen decodes datagrams from conn and hands them to fn until ctx is done.
func Listen(ctx context.Context, conn *net.UDPConn, fn func(Msg, *net.UDPAddr)) error {
	buf := make([]byte, 256)
	for ctx.Err() == nil {
		conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, raddr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("rnet: read: %w", err)
		}
		m, err := Decode(buf[:n])
		if err != nil {
			continue
		}
		fn(m, raddr)
	}
	return nil
}
