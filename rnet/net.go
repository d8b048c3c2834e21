// Package rnet broadcasts supervisor telemetry and alerts as msgpack
// datagrams, to a multicast group and to unicast listeners that ping in.
package rnet

import (
	"fmt"
	"net"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// DefaultGroup is the multicast address devices publish on.
const DefaultGroup = "225.1.2.3:8765"

// Kind is the type of a datagram.
type Kind uint8

const (
	KindReading Kind = iota + 1
	KindOver
	KindSafe
	KindPing // listener asking to receive datagrams directly
)

func (k Kind) String() string {
	switch k {
	case KindReading:
		return "reading"
	case KindOver:
		return "over"
	case KindSafe:
		return "safe"
	case KindPing:
		return "ping"
	}
	return "unknown"
}

// Msg is what is sent over the network.
type Msg struct {
	Kind Kind    `msgpack:"k"`
	Name string  `msgpack:"n"`
	Temp float32 `msgpack:"t,omitempty"`
	Time int64   `msgpack:"ts"` // unix milliseconds
}

// Encode serializes m.
func Encode(m Msg) ([]byte, error) {
	return msgpack.Marshal(&m)
}

// Decode parses a datagram.
func Decode(b []byte) (Msg, error) {
	var m Msg
	if err := msgpack.Unmarshal(b, &m); err != nil {
		return Msg{}, fmt.Errorf("rnet: decode: %w", err)
	}
	if m.Kind < KindReading || m.Kind > KindPing {
		return Msg{}, fmt.Errorf("rnet: unknown message kind %d", m.Kind)
	}
	return m, nil
}

// MyIPs lists the IPv4 addresses of the interfaces that are up, not
// loopback, backed by hardware and multicast capable.
func MyIPs() (mine []string, err error) {
	itfs, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("rnet: interfaces: %w", err)
	}

	for _, itf := range itfs {
		switch {
		case itf.Flags&net.FlagUp != net.FlagUp:
			continue // skip down interfaces
		case itf.Flags&net.FlagLoopback == net.FlagLoopback:
			continue // skip loopbacks
		case itf.HardwareAddr == nil:
			continue // not real network hardware
		case strings.Contains(itf.Name, "docker"):
			continue // ignore docker network
		}
		if multi, err := itf.MulticastAddrs(); err != nil || len(multi) == 0 {
			continue // no multicast
		}

		addrs, err := itf.Addrs()
		if err != nil {
			return nil, fmt.Errorf("rnet: addrs of %s: %w", itf.Name, err)
		}
		for _, addr := range addrs {
			ip, _, err := net.ParseCIDR(addr.String())
			if err != nil {
				continue
			}
			if ipv4 := ip.To4(); ipv4 != nil {
				mine = append(mine, ipv4.String())
			}
		}
	}
	return mine, nil
}
