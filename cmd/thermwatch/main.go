// Command thermwatch prints the readings and alerts thermal daemons publish.
// By default it joins the multicast group; with -ping it asks one daemon to
// send to it directly, for networks that drop multicast.
package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"gitlab.com/lologarithm/thermgr/rnet"
)

func main() {
	group := flag.String("group", rnet.DefaultGroup, "multicast group to join")
	ping := flag.String("ping", "", "daemon address to ping for unicast delivery")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if ips, err := rnet.MyIPs(); err == nil {
		log.Info().Strs("addrs", ips).Msg("local addresses")
	}

	var err error
	if *ping != "" {
		err = watchUnicast(ctx, *ping, log.Logger)
	} else {
		err = watchGroup(ctx, *group, log.Logger)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("thermwatch failed")
	}
}

func watchGroup(ctx context.Context, group string, logger zerolog.Logger) error {
	gaddr, err := net.ResolveUDPAddr("udp4", group)
	if err != nil {
		return err
	}
	conn, err := net.ListenMulticastUDP("udp4", nil, gaddr)
	if err != nil {
		return err
	}
	defer conn.Close()
	logger.Info().Stringer("group", gaddr).Msg("listening for device updates")
	return rnet.Listen(ctx, conn, printer(logger))
}

// watchUnicast pings the daemon at target often enough that it never
// expires this listener.
func watchUnicast(ctx context.Context, target string, logger zerolog.Logger) error {
	taddr, err := net.ResolveUDPAddr("udp4", target)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return err
	}
	defer conn.Close()

	go func() {
		ticker := time.NewTicker(rnet.ListenerTimeout / 2)
		defer ticker.Stop()
		for {
			if err := rnet.Ping(conn, taddr); err != nil {
				logger.Warn().Err(err).Stringer("target", taddr).Msg("ping failed")
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	logger.Info().Stringer("target", taddr).Msg("listening for direct updates")
	return rnet.Listen(ctx, conn, printer(logger))
}

func printer(logger zerolog.Logger) func(rnet.Msg, *net.UDPAddr) {
	return func(m rnet.Msg, from *net.UDPAddr) {
		ev := logger.Info()
		switch m.Kind {
		case rnet.KindPing:
			return
		case rnet.KindOver:
			ev = logger.Warn()
		case rnet.KindReading:
			ev = ev.Float32("celsius", m.Temp)
		}
		ev.Str("device", m.Name).
			Stringer("kind", m.Kind).
			Stringer("from", from).
			Time("at", time.UnixMilli(m.Time)).
			Msg("device update")
	}
}
