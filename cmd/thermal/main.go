// Command thermal supervises an LM75-style temperature sensor. It samples
// the sensor periodically and whenever the sensor's OS output fires, raises
// over-temperature and safe-again alerts, and exposes the readings over
// HTTP, websocket, UDP multicast and Prometheus.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	rpio "github.com/stianeikeland/go-rpio/v4"

	"gitlab.com/lologarithm/thermgr/alert"
	"gitlab.com/lologarithm/thermgr/emitter"
	"gitlab.com/lologarithm/thermgr/metrics"
	"gitlab.com/lologarithm/thermgr/rnet"
	"gitlab.com/lologarithm/thermgr/sensor"
	"gitlab.com/lologarithm/thermgr/thermal"
)

func main() {
	configPath := flag.String("config", "thermal.yaml", "path to the YAML config file")
	listen := flag.String("listen", "", "HTTP listen address, overrides the config")
	logLevel := flag.String("log-level", "", "log level, overrides the config")
	fake := flag.Bool("fake", false, "use simulated sensor readings")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("failed to load config")
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *fake {
		cfg.Sensor.Driver = "fake"
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid log level")
	}
	zerolog.SetGlobalLevel(level)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info().Msg("shutting down")
		cancel()
	}()

	if err := run(ctx, cfg, log.Logger.With().Str("name", cfg.Name).Logger()); err != nil {
		log.Fatal().Err(err).Msg("thermal daemon failed")
	}
	log.Info().Msg("done")
}

// run wires the sensor, sinks and servers, and blocks until ctx is done.
func run(ctx context.Context, cfg Config, logger zerolog.Logger) error {
	settings, err := cfg.LM75Settings()
	if err != nil {
		return err
	}
	reader, closeSensor := openSensor(cfg, settings, logger)
	defer closeSensor()

	gpio := true
	if cfg.Interrupt.Pin > 0 || cfg.Alerts.FanPin > 0 {
		if err := rpio.Open(); err != nil {
			logger.Warn().Err(err).Msg("failed to open gpio, interrupt pin and fan are disabled")
			gpio = false
		} else {
			defer rpio.Close()
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	msink := metrics.NewSink(reg)

	telemetry := thermal.MultiTelemetry{msink}
	alerts := thermal.MultiAlerter{msink}
	if cfg.Telemetry.Console {
		console := alert.Console{Log: logger}
		telemetry = append(telemetry, console)
		alerts = append(alerts, console)
	}

	if cfg.Telemetry.Multicast != "" {
		bc, err := rnet.NewBroadcaster(cfg.Name, cfg.Telemetry.Local, cfg.Telemetry.Multicast, logger)
		if err != nil {
			return err
		}
		defer bc.Close()
		go func() {
			if err := bc.Serve(ctx); err != nil {
				logger.Error().Err(err).Msg("broadcaster stopped")
			}
		}()
		logger.Info().Stringer("addr", bc.LocalAddr()).Str("group", cfg.Telemetry.Multicast).Msg("broadcasting readings")
		telemetry = append(telemetry, bc)
		alerts = append(alerts, bc)
	}

	var broker *emitter.MQTT
	if cfg.Telemetry.MQTT.Enabled() {
		var err error
		broker, err = emitter.Connect(cfg.Telemetry.MQTT, cfg.Name, logger)
		if err != nil {
			logger.Warn().Err(err).Str("broker", cfg.Telemetry.MQTT.Broker).Msg("mqtt disabled")
		} else {
			go broker.Run(ctx)
			telemetry = append(telemetry, broker)
			alerts = append(alerts, broker)
		}
	}

	if gpio && cfg.Alerts.FanPin > 0 {
		alerts = append(alerts, alert.OpenPin(cfg.Alerts.FanPin, cfg.Alerts.FanActiveLow))
	}
	if cfg.Alerts.Mailgun.Enabled() {
		mail := alert.NewMail(cfg.Name, alert.NewMailgun(cfg.Alerts.Mailgun), logger)
		go mail.Run(ctx)
		alerts = append(alerts, mail)
	}

	var sup *thermal.Supervisor
	h := newHub(cfg.Name, func() error { return sup.Measure() }, logger)
	telemetry = append(telemetry, h)
	alerts = append(alerts, h)

	sup = thermal.New(cfg.Thermal(), reader,
		thermal.WithTelemetry(telemetry),
		thermal.WithAlerter(alerts),
		thermal.WithConditionLogger(thermal.MultiConditions{thermal.LogConditions(logger), msink}),
		thermal.WithLogger(logger),
		thermal.WithCapacity(cfg.Queue.Capacity),
		thermal.WithSendWait(cfg.Queue.SendWait),
		thermal.WithPollTimeout(cfg.Queue.PollTimeout),
	)
	metrics.RegisterQueue(reg, sup.Queue())
	if err := sup.Start(ctx); err != nil {
		return err
	}
	go sup.Every(ctx, cfg.Queue.MeasureInterval)
	if broker != nil {
		if err := broker.Subscribe(sup); err != nil {
			logger.Warn().Err(err).Msg("mqtt commands disabled")
		}
	}
	if err := sup.Measure(); err != nil {
		logger.Warn().Err(err).Msg("initial measurement dropped")
	}

	if gpio && cfg.Interrupt.Pin > 0 {
		go sensor.WatchPin(ctx, rpio.Pin(cfg.Interrupt.Pin), settings, cfg.Interrupt.Poll, sup.HandleInterrupt)
		logger.Info().Int("pin", cfg.Interrupt.Pin).Str("os_mode", cfg.Sensor.OSMode).Msg("watching interrupt pin")
	}

	srv := &http.Server{Addr: cfg.Listen, Handler: newServer(sup, h, reg, logger)}
	errc := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Listen).Msg("starting webhost")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err = <-errc:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		logger.Error().Err(serr).Msg("http shutdown failed")
	}
	if err == nil {
		<-sup.Done()
	}
	return err
}
