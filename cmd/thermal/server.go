package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"gitlab.com/lologarithm/thermgr/thermal"
)

// supervisor is the part of *thermal.Supervisor the HTTP surface drives.
type supervisor interface {
	Submit(ev thermal.Event) error
	HandleInterrupt()
}

type server struct {
	sup    supervisor
	hub    *hub
	gather prometheus.Gatherer
	log    zerolog.Logger
	router *chi.Mux
}

func newServer(sup supervisor, h *hub, gather prometheus.Gatherer, log zerolog.Logger) *server {
	s := &server{
		sup:    sup,
		hub:    h,
		gather: gather,
		log:    log,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *server) routes() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/latest", s.handleLatest)
	s.router.Post("/measure", s.handleMeasure)
	s.router.Post("/interrupt", s.handleInterrupt)
	s.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gather, promhttp.HandlerOpts{}))
	s.router.Get("/stream", s.hub.serveWS)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *server) handleLatest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.hub.Latest())
}

func (s *server) handleMeasure(w http.ResponseWriter, r *http.Request) {
	err := s.sup.Submit(thermal.MeasureCommand)
	switch {
	case errors.Is(err, thermal.ErrChannelFull):
		s.log.Warn().Msg("measurement request dropped, channel full")
		http.Error(w, "channel full", http.StatusServiceUnavailable)
	case err != nil:
		s.log.Error().Err(err).Msg("failed to queue measurement")
		http.Error(w, "internal error", http.StatusInternalServerError)
	default:
		writeJSON(w, http.StatusAccepted, map[string]string{"queued": thermal.MeasureCommand.String()})
	}
}

// handleInterrupt injects an interrupt notice as if the OS pin had fired.
// Like the pin it never waits, so a full channel still answers 202.
func (s *server) handleInterrupt(w http.ResponseWriter, r *http.Request) {
	s.sup.HandleInterrupt()
	writeJSON(w, http.StatusAccepted, map[string]string{"queued": thermal.InterruptNotice.String()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
