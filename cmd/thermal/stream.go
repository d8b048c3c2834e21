package main

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"gitlab.com/lologarithm/thermgr/sensor"
)

const (
	clientBacklog = 16
	writeWait     = 5 * time.Second
)

// Update is pushed to websocket clients on every reading and alert.
type Update struct {
	Name  string    `json:"name"`
	Temp  *float32  `json:"temp,omitempty"`
	State string    `json:"state"` // normal, over, safe
	Time  time.Time `json:"time"`
}

// Request is sent from a websocket client.
type Request struct {
	Measure bool `json:"measure"`
}

var upgrader = websocket.Upgrader{} // use default options

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// hub fans updates out to websocket clients. Slow clients are dropped
// instead of stalling the supervisor loop.
type hub struct {
	measure func() error
	log     zerolog.Logger

	mu      sync.Mutex
	latest  Update
	clients map[*client]struct{}
}

func newHub(name string, measure func() error, log zerolog.Logger) *hub {
	return &hub{
		measure: measure,
		log:     log,
		latest:  Update{Name: name, State: "normal"},
		clients: map[*client]struct{}{},
	}
}

func (h *hub) RecordTemperature(t sensor.Celsius) {
	v := float32(t)
	h.update(func(u *Update) { u.Temp = &v })
}

func (h *hub) OverTemperature() { h.update(func(u *Update) { u.State = "over" }) }

func (h *hub) SafeConditions() { h.update(func(u *Update) { u.State = "safe" }) }

// Latest returns the cached state.
func (h *hub) Latest() Update {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest
}

func (h *hub) update(fn func(*Update)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(&h.latest)
	h.latest.Time = time.Now()
	d, err := json.Marshal(h.latest)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to marshal update")
		return
	}
	for c := range h.clients {
		select {
		case c.send <- d:
		default:
			h.log.Warn().Stringer("remote", c.conn.RemoteAddr()).Msg("dropping slow stream client")
			h.remove(c)
		}
	}
}

// remove must be called with mu held.
func (h *hub) remove(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *hub) clientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failure")
		return
	}
	c := &client{conn: conn, send: make(chan []byte, clientBacklog)}

	// New clients get the cached state first.
	h.mu.Lock()
	if d, err := json.Marshal(h.latest); err == nil {
		c.send <- d
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.write(c)
	h.read(c)
}

func (h *hub) write(c *client) {
	defer c.conn.Close()
	for d := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, d); err != nil {
			h.log.Debug().Err(err).Msg("stream write failed")
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// read handles requests from the client until it disconnects.
func (h *hub) read(c *client) {
	defer func() {
		h.mu.Lock()
		h.remove(c)
		h.mu.Unlock()
	}()
	for {
		var req Request
		if err := c.conn.ReadJSON(&req); err != nil {
			h.log.Debug().Err(err).Msg("disconnecting stream client")
			return
		}
		if req.Measure {
			if err := h.measure(); err != nil {
				h.log.Warn().Err(err).Msg("stream measurement request dropped")
			}
		}
	}
}
