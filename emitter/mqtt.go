// Package emitter publishes readings and alerts to an MQTT broker and accepts
// measurement commands from it.
package emitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"gitlab.com/lologarithm/thermgr/sensor"
	"gitlab.com/lologarithm/thermgr/thermal"
)

const (
	connectTimeout = 5 * time.Second
	publishTimeout = 2 * time.Second
	backlog        = 16
)

// Config is the broker connection.
type Config struct {
	Broker   string `yaml:"broker"` // host:port, empty disables
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"` // prefix, defaults to thermgr/<name>
	QoS      byte   `yaml:"qos"`
}

// Enabled reports whether a broker is configured.
func (c Config) Enabled() bool {
	return c.Broker != ""
}

// Client is the part of mqtt.Client the emitter uses.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
}

// Supervisor receives commands from the broker.
type Supervisor interface {
	Submit(ev thermal.Event) error
	HandleInterrupt()
}

// Payload is the JSON body of every publication.
type Payload struct {
	Name    string    `json:"name"`
	Kind    string    `json:"kind"` // reading, over, safe
	Celsius *float32  `json:"celsius,omitempty"`
	Time    time.Time `json:"time"`
}

// Command is the JSON body accepted on <topic>/command.
type Command struct {
	Command string `json:"command"` // measure, interrupt
}

type publication struct {
	topic    string
	retained bool
	payload  []byte
}

// MQTT implements the supervisor's telemetry and alert sinks. Publishing is
// done by Run so a slow broker never stalls the supervisor loop.
type MQTT struct {
	client     Client
	disconnect func()
	name       string
	topic      string
	qos        byte
	log        zerolog.Logger
	now        func() time.Time
	queue      chan publication
}

// Connect dials the broker in cfg with auto reconnect enabled.
func Connect(cfg Config, name string, log zerolog.Logger) (*MQTT, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "thermgr-" + name
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", cfg.Broker))
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.OnConnect = func(mqtt.Client) {
		log.Info().Str("broker", cfg.Broker).Str("client_id", clientID).Msg("mqtt connection established")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Str("broker", cfg.Broker).Msg("mqtt connection lost, will auto-reconnect")
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		client.Disconnect(0) // stop the background retries
		return nil, errors.New("emitter: mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("emitter: mqtt connection failed: %w", err)
	}

	m := New(client, cfg.Topic, cfg.QoS, name, log)
	m.disconnect = func() { client.Disconnect(250) }
	return m, nil
}

// New wraps an already connected client. An empty topic defaults to
// thermgr/<name>.
func New(c Client, topic string, qos byte, name string, log zerolog.Logger) *MQTT {
	if topic == "" {
		topic = "thermgr/" + name
	}
	return &MQTT{
		client:     c,
		disconnect: func() {},
		name:       name,
		topic:      topic,
		qos:        qos,
		log:        log,
		now:        time.Now,
		queue:      make(chan publication, backlog),
	}
}

func (m *MQTT) RecordTemperature(t sensor.Celsius) {
	v := float32(t)
	m.enqueue("temperature", false, Payload{Kind: "reading", Celsius: &v})
}

// OverTemperature and SafeConditions publish retained so late subscribers
// see the current state.
func (m *MQTT) OverTemperature() { m.enqueue("alert", true, Payload{Kind: "over"}) }

func (m *MQTT) SafeConditions() { m.enqueue("alert", true, Payload{Kind: "safe"}) }

func (m *MQTT) enqueue(sub string, retained bool, p Payload) {
	p.Name = m.name
	p.Time = m.now()
	data, err := json.Marshal(p)
	if err != nil {
		m.log.Error().Err(err).Msg("failed to marshal mqtt payload")
		return
	}
	select {
	case m.queue <- publication{topic: m.topic + "/" + sub, retained: retained, payload: data}:
	default:
		m.log.Warn().Str("kind", p.Kind).Msg("mqtt backlog full, dropping publication")
	}
}

// Run publishes queued messages until ctx is done, then disconnects.
func (m *MQTT) Run(ctx context.Context) {
	defer m.disconnect()
	for {
		select {
		case <-ctx.Done():
			return
		case p := <-m.queue:
			token := m.client.Publish(p.topic, m.qos, p.retained, p.payload)
			if !token.WaitTimeout(publishTimeout) {
				m.log.Warn().Str("topic", p.topic).Msg("mqtt publish timeout")
				continue
			}
			if err := token.Error(); err != nil {
				m.log.Warn().Err(err).Str("topic", p.topic).Msg("mqtt publish failed")
				continue
			}
			m.log.Debug().Str("topic", p.topic).Int("size", len(p.payload)).Msg("published")
		}
	}
}

// Subscribe routes commands on <topic>/command to sup.
func (m *MQTT) Subscribe(sup Supervisor) error {
	topic := m.topic + "/command"
	token := m.client.Subscribe(topic, m.qos, func(_ mqtt.Client, msg mqtt.Message) {
		m.handleCommand(sup, msg.Payload())
	})
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("emitter: subscribe %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("emitter: subscribe %s: %w", topic, err)
	}
	return nil
}

func (m *MQTT) handleCommand(sup Supervisor, payload []byte) {
	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		m.log.Warn().Err(err).Msg("invalid mqtt command")
		return
	}
	switch cmd.Command {
	case "measure":
		if err := sup.Submit(thermal.MeasureCommand); err != nil {
			m.log.Warn().Err(err).Msg("mqtt measurement request dropped")
		}
	case "interrupt":
		sup.HandleInterrupt()
	default:
		m.log.Warn().Str("command", cmd.Command).Msg("unknown mqtt command")
	}
}
