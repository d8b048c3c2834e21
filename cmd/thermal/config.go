package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"gitlab.com/lologarithm/thermgr/alert"
	"gitlab.com/lologarithm/thermgr/emitter"
	"gitlab.com/lologarithm/thermgr/rnet"
	"gitlab.com/lologarithm/thermgr/sensor"
	"gitlab.com/lologarithm/thermgr/thermal"
)

// Config is the daemon configuration.
type Config struct {
	Name      string          `yaml:"name"`
	Listen    string          `yaml:"listen"`
	LogLevel  string          `yaml:"log_level"`
	Sensor    SensorConfig    `yaml:"sensor"`
	Queue     QueueConfig     `yaml:"queue"`
	Interrupt InterruptConfig `yaml:"interrupt"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// SensorConfig selects the sensor and its thresholds.
type SensorConfig struct {
	Driver            string    `yaml:"driver"` // i2c, hwmon, host, fake
	Bus               int       `yaml:"bus"`
	Address           int       `yaml:"address"`
	HostKey           string    `yaml:"host_key"`
	OverTempC         float32   `yaml:"over_temp_c"`
	HysteresisC       float32   `yaml:"hysteresis_c"`
	ProgramThresholds bool      `yaml:"program_thresholds"` // write Tos/Thyst to the LM75 at start
	OSMode            string    `yaml:"os_mode"`            // comparator, interrupt
	OSPolarity        string    `yaml:"os_polarity"`        // low, high
	FaultQueue        int       `yaml:"fault_queue"`
	FakeValues        []float32 `yaml:"fake_values"`
}

// QueueConfig tunes the event channel and the measurement cadence.
type QueueConfig struct {
	Capacity        int           `yaml:"capacity"`
	SendWait        time.Duration `yaml:"send_wait"`
	PollTimeout     time.Duration `yaml:"poll_timeout"`
	MeasureInterval time.Duration `yaml:"measure_interval"`
}

// InterruptConfig is the GPIO pin wired to the sensor's OS output.
type InterruptConfig struct {
	Pin  int           `yaml:"pin"` // BCM number, 0 disables
	Poll time.Duration `yaml:"poll"`
}

// AlertsConfig lists the alert outputs.
type AlertsConfig struct {
	FanPin       int                 `yaml:"fan_pin"` // BCM number, 0 disables
	FanActiveLow bool                `yaml:"fan_active_low"`
	Mailgun      alert.MailgunConfig `yaml:"mailgun"`
}

// TelemetryConfig lists the telemetry outputs besides metrics and the websocket stream.
type TelemetryConfig struct {
	Console   bool           `yaml:"console"`
	Multicast string         `yaml:"multicast"` // group address, empty disables
	Local     string         `yaml:"local"`     // local UDP address listeners ping
	MQTT      emitter.Config `yaml:"mqtt"`
}

// DefaultConfig matches the LM75 power-on state: comparator mode, Tos 80,
// Thyst 75.
func DefaultConfig() Config {
	return Config{
		Listen:   ":8080",
		LogLevel: "info",
		Sensor: SensorConfig{
			Driver:      "i2c",
			Bus:         1,
			Address:     0x48,
			OverTempC:   80,
			HysteresisC: 75,
			OSMode:      "comparator",
			OSPolarity:  "low",
			FaultQueue:  1,
		},
		Queue: QueueConfig{
			Capacity:        thermal.DefaultCapacity,
			SendWait:        thermal.DefaultSendWait,
			PollTimeout:     thermal.DefaultPollTimeout,
			MeasureInterval: 30 * time.Second,
		},
		Interrupt: InterruptConfig{
			Poll: 5 * time.Millisecond,
		},
		Telemetry: TelemetryConfig{
			Console:   true,
			Multicast: rnet.DefaultGroup,
			Local:     ":0",
		},
	}
}

// LoadConfig reads a YAML file over the defaults. A missing file leaves
// the defaults in place.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if cfg.Name == "" {
		cfg.Name = uuid.NewString()
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the values the supervisor and the sensor depend on.
func (c Config) Validate() error {
	switch c.Sensor.Driver {
	case "i2c", "hwmon", "host", "fake":
	default:
		return fmt.Errorf("sensor.driver %q: want i2c, hwmon, host or fake", c.Sensor.Driver)
	}
	if c.Sensor.Address < 0x03 || c.Sensor.Address > 0x77 {
		return fmt.Errorf("sensor.address 0x%x out of the 7-bit range", c.Sensor.Address)
	}
	if c.Sensor.Driver == "host" && c.Sensor.HostKey == "" {
		return errors.New("sensor.host_key is required with the host driver")
	}
	if err := c.Thermal().Validate(); err != nil {
		return err
	}
	settings, err := c.LM75Settings()
	if err != nil {
		return err
	}
	// An unprogrammed LM75 stays in its power-on comparator mode.
	if c.Interrupt.Pin > 0 && settings.Mode == sensor.Interrupt && !c.Sensor.ProgramThresholds {
		return errors.New("sensor.os_mode interrupt on the interrupt pin requires sensor.program_thresholds")
	}
	if c.Queue.Capacity <= 0 {
		return fmt.Errorf("queue.capacity %d must be positive", c.Queue.Capacity)
	}
	if c.Queue.SendWait < 0 || c.Queue.PollTimeout <= 0 || c.Queue.MeasureInterval < 0 {
		return errors.New("queue timings must not be negative and poll_timeout must be set")
	}
	if c.Interrupt.Pin < 0 || c.Alerts.FanPin < 0 {
		return errors.New("gpio pins must not be negative")
	}
	if c.Interrupt.Pin > 0 && c.Interrupt.Pin == c.Alerts.FanPin {
		return fmt.Errorf("interrupt.pin and alerts.fan_pin are both %d", c.Interrupt.Pin)
	}
	if c.Telemetry.MQTT.QoS > 2 {
		return fmt.Errorf("telemetry.mqtt.qos %d: want 0, 1 or 2", c.Telemetry.MQTT.QoS)
	}
	if c.Interrupt.Pin > 0 && c.Interrupt.Poll <= 0 {
		return errors.New("interrupt.poll must be positive")
	}
	return nil
}

// Thermal is the supervisor configuration.
func (c Config) Thermal() *thermal.Config {
	return &thermal.Config{
		Addr:       sensor.Address(c.Sensor.Address),
		OverTemp:   sensor.Celsius(c.Sensor.OverTempC),
		Hysteresis: sensor.Celsius(c.Sensor.HysteresisC),
	}
}

// LM75Settings is the configuration register content to program.
func (c Config) LM75Settings() (sensor.Settings, error) {
	var s sensor.Settings
	switch c.Sensor.OSMode {
	case "comparator", "":
		s.Mode = sensor.Comparator
	case "interrupt":
		s.Mode = sensor.Interrupt
	default:
		return s, fmt.Errorf("sensor.os_mode %q: want comparator or interrupt", c.Sensor.OSMode)
	}
	switch c.Sensor.OSPolarity {
	case "low", "":
		s.Polarity = sensor.ActiveLow
	case "high":
		s.Polarity = sensor.ActiveHigh
	default:
		return s, fmt.Errorf("sensor.os_polarity %q: want low or high", c.Sensor.OSPolarity)
	}
	s.FaultQueue = c.Sensor.FaultQueue
	if _, err := s.ConfigByte(); err != nil {
		return s, err
	}
	return s, nil
}
