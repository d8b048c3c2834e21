package thermal

import (
	"fmt"

	"gitlab.com/lologarithm/thermgr/sensor"
)

// Config is fixed for the lifetime of a supervisor. To change it, stop the
// supervisor and start a new one.
type Config struct {
	Addr       sensor.Address // sensor bus address
	OverTemp   sensor.Celsius // at or above: over temperature
	Hysteresis sensor.Celsius // at or below: safe again
}

// Validate checks the threshold ordering.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: missing config", ErrInvalidArgument)
	}
	if c.Hysteresis >= c.OverTemp {
		return fmt.Errorf("%w: hysteresis %s must be below over-temperature %s", ErrInvalidArgument, c.Hysteresis, c.OverTemp)
	}
	return nil
}
