//go:build !linux

package sensor

import "errors"

// OpenI2C is only available on linux.
func OpenI2C(n int) (*I2C, error) {
	return nil, errors.New("sensor: i2c-dev is only supported on linux")
}
