//go:build linux

package sensor

import (
	"fmt"

	"golang.org/x/sys/unix"
)

const i2cSlave = 0x0703 // ioctl: set slave address

type devBus struct {
	fd   int
	addr int
}

// OpenI2C opens /dev/i2c-<n>.
func OpenI2C(n int) (*I2C, error) {
	path := fmt.Sprintf("/dev/i2c-%d", n)
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("sensor: open %s: %w", path, err)
	}
	return &I2C{dev: &devBus{fd: fd, addr: -1}}, nil
}

func (d *devBus) setAddr(addr Address) error {
	if d.addr == int(addr) {
		return nil
	}
	if err := unix.IoctlSetInt(d.fd, i2cSlave, int(addr)); err != nil {
		return err
	}
	d.addr = int(addr)
	return nil
}

func (d *devBus) write(p []byte) error {
	n, err := unix.Write(d.fd, p)
	if err != nil {
		return err
	}
	if n != len(p) {
		return fmt.Errorf("short write: %d of %d bytes", n, len(p))
	}
	return nil
}

func (d *devBus) read(p []byte) error {
	n, err := unix.Read(d.fd, p)
	if err != nil {
		return err
	}
	if n != len(p) {
		return fmt.Errorf("short read: %d of %d bytes", n, len(p))
	}
	return nil
}

func (d *devBus) close() error {
	return unix.Close(d.fd)
}
