package sensor

import "sync"

// Fake replays a fixed sequence of readings, looping at the end. It stands in
// for the bus on machines without the sensor attached.
type Fake struct {
	mu     sync.Mutex
	values []Celsius
	next   int
	err    error
	reads  int
}

// NewFake returns a Fake that yields values in order. With no values it
// reports a steady 20°C.
func NewFake(values ...Celsius) *Fake {
	if len(values) == 0 {
		values = []Celsius{20}
	}
	return &Fake{values: values}
}

func (f *Fake) ReadTemperature(Address) (Celsius, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.err != nil {
		return 0, f.err
	}
	v := f.values[f.next]
	f.next = (f.next + 1) % len(f.values)
	return v, nil
}

// Fail makes every following read return err; nil restores readings.
func (f *Fake) Fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// Reads is the number of ReadTemperature calls so far.
func (f *Fake) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}
