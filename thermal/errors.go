package thermal

import "errors"

var (
	// ErrInvalidArgument means a required reference (event, config) is missing or unusable.
	ErrInvalidArgument = errors.New("thermal: invalid argument")
	// ErrChannelFull is the producer backpressure signal. The event was dropped.
	ErrChannelFull = errors.New("thermal: channel full")
	// ErrSensorFailure wraps an error reported by the sensor reader.
	ErrSensorFailure = errors.New("thermal: sensor failure")
	// ErrInvalidState covers unknown event tags and dead-band readings on an interrupt.
	ErrInvalidState = errors.New("thermal: invalid state")
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("thermal: supervisor already started")
)

// ConditionKind classifies the non-fatal conditions the supervisor reports.
type ConditionKind byte

const (
	ConditionInvalidArgument ConditionKind = iota + 1
	ConditionChannelFull
	ConditionSensorFailure
	ConditionInvalidState
)

func (k ConditionKind) String() string {
	switch k {
	case ConditionInvalidArgument:
		return "invalid_argument"
	case ConditionChannelFull:
		return "channel_full"
	case ConditionSensorFailure:
		return "sensor_failure"
	case ConditionInvalidState:
		return "invalid_state"
	}
	return "unknown"
}

// Err returns the sentinel error matching the kind.
func (k ConditionKind) Err() error {
	switch k {
	case ConditionInvalidArgument:
		return ErrInvalidArgument
	case ConditionChannelFull:
		return ErrChannelFull
	case ConditionSensorFailure:
		return ErrSensorFailure
	case ConditionInvalidState:
		return ErrInvalidState
	}
	return nil
}
