package thermal

import "gitlab.com/lologarithm/thermgr/sensor"

// State is the classification of one reading.
type State byte

const (
	StateNormal        State = iota // sampled without classification
	StateOver                       // at or above the over-temperature threshold
	StateSafeAgain                  // at or below the hysteresis threshold
	StateIndeterminate              // in the dead band between the two
)

func (s State) String() string {
	switch s {
	case StateNormal:
		return "normal"
	case StateOver:
		return "over"
	case StateSafeAgain:
		return "safe"
	case StateIndeterminate:
		return "indeterminate"
	}
	return "unknown"
}

// Classify places temp against the thresholds of cfg. Both bounds are inclusive.
func Classify(temp sensor.Celsius, cfg Config) State {
	switch {
	case temp >= cfg.OverTemp:
		return StateOver
	case temp <= cfg.Hysteresis:
		return StateSafeAgain
	}
	return StateIndeterminate
}
