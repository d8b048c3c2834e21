package thermal

// Event is a unit of work for the supervisor loop. It is a bare tag with no
// payload, so it copies by value and the channel only has to keep order.
type Event byte

const (
	EventUnset      Event = iota
	MeasureCommand        // sample and report
	InterruptNotice       // OS pin tripped: sample, report and classify
)

func (e Event) String() string {
	switch e {
	case MeasureCommand:
		return "measure"
	case InterruptNotice:
		return "interrupt"
	case EventUnset:
		return "unset"
	}
	return "unknown"
}
