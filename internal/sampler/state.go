package sampler

// State is the lifecycle position of the sampling loop.
type State int32

const (
	Idle State = iota
	Sampling
	Sleeping
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sampling:
		return "sampling"
	case Sleeping:
		return "sleeping"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}
