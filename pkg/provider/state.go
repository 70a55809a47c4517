package provider

// State represents a provider's lifecycle state.
type State uint8

const (
	// StateCreated indicates that the provider has not been started.
	StateCreated State = iota
	// StateStarted indicates that pipelines are running.
	StateStarted
	// StateStopping indicates that polling has stopped and buffered messages
	// are being drained.
	StateStopping
	// StateDrained indicates that all workers exited after a stop.
	StateDrained
	// StateAborting indicates that polling and delivery have been cancelled.
	StateAborting
	// StateTerminated indicates that all workers exited after an abort.
	StateTerminated
)

// String provides a human-readable representation of a state.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarted:
		return "started"
	case StateStopping:
		return "stopping"
	case StateDrained:
		return "drained"
	case StateAborting:
		return "aborting"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}
