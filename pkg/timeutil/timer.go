package timeutil

import (
	"time"
)

// StopAndDrainTimer stops a timer and performs a non-blocking drain on its
// channel. This allows a timer to be stopped and drained without any knowledge
// of its current state.
func StopAndDrainTimer(timer *time.Timer) {
	timer.Stop()
	select {
	case <-timer.C:
	default:
	}
}

// NewStoppedTimer creates a timer that is stopped and has an empty channel,
// ready to be armed with Rearm.
func NewStoppedTimer() *time.Timer {
	timer := time.NewTimer(0)
	StopAndDrainTimer(timer)
	return timer
}

// Rearm stops and drains a timer and then resets it to fire after the
// specified duration, regardless of whether or not it previously fired.
func Rearm(timer *time.Timer, duration time.Duration) {
	StopAndDrainTimer(timer)
	timer.Reset(duration)
}
