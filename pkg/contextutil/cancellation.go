package contextutil

import (
	"context"
	"time"
)

// IsCancelled returns whether or not the context's Done channel is closed.
func IsCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// Sleep waits for the specified duration or until the context is cancelled,
// whichever comes first. It returns false if the wait was preempted by
// cancellation.
func Sleep(ctx context.Context, duration time.Duration) bool {
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
