package contextutil

import (
	"context"
	"testing"
	"time"
)

// TestIsCancelled tests IsCancelled before and after cancellation.
func TestIsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	if IsCancelled(ctx) {
		t.Error("fresh context reported as cancelled")
	}
	cancel()
	if !IsCancelled(ctx) {
		t.Error("cancelled context not reported as cancelled")
	}
}

// TestSleepCompletes tests that Sleep returns true when the full duration
// elapses.
func TestSleepCompletes(t *testing.T) {
	if !Sleep(context.Background(), time.Millisecond) {
		t.Error("uncancelled sleep reported preemption")
	}
}

// TestSleepPreempted tests that Sleep returns promptly on cancellation.
func TestSleepPreempted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if Sleep(ctx, time.Hour) {
		t.Error("cancelled sleep reported completion")
	}
	if time.Since(start) > time.Second {
		t.Error("cancelled sleep did not return promptly")
	}
}
