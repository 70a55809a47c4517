// Package queue provides a bounded, concurrent FIFO buffer that connects
// producers and consumers with backpressure.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/mutagen-io/filepoll/pkg/timeutil"
)

const (
	// DefaultCapacity is the default queue capacity.
	DefaultCapacity = 10
	// DefaultWait is the default bounded wait applied to each add or take
	// attempt before cancellation is re-checked.
	DefaultWait = 10 * time.Millisecond
)

// ErrAddingCompleted indicates that an item couldn't be added because the queue
// has been marked as complete for adding.
var ErrAddingCompleted = errors.New("queue adding completed")

// Notifications are the lifecycle callbacks invoked by a Queue. Any callback
// may be nil. Callbacks are invoked synchronously on the Goroutine performing
// the corresponding Produce or Consume call.
type Notifications[T any] struct {
	// Added is invoked after an item is added.
	Added func(T)
	// AddBlocked is invoked each time an add attempt times out because the
	// queue is full. The item will be retried.
	AddBlocked func(T)
	// AddingCanceled is invoked with the item that was pending when a Produce
	// call was cancelled or the queue was completed for adding.
	AddingCanceled func(T)
	// Taken is invoked with each item removed by Consume.
	Taken func(T)
	// TakeBlocked is invoked each time a take attempt times out because the
	// queue is empty.
	TakeBlocked func()
	// TakingCanceled is invoked when a Consume call is cancelled.
	TakingCanceled func()
	// TakingCompleted is invoked when a Consume call observes that the queue
	// has been completed for adding and fully drained.
	TakingCompleted func()
	// Error is invoked if the Taken callback panics. Consumption continues
	// with the next item.
	Error func(error)
}

// Queue is a fixed-capacity FIFO buffer supporting blocking production and
// consumption with bounded-wait retries. It is safe for concurrent usage by
// multiple producers and consumers.
type Queue[T any] struct {
	// items is the underlying buffer.
	items chan T
	// wait is the bounded wait applied to each attempt.
	wait time.Duration
	// notifications are the lifecycle callbacks.
	notifications Notifications[T]
	// addingCompleted is closed when the queue is marked as complete for
	// adding. It preempts blocked add attempts.
	addingCompleted chan struct{}
	// completeOnce ensures that completion is only performed once.
	completeOnce sync.Once
	// sendLock guards items against closure while sends are in flight. Senders
	// hold it for reading, completion holds it for writing.
	sendLock sync.RWMutex
	// closed indicates whether or not items has been closed. It is guarded by
	// sendLock.
	closed bool
}

// New creates a new queue. If capacity is non-positive, DefaultCapacity is
// used. If wait is non-positive, DefaultWait is used.
func New[T any](capacity int, wait time.Duration, notifications Notifications[T]) *Queue[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if wait <= 0 {
		wait = DefaultWait
	}
	return &Queue[T]{
		items:           make(chan T, capacity),
		wait:            wait,
		notifications:   notifications,
		addingCompleted: make(chan struct{}),
	}
}

// Cap returns the queue's capacity.
func (q *Queue[T]) Cap() int {
	return cap(q.items)
}

// Len returns the number of buffered items.
func (q *Queue[T]) Len() int {
	return len(q.items)
}

// CompleteAdding marks the queue as not accepting any more items. Pending and
// future Produce calls fail with ErrAddingCompleted, while consumers continue
// to drain buffered items before observing completion. It is idempotent.
func (q *Queue[T]) CompleteAdding() {
	q.completeOnce.Do(func() {
		// Preempt any blocked senders so that they release the send lock.
		close(q.addingCompleted)

		// Wait for in-flight sends to finish and close the buffer.
		q.sendLock.Lock()
		q.closed = true
		close(q.items)
		q.sendLock.Unlock()
	})
}

// IsAddingCompleted returns whether or not the queue has been marked as
// complete for adding.
func (q *Queue[T]) IsAddingCompleted() bool {
	select {
	case <-q.addingCompleted:
		return true
	default:
		return false
	}
}

// IsCompleted returns whether or not the queue has been marked as complete for
// adding and has been fully drained.
func (q *Queue[T]) IsCompleted() bool {
	q.sendLock.RLock()
	defer q.sendLock.RUnlock()
	return q.closed && len(q.items) == 0
}

// attemptAdd performs a single bounded-wait add attempt. It returns true if the
// item was added, false if the attempt timed out, or an error if the context
// was cancelled or the queue was completed for adding.
func (q *Queue[T]) attemptAdd(ctx context.Context, timer *time.Timer, item T) (bool, error) {
	// Hold the send lock for reading so that the buffer can't be closed while
	// we're sending.
	q.sendLock.RLock()
	defer q.sendLock.RUnlock()

	// If the buffer is already closed, then adding is impossible.
	if q.closed {
		return false, ErrAddingCompleted
	}

	// Check for cancellation before attempting to add, so that cancellation
	// takes precedence over available capacity.
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-q.addingCompleted:
		return false, ErrAddingCompleted
	default:
	}

	// Attempt the add.
	timeutil.Rearm(timer, q.wait)
	select {
	case q.items <- item:
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	case <-q.addingCompleted:
		return false, ErrAddingCompleted
	case <-timer.C:
		return false, nil
	}
}

// Produce adds items to the queue strictly in order. Each add attempt waits for
// at most the queue's bounded wait. If an attempt times out, the AddBlocked
// notification is invoked and the same item is retried, so a full queue stalls
// the producer rather than dropping items. If the context is cancelled or the
// queue is completed for adding, the AddingCanceled notification is invoked,
// the remaining items are discarded, and the corresponding error is returned.
func (q *Queue[T]) Produce(ctx context.Context, items ...T) error {
	// Handle the trivial case.
	if len(items) == 0 {
		return nil
	}

	// Create the attempt timer and ensure its cleanup.
	timer := timeutil.NewStoppedTimer()
	defer timer.Stop()

	// Add items in order.
	for index := 0; index < len(items); {
		item := items[index]
		added, err := q.attemptAdd(ctx, timer, item)
		if err != nil {
			if q.notifications.AddingCanceled != nil {
				q.notifications.AddingCanceled(item)
			}
			return err
		} else if !added {
			if q.notifications.AddBlocked != nil {
				q.notifications.AddBlocked(item)
			}
			continue
		}
		index++
		if q.notifications.Added != nil {
			q.notifications.Added(item)
		}
	}

	// Success.
	return nil
}

// deliver invokes the Taken notification, converting panics into Error
// notifications.
func (q *Queue[T]) deliver(item T) {
	if q.notifications.Taken == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			if q.notifications.Error != nil {
				q.notifications.Error(errors.Errorf("panic while handling item: %v", r))
			}
		}
	}()
	q.notifications.Taken(item)
}

// Consume removes items from the queue and delivers each one to the Taken
// notification until the queue is completed for adding and fully drained, in
// which case TakingCompleted is invoked and nil is returned. Each take attempt
// waits for at most the queue's bounded wait, invoking TakeBlocked if it times
// out. If the context is cancelled, TakingCanceled is invoked, any buffered
// items are left undelivered, and the context's error is returned.
func (q *Queue[T]) Consume(ctx context.Context) error {
	// Create the attempt timer and ensure its cleanup.
	timer := timeutil.NewStoppedTimer()
	defer timer.Stop()

	// Loop until completion or cancellation.
	for {
		// Check for cancellation before attempting to take, so that
		// cancellation takes precedence over buffered items.
		select {
		case <-ctx.Done():
			if q.notifications.TakingCanceled != nil {
				q.notifications.TakingCanceled()
			}
			return ctx.Err()
		default:
		}

		// Attempt a take.
		timeutil.Rearm(timer, q.wait)
		select {
		case item, ok := <-q.items:
			if !ok {
				if q.notifications.TakingCompleted != nil {
					q.notifications.TakingCompleted()
				}
				return nil
			}
			q.deliver(item)
		case <-ctx.Done():
			if q.notifications.TakingCanceled != nil {
				q.notifications.TakingCanceled()
			}
			return ctx.Err()
		case <-timer.C:
			if q.notifications.TakeBlocked != nil {
				q.notifications.TakeBlocked()
			}
		}
	}
}
