package provider

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/mutagen-io/filepoll/pkg/contextutil"
	"github.com/mutagen-io/filepoll/pkg/filesystem/locking"
	"github.com/mutagen-io/filepoll/pkg/filesystem/snapshot"
	"github.com/mutagen-io/filepoll/pkg/logging"
	"github.com/mutagen-io/filepoll/pkg/queue"
	"github.com/mutagen-io/filepoll/pkg/text"
)

// pipeline is the producer/consumer pair and queue for one (directory, kind)
// combination. Its snapshot is owned exclusively by the producer Goroutine.
type pipeline struct {
	// logger is the pipeline logger.
	logger *logging.Logger
	// kind is the change kind detected by the pipeline.
	kind Kind
	// snapshot is the directory snapshot polled by the producer.
	snapshot *snapshot.DirectorySnapshot
	// queue connects the producer and the consumer.
	queue *queue.Queue[*Message]
	// filters are the filters applied to differences.
	filters []string
	// interval is the polling interval.
	interval time.Duration
	// report delivers per-directory failures.
	report func(error)
	// seedBaseline indicates whether or not the producer seeds the snapshot
	// before polling, suppressing creation reports for existing files.
	seedBaseline bool
	// seeded is closed once the producer has established its baseline (or
	// determined that none is needed).
	seeded chan struct{}
}

// newPipeline creates a new pipeline that dispatches to the specified handler.
func newPipeline(
	logger *logging.Logger,
	kind Kind,
	directorySnapshot *snapshot.DirectorySnapshot,
	handler Handler,
	configuration *Configuration,
	report func(error),
) *pipeline {
	p := &pipeline{
		logger:       logger,
		kind:         kind,
		snapshot:     directorySnapshot,
		filters:      configuration.Filters,
		interval:     configuration.interval(),
		report:       report,
		seedBaseline: kind != KindCreated || !configuration.IncludeExistingFiles,
		seeded:       make(chan struct{}),
	}
	p.queue = queue.New(configuration.Capacity, configuration.Wait, queue.Notifications[*Message]{
		Added: func(message *Message) {
			logger.Tracef("Queued %s", message.Name)
		},
		AddBlocked: func(message *Message) {
			logger.Tracef("Queue full, retrying %s", message.Name)
		},
		AddingCanceled: func(message *Message) {
			logger.Debugf("Production cancelled at %s", message.Name)
		},
		Taken: func(message *Message) {
			logger.Tracef("Dispatching %s", message.Name)
			handler(message)
		},
		TakingCanceled: func() {
			logger.Debug("Delivery cancelled")
		},
		TakingCompleted: func() {
			logger.Debug("Delivery completed")
		},
		Error: func(err error) {
			report(errors.Wrapf(err, "%s handler failed", kind))
		},
	})
	return p
}

// seed establishes the snapshot baseline. Files found by seeding are never
// reported as created.
func (p *pipeline) seed() {
	if err := p.snapshot.Seed(nil); err != nil {
		p.report(errors.Wrapf(err, "unable to seed snapshot of %s", p.snapshot.Root()))
	}
}

// produce is the producer loop. It establishes the baseline and then polls at
// the configured interval until the context is cancelled or the queue is
// completed for adding.
func (p *pipeline) produce(ctx context.Context) {
	if p.seedBaseline {
		p.seed()
	}
	close(p.seeded)

	p.logger.Debugf("Polling every %s", p.interval)
	for {
		if !contextutil.Sleep(ctx, p.interval) {
			p.logger.Debug("Polling cancelled")
			return
		} else if p.queue.IsAddingCompleted() {
			p.logger.Debug("Polling completed")
			return
		}
		p.poll(ctx)
	}
}

// poll performs a single refresh and submits the resulting messages. Failures
// are reported rather than terminating the producer loop, so that polling
// resumes if the directory becomes accessible again.
func (p *pipeline) poll(ctx context.Context) {
	// Refresh the snapshot.
	if err := p.snapshot.Refresh(nil); err != nil {
		p.report(errors.Wrapf(err, "unable to poll %s", p.snapshot.Root()))
		return
	}

	// Compute differences.
	var differences []*snapshot.FileSnapshot
	switch p.kind {
	case KindCreated:
		differences = p.snapshot.Created(p.filters)
	case KindChanged:
		differences = p.snapshot.Changed(p.filters)
	case KindDeleted:
		differences = p.snapshot.Deleted(p.filters)
	}
	if len(differences) == 0 {
		return
	}

	// Build messages.
	messages := make([]*Message, 0, len(differences))
	var total int64
	for _, difference := range differences {
		message := p.read(difference)
		total += message.ContentLength
		messages = append(messages, message)
	}
	p.logger.Debugf("Submitting %d message(s) (%s)", len(messages), humanize.Bytes(uint64(total)))

	// Submit the batch. Unsubmitted messages are lost on cancellation.
	if err := p.queue.Produce(ctx, messages...); err != nil {
		p.logger.Debugf("Batch submission interrupted: %v", err)
	}
}

// read creates a message for a detected change. Contents are read under an
// exclusive lock for a consistent image. Read failures (e.g. the file vanished
// or is locked) leave the contents empty.
func (p *pipeline) read(file *snapshot.FileSnapshot) *Message {
	message := &Message{Name: file.Name}
	if p.kind == KindDeleted {
		return message
	}
	data, err := locking.ReadExclusive(file.Name)
	if err != nil {
		p.logger.Tracef("Unable to read %s: %v", file.Name, err)
		return message
	}
	message.Content = text.Decode(data)
	message.ContentLength = int64(len(data))
	return message
}

// consume is the consumer loop. It delivers messages until the queue drains
// after completion or the context is cancelled.
func (p *pipeline) consume(ctx context.Context) {
	p.queue.Consume(ctx)
}
