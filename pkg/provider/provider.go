// Package provider implements poll-based filesystem change detection. A
// Provider runs one pipeline per watched directory and active change kind,
// each consisting of a producer that polls, diffs, and reads files, a bounded
// queue, and a consumer that dispatches messages to a registered handler.
package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/mutagen-io/filepoll/pkg/filesystem/snapshot"
	"github.com/mutagen-io/filepoll/pkg/identifier"
	"github.com/mutagen-io/filepoll/pkg/logging"
)

// ErrInvalidState indicates that a lifecycle operation isn't permitted in the
// provider's current state.
var ErrInvalidState = errors.New("invalid provider state")

// Provider orchestrates polling pipelines. Its lifecycle is Created, Started,
// and then either Stopping and Drained (after Stop) or Aborting and Terminated
// (after Abort). It is safe for concurrent usage.
type Provider struct {
	// logger is the provider logger.
	logger *logging.Logger
	// identifier is the provider identifier.
	identifier string
	// configuration is the provider configuration.
	configuration Configuration
	// handlers are the registered handlers.
	handlers Handlers
	// pipelines are the pipelines for all active (directory, kind) pairs.
	pipelines []*pipeline
	// producerCtx regulates polling and production.
	producerCtx context.Context
	// producerCancel cancels producerCtx.
	producerCancel context.CancelFunc
	// consumerCtx regulates delivery.
	consumerCtx context.Context
	// consumerCancel cancels consumerCtx.
	consumerCancel context.CancelFunc
	// stateLock guards state.
	stateLock sync.Mutex
	// state is the lifecycle state.
	state State
	// done is closed once all workers have exited after Stop or Abort.
	done chan struct{}
}

// New creates a new provider. Pipelines are allocated for every directory and
// every change kind that has a handler. No polling occurs until Start.
func New(logger *logging.Logger, configuration Configuration, handlers Handlers) (*Provider, error) {
	// Validate the configuration.
	if err := configuration.EnsureValid(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	// Verify that at least one change kind is active.
	if handlers.Created == nil && handlers.Changed == nil && handlers.Deleted == nil {
		return nil, errors.New("no change handlers registered")
	}

	// Generate an identifier.
	id, err := identifier.New(identifier.PrefixProvider)
	if err != nil {
		return nil, errors.Wrap(err, "unable to generate provider identifier")
	}

	// Compute the enumeration depth.
	depth := snapshot.DepthTopLevel
	if configuration.IncludeSubpath {
		depth = snapshot.DepthUnlimited
	}

	// Create the cancellation scopes.
	producerCtx, producerCancel := context.WithCancel(context.Background())
	consumerCtx, consumerCancel := context.WithCancel(context.Background())

	// Create the provider.
	provider := &Provider{
		logger:         logger,
		identifier:     id,
		configuration:  configuration,
		handlers:       handlers,
		producerCtx:    producerCtx,
		producerCancel: producerCancel,
		consumerCtx:    consumerCtx,
		consumerCancel: consumerCancel,
		done:           make(chan struct{}),
	}

	// Create pipelines for active kinds.
	for _, directory := range configuration.Directories {
		for _, kind := range kinds {
			handler := handlers.forKind(kind)
			if handler == nil {
				continue
			}
			directorySnapshot, err := snapshot.New(directory, snapshot.Options{
				Pattern: configuration.Pattern,
				Depth:   depth,
			})
			if err != nil {
				producerCancel()
				consumerCancel()
				return nil, errors.Wrapf(err, "unable to create snapshot for %s", directory)
			}
			provider.pipelines = append(provider.pipelines, newPipeline(
				logger.Sublogger(fmt.Sprintf("%s[%s]", kind, directorySnapshot.Root())),
				kind,
				directorySnapshot,
				handler,
				&provider.configuration,
				provider.report,
			))
		}
	}

	// Done.
	return provider, nil
}

// Identifier returns the provider identifier.
func (p *Provider) Identifier() string {
	return p.identifier
}

// State returns the provider's current lifecycle state.
func (p *Provider) State() State {
	p.stateLock.Lock()
	defer p.stateLock.Unlock()
	return p.state
}

// report logs a failure and forwards it to the error handler, if any.
func (p *Provider) report(err error) {
	p.logger.Warn(err)
	if p.handlers.Error != nil {
		p.handlers.Error(err)
	}
}

// Start launches a producer and a consumer for every pipeline and returns
// without waiting for them. Each producer establishes its snapshot baseline
// before its first interval elapses, so files that exist at that point are
// reported as created only if IncludeExistingFiles is set.
func (p *Provider) Start() error {
	// Transition to the started state.
	p.stateLock.Lock()
	if p.state != StateCreated {
		state := p.state
		p.stateLock.Unlock()
		return errors.Wrapf(ErrInvalidState, "unable to start from %s state", state)
	}
	p.state = StateStarted
	p.stateLock.Unlock()

	p.logger.Infof("Starting %d pipeline(s) across %d watch root(s)",
		len(p.pipelines), len(p.configuration.Directories),
	)

	// Launch workers.
	var workers sync.WaitGroup
	for _, pipe := range p.pipelines {
		workers.Add(2)
		go func(pipe *pipeline) {
			defer workers.Done()
			pipe.produce(p.producerCtx)
		}(pipe)
		go func(pipe *pipeline) {
			defer workers.Done()
			pipe.consume(p.consumerCtx)
		}(pipe)
	}

	// Track worker termination.
	go p.finalize(&workers)

	// Success.
	return nil
}

// finalize waits for all workers to exit and records the final state.
func (p *Provider) finalize(workers *sync.WaitGroup) {
	workers.Wait()

	p.stateLock.Lock()
	switch p.state {
	case StateStopping:
		p.state = StateDrained
	case StateAborting:
		p.state = StateTerminated
	}
	final := p.state
	p.stateLock.Unlock()

	p.producerCancel()
	p.consumerCancel()
	p.logger.Infof("All pipelines exited (%s)", final)
	close(p.done)
}

// completeAdding marks every pipeline queue as complete for adding.
func (p *Provider) completeAdding() {
	for _, pipe := range p.pipelines {
		pipe.queue.CompleteAdding()
	}
}

// Stop halts polling and lets buffered messages drain through their consumers.
// It does not wait for draining to finish; use Wait for that.
func (p *Provider) Stop() error {
	p.stateLock.Lock()
	defer p.stateLock.Unlock()
	if p.state != StateStarted {
		return errors.Wrapf(ErrInvalidState, "unable to stop from %s state", p.state)
	}
	p.state = StateStopping

	p.logger.Info("Stopping")
	p.producerCancel()
	p.completeAdding()
	return nil
}

// Abort halts polling and cancels delivery, discarding any buffered messages
// that haven't been dispatched. It may be used to escalate a Stop. It does not
// wait for workers to exit; use Wait for that.
func (p *Provider) Abort() error {
	p.stateLock.Lock()
	defer p.stateLock.Unlock()
	if p.state != StateStarted && p.state != StateStopping {
		return errors.Wrapf(ErrInvalidState, "unable to abort from %s state", p.state)
	}
	p.state = StateAborting

	p.logger.Info("Aborting")
	p.producerCancel()
	p.consumerCancel()
	p.completeAdding()
	return nil
}

// Wait blocks until all workers have exited following Stop or Abort, or until
// the context is cancelled.
func (p *Provider) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
