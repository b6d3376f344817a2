package writer

import (
	"context"
	"sync"

	"github.com/squadracorsepolito/satwriter/internal"
	"github.com/squadracorsepolito/satwriter/pubsub"
)

// Container owns the background [Worker] and its queue wiring.
// It is safe for concurrent use.
type Container struct {
	tel *internal.Telemetry

	ctx    context.Context
	cfg    *Config
	naming Naming
	dialer pubsub.Dialer

	// lifecycle serializes start, stop and restart.
	lifecycle sync.Mutex

	// swap serializes input queue changes.
	swap sync.Mutex

	mux         sync.Mutex
	worker      *Worker
	done        chan struct{}
	inputQueue  Queue
	outputQueue Queue
	err         error
}

// NewContainer creates a [Worker] and starts it in a new goroutine.
// The context bounds the whole life of the container, [Container.Stop]
// does not cancel it so that a save in progress can complete.
func NewContainer(ctx context.Context, cfg *Config, naming Naming, dialer pubsub.Dialer) *Container {
	c := &Container{
		tel: internal.NewTelemetry("writer", "data_writer"),

		ctx:    ctx,
		cfg:    cfg,
		naming: naming,
		dialer: dialer,
	}

	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.start()

	return c
}

// start must be called with the lifecycle lock held.
func (c *Container) start() {
	c.mux.Lock()
	defer c.mux.Unlock()

	c.outputQueue = NewQueue(c.cfg.OutputQueueSize)
	c.err = nil

	worker := NewWorker(c.tel, c.cfg, c.naming, c.dialer, c.inputQueue)
	done := make(chan struct{})

	c.worker = worker
	c.done = done

	go func() {
		defer close(done)

		if err := worker.Run(c.ctx); err != nil {
			c.tel.LogError("writer stopped with error", err)

			c.mux.Lock()
			if c.worker == worker {
				c.err = err
			}
			c.mux.Unlock()
		}
	}()
}

// InputQueue returns the queue the worker reads from.
func (c *Container) InputQueue() Queue {
	c.mux.Lock()
	defer c.mux.Unlock()

	return c.inputQueue
}

// SetInputQueue sets the queue the worker reads from.
// A running worker switches to the new queue on its next iteration.
func (c *Container) SetInputQueue(queue Queue) {
	c.swap.Lock()
	defer c.swap.Unlock()

	c.mux.Lock()
	c.inputQueue = queue
	worker := c.worker
	c.mux.Unlock()

	if worker != nil {
		worker.SetQueue(queue)
	}
}

// OutputQueue returns the output side queue of the container.
func (c *Container) OutputQueue() Queue {
	c.mux.Lock()
	defer c.mux.Unlock()

	return c.outputQueue
}

// Running states whether the worker loop is active.
func (c *Container) Running() bool {
	c.mux.Lock()
	defer c.mux.Unlock()

	return c.worker != nil && c.worker.Loop()
}

// Err returns the error that terminated the last worker, if any.
func (c *Container) Err() error {
	c.mux.Lock()
	defer c.mux.Unlock()

	return c.err
}

// Restart stops the worker, if running, and starts a new one
// with the same configuration and input queue.
func (c *Container) Restart() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.stop()
	c.start()
}

// Stop stops the worker and waits for its goroutine to return.
// Calling Stop on a stopped container does nothing.
func (c *Container) Stop() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.stop()
}

// stop must be called with the lifecycle lock held.
func (c *Container) stop() {
	c.mux.Lock()
	worker, done := c.worker, c.done
	c.mux.Unlock()

	if worker == nil {
		return
	}

	c.tel.LogDebug("stopping writer")

	worker.Stop()
	<-done

	c.mux.Lock()
	c.worker = nil
	c.done = nil
	c.mux.Unlock()

	c.tel.LogDebug("writer stopped")
}
