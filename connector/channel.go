package connector

import (
	"context"
	"sync"
	"time"
)

var _ Connector[any] = (*Channel[any])(nil)

// Channel implements a [Connector] using a buffered channel.
type Channel[T any] struct {
	buffer chan T

	done      chan struct{}
	closeOnce sync.Once
}

// NewChannel creates a new [Channel] with the given capacity.
func NewChannel[T any](size int) *Channel[T] {
	return &Channel[T]{
		buffer: make(chan T, size),
		done:   make(chan struct{}),
	}
}

// Write sends the item to the channel.
// It returns [ErrClosed] if the [Channel] is closed.
func (c *Channel[T]) Write(item T) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.buffer <- item:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

// TryWrite sends the item to the channel if it has a free slot.
// It returns [ErrFull] otherwise.
func (c *Channel[T]) TryWrite(item T) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.buffer <- item:
		return nil
	default:
		return ErrFull
	}
}

// Read receives an item from the channel.
// It returns [ErrClosed] once the [Channel] is closed and empty.
func (c *Channel[T]) Read() (T, error) {
	select {
	case item := <-c.buffer:
		return item, nil
	case <-c.done:
		return c.drain()
	}
}

// ReadTimeout receives an item from the channel waiting at most timeout.
func (c *Channel[T]) ReadTimeout(timeout time.Duration) (T, bool) {
	// Fast path, avoid allocating a timer
	select {
	case item := <-c.buffer:
		return item, true
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case item := <-c.buffer:
		return item, true

	case <-c.done:
		item, err := c.drain()
		return item, err == nil

	case <-timer.C:
		var zero T
		return zero, false
	}
}

// ReadContext receives an item from the channel waiting until ctx is done.
func (c *Channel[T]) ReadContext(ctx context.Context) (T, error) {
	var zero T

	if err := ctx.Err(); err != nil {
		return zero, err
	}

	select {
	case item := <-c.buffer:
		return item, nil

	case <-c.done:
		return c.drain()

	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (c *Channel[T]) drain() (T, error) {
	select {
	case item := <-c.buffer:
		return item, nil
	default:
		var zero T
		return zero, ErrClosed
	}
}

// Len returns the number of items in the channel.
func (c *Channel[T]) Len() int {
	return len(c.buffer)
}

// Close closes the [Channel] connector.
func (c *Channel[T]) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
