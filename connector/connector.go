// Package connector contains the hand-off queues used to pass items
// between a producer and a consumer running in different goroutines.
package connector

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned when writing to a closed connector, or when
// reading from a closed connector that has been drained.
var ErrClosed = errors.New("connector: connector is closed")

// ErrFull is returned by TryWrite when the connector has no free slot.
var ErrFull = errors.New("connector: connector is full")

// Connector is a thread-safe FIFO shared between a producer and a consumer.
type Connector[T any] interface {
	// Write pushes an item at the back of the connector.
	// It blocks only while the connector is full.
	Write(item T) error

	// TryWrite pushes an item at the back of the connector without blocking.
	// It returns [ErrFull] if the connector is full.
	TryWrite(item T) error

	// Read pops the item at the front of the connector.
	// It blocks until an item is available or the connector is closed.
	Read() (T, error)

	// ReadTimeout pops the item at the front of the connector,
	// waiting at most timeout for one to arrive.
	// It returns false if no item was available in time.
	ReadTimeout(timeout time.Duration) (T, bool)

	// ReadContext pops the item at the front of the connector,
	// waiting until one arrives or the context is done.
	// It returns the context error if the context is already done,
	// and [ErrClosed] at once if the connector is closed and drained.
	ReadContext(ctx context.Context) (T, error)

	// Len returns the number of queued items.
	Len() int

	// Close marks the connector as closed.
	// Items already queued can still be read.
	Close()
}
