package connector

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sys/cpu"
)

var _ Connector[any] = (*RingBuffer[any])(nil)

// RingBuffer is a bounded [Connector] backed by a power of two ring.
type RingBuffer[T any] struct {
	mux      *sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond

	// head is the next slot to write, tail the next slot to read.
	// Both grow monotonically and are masked on access.
	head uint32
	tail uint32

	_ cpu.CacheLinePad

	closed bool

	capacity uint32
	capMask  uint32

	buffer []T
}

// NewRingBuffer returns a new [RingBuffer].
// The capacity is rounded up to the next power of two.
func NewRingBuffer[T any](capacity uint32) *RingBuffer[T] {
	capacity = roundToPowerOf2(capacity)

	mux := &sync.Mutex{}

	return &RingBuffer[T]{
		mux:      mux,
		notEmpty: sync.NewCond(mux),
		notFull:  sync.NewCond(mux),

		capacity: capacity,
		capMask:  capacity - 1,

		buffer: make([]T, capacity),
	}
}

func roundToPowerOf2(n uint32) uint32 {
	if n < 2 {
		return 1
	}

	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++

	return n
}

func (rb *RingBuffer[T]) isEmpty() bool {
	return rb.head == rb.tail
}

func (rb *RingBuffer[T]) isFull() bool {
	return rb.head-rb.tail >= rb.capacity
}

// pop must be called with the lock held and the buffer not empty.
func (rb *RingBuffer[T]) pop() T {
	var zero T

	idx := rb.tail & rb.capMask
	item := rb.buffer[idx]

	// Release the reference so the item can be collected
	rb.buffer[idx] = zero
	rb.tail++

	rb.notFull.Signal()

	return item
}

// Write adds an item to the [RingBuffer].
// It blocks until the buffer is not full.
//
// Returns [ErrClosed] if the [RingBuffer] is closed.
func (rb *RingBuffer[T]) Write(item T) error {
	rb.mux.Lock()
	defer rb.mux.Unlock()

	for rb.isFull() && !rb.closed {
		rb.notFull.Wait()
	}

	if rb.closed {
		return ErrClosed
	}

	rb.buffer[rb.head&rb.capMask] = item
	rb.head++

	rb.notEmpty.Signal()

	return nil
}

// TryWrite adds an item to the [RingBuffer] if it is not full.
//
// Returns [ErrFull] if the [RingBuffer] is full.
func (rb *RingBuffer[T]) TryWrite(item T) error {
	rb.mux.Lock()
	defer rb.mux.Unlock()

	if rb.closed {
		return ErrClosed
	}

	if rb.isFull() {
		return ErrFull
	}

	rb.buffer[rb.head&rb.capMask] = item
	rb.head++

	rb.notEmpty.Signal()

	return nil
}

// Read retrieves an item from the [RingBuffer].
// It blocks until the buffer is not empty.
//
// Returns [ErrClosed] if the [RingBuffer] is closed and empty.
func (rb *RingBuffer[T]) Read() (T, error) {
	rb.mux.Lock()
	defer rb.mux.Unlock()

	for rb.isEmpty() && !rb.closed {
		rb.notEmpty.Wait()
	}

	if rb.isEmpty() {
		var zero T
		return zero, ErrClosed
	}

	return rb.pop(), nil
}

// ReadTimeout retrieves an item from the [RingBuffer] waiting at most timeout.
func (rb *RingBuffer[T]) ReadTimeout(timeout time.Duration) (T, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	item, err := rb.ReadContext(ctx)
	return item, err == nil
}

// ReadContext retrieves an item from the [RingBuffer] waiting until ctx is done.
//
// Returns [ErrClosed] if the [RingBuffer] is closed and empty.
func (rb *RingBuffer[T]) ReadContext(ctx context.Context) (T, error) {
	var zero T

	if err := ctx.Err(); err != nil {
		return zero, err
	}

	// A cond cannot wait on a context, so wake every waiter when it is done
	stop := context.AfterFunc(ctx, func() {
		rb.mux.Lock()
		rb.notEmpty.Broadcast()
		rb.mux.Unlock()
	})
	defer stop()

	rb.mux.Lock()
	defer rb.mux.Unlock()

	for rb.isEmpty() && !rb.closed {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		rb.notEmpty.Wait()
	}

	if rb.isEmpty() {
		return zero, ErrClosed
	}

	return rb.pop(), nil
}

// Len returns the number of items in the [RingBuffer].
func (rb *RingBuffer[T]) Len() int {
	rb.mux.Lock()
	defer rb.mux.Unlock()

	return int(rb.head - rb.tail)
}

// Close marks the [RingBuffer] as closed.
func (rb *RingBuffer[T]) Close() {
	rb.mux.Lock()
	defer rb.mux.Unlock()

	if rb.closed {
		return
	}
	rb.closed = true

	rb.notEmpty.Broadcast()
	rb.notFull.Broadcast()
}
