package pubsub

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
)

const defaultSubscriberBuffer = 256

// Bus is an in-process transport.
// Every message published through one of its sessions is delivered
// to the subscribers whose subject is a prefix of the message subject.
type Bus struct {
	mux         sync.RWMutex
	subscribers map[int]*subscriber
	nextID      int

	published atomic.Int64
	dropped   atomic.Int64
}

type subscriber struct {
	subject string
	ch      chan *Message
}

func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[int]*subscriber),
	}
}

// Subscribe registers a new subscriber for the given subject.
// The returned cancel function unregisters it and closes the channel.
// A subscriber that does not keep up loses the messages that overflow its buffer.
func (b *Bus) Subscribe(subject string) (<-chan *Message, func()) {
	b.mux.Lock()
	defer b.mux.Unlock()

	id := b.nextID
	b.nextID++

	sub := &subscriber{
		subject: normalizeSubject(subject),
		ch:      make(chan *Message, defaultSubscriberBuffer),
	}
	b.subscribers[id] = sub

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mux.Lock()
			defer b.mux.Unlock()

			delete(b.subscribers, id)
			close(sub.ch)
		})
	}

	return sub.ch, cancel
}

func (b *Bus) dispatch(msg *Message) {
	b.mux.RLock()
	defer b.mux.RUnlock()

	b.published.Add(1)

	for _, sub := range b.subscribers {
		if !strings.HasPrefix(msg.Subject, sub.subject) {
			continue
		}

		select {
		case sub.ch <- msg:
		default:
			b.dropped.Add(1)
		}
	}
}

// Published returns the number of messages published on the bus.
func (b *Bus) Published() int64 {
	return b.published.Load()
}

// Dropped returns the number of messages lost by slow subscribers.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// Open implements [Dialer].
func (b *Bus) Open(_ context.Context, _ *Config) (Session, error) {
	return &busSession{bus: b}, nil
}

type busSession struct {
	bus    *Bus
	closed atomic.Bool
}

func (s *busSession) Publish(ctx context.Context, msg *Message) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	s.bus.dispatch(msg)

	return nil
}

func (s *busSession) Close() error {
	s.closed.Store(true)
	return nil
}
