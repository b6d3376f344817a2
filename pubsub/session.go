// Package pubsub contains the publisher sessions used to announce
// new output files to downstream consumers.
package pubsub

import (
	"context"
	"errors"
	"net"
	"strconv"
)

// ErrSessionClosed is returned when publishing on a closed session.
var ErrSessionClosed = errors.New("pubsub: session is closed")

// Config describes the connection parameters of a session.
type Config struct {
	// Name identifies the publisher.
	Name string

	// Port is the port used to reach the transport.
	// Zero selects the default port of the backend.
	Port int

	// Nameservers is the ordered list of addresses used to reach the transport.
	// An empty list selects the default address of the backend.
	Nameservers []string
}

func NewDefaultConfig() *Config {
	return &Config{
		Name: "l2producer",
	}
}

// addresses returns the nameservers as host:port pairs,
// filling in the port when an address does not carry one.
func (c *Config) addresses(defaultHost string, defaultPort int) []string {
	port := c.Port
	if port == 0 {
		port = defaultPort
	}

	hosts := c.Nameservers
	if len(hosts) == 0 {
		hosts = []string{defaultHost}
	}

	addrs := make([]string, 0, len(hosts))
	for _, host := range hosts {
		if _, _, err := net.SplitHostPort(host); err == nil {
			addrs = append(addrs, host)
			continue
		}

		addrs = append(addrs, net.JoinHostPort(host, strconv.Itoa(port)))
	}

	return addrs
}

// Session is an open connection to a publish/subscribe transport.
// A session is owned by a single goroutine.
type Session interface {
	// Publish sends the message on the transport.
	Publish(ctx context.Context, msg *Message) error

	// Close releases the resources held by the session.
	Close() error
}

// Dialer opens new sessions.
type Dialer interface {
	Open(ctx context.Context, cfg *Config) (Session, error)
}

// DialerFunc adapts a function to a [Dialer].
type DialerFunc func(ctx context.Context, cfg *Config) (Session, error)

func (f DialerFunc) Open(ctx context.Context, cfg *Config) (Session, error) {
	return f(ctx, cfg)
}
