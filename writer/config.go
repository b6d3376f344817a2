package writer

import (
	"time"

	"github.com/squadracorsepolito/satwriter/pubsub"
)

// SaveErrorPolicy selects what happens when a file cannot be saved.
type SaveErrorPolicy int

const (
	// SaveErrorAbortObject skips the remaining files of the data object.
	SaveErrorAbortObject SaveErrorPolicy = iota
	// SaveErrorSkipFile moves on to the next file of the data object.
	SaveErrorSkipFile
)

func (p SaveErrorPolicy) String() string {
	switch p {
	case SaveErrorAbortObject:
		return "abort_object"
	case SaveErrorSkipFile:
		return "skip_file"
	default:
		return "unknown"
	}
}

// Config configures a [Worker] and its [Container].
type Config struct {
	// Topic is the subject of the completion events.
	// An empty topic disables publishing.
	Topic string

	// Port and Nameservers are the publisher connection parameters.
	Port        int
	Nameservers []string

	// PublisherName identifies the publisher on the transport.
	PublisherName string

	SaveSettings *SaveSettings

	// PollInterval bounds both the idle sleep when no queue is set
	// and the wait for an item on the queue.
	PollInterval time.Duration

	SaveErrorPolicy SaveErrorPolicy

	// OutputQueueSize is the capacity of the container output queue.
	OutputQueueSize int
}

// NewDefaultConfig returns the default [Config], publishing disabled.
func NewDefaultConfig() *Config {
	return &Config{
		PublisherName:   "l2producer",
		SaveSettings:    DefaultSaveSettings(),
		PollInterval:    time.Second,
		SaveErrorPolicy: SaveErrorAbortObject,
		OutputQueueSize: 16,
	}
}

func (c *Config) publisherConfig() *pubsub.Config {
	return &pubsub.Config{
		Name:        c.PublisherName,
		Port:        c.Port,
		Nameservers: c.Nameservers,
	}
}

func (c *Config) pollInterval() time.Duration {
	if c.PollInterval <= 0 {
		return time.Second
	}
	return c.PollInterval
}
